// Package feed は投稿フィード（全体・コミュニティ・著者・購読）の取得を提供する。
// どのフィードも作成日時の降順で、ページ番号方式でページ分割する。
package feed

import (
	"context"
	"fmt"

	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/paginate"
	"github.com/hitoshi/yatube/internal/repository"
)

// Listing は1ページ分の投稿とページ情報。
type Listing struct {
	Articles []*model.ArticleWithRefs
	Page     paginate.Page
}

// CommunityFeed はコミュニティのフィード。
type CommunityFeed struct {
	Listing
	Community *model.Community
}

// ProfileFeed は著者のフィード。
type ProfileFeed struct {
	Listing
	Author          *model.User
	SubscriberCount int
	Following       bool // 閲覧者がこの著者を購読しているか
}

// Service はフィード取得のサービス層。
type Service struct {
	articles    repository.ArticleRepository
	communities repository.CommunityRepository
	users       repository.UserRepository
	subs        repository.SubscriptionRepository
	pageSize    int
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	articles repository.ArticleRepository,
	communities repository.CommunityRepository,
	users repository.UserRepository,
	subs repository.SubscriptionRepository,
	pageSize int,
) *Service {
	if pageSize <= 0 {
		pageSize = paginate.DefaultPageSize
	}
	return &Service{
		articles:    articles,
		communities: communities,
		users:       users,
		subs:        subs,
		pageSize:    pageSize,
	}
}

// Index は全投稿のフィードを返す。
func (s *Service) Index(ctx context.Context, rawPage string) (*Listing, error) {
	return s.list(ctx, model.ArticleFilter{}, rawPage)
}

// Community はslugで指定したコミュニティのフィードを返す。
// コミュニティが存在しない場合はCOMMUNITY_NOT_FOUNDエラーを返す。
func (s *Service) Community(ctx context.Context, slug, rawPage string) (*CommunityFeed, error) {
	community, err := s.communities.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("コミュニティの取得に失敗しました: %w", err)
	}
	if community == nil {
		return nil, model.NewCommunityNotFoundError(slug)
	}

	listing, err := s.list(ctx, model.ArticleFilter{CommunityID: community.ID}, rawPage)
	if err != nil {
		return nil, err
	}
	return &CommunityFeed{Listing: *listing, Community: community}, nil
}

// Profile はusernameの著者のフィードを購読者数付きで返す。
// viewerIDが空でなければ、閲覧者がこの著者を購読しているかも返す。
func (s *Service) Profile(ctx context.Context, username, rawPage, viewerID string) (*ProfileFeed, error) {
	author, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("著者の取得に失敗しました: %w", err)
	}
	if author == nil {
		return nil, model.NewUserNotFoundError(username)
	}

	listing, err := s.list(ctx, model.ArticleFilter{AuthorID: author.ID}, rawPage)
	if err != nil {
		return nil, err
	}

	count, err := s.subs.CountByTarget(ctx, author.ID)
	if err != nil {
		return nil, fmt.Errorf("購読者数の取得に失敗しました: %w", err)
	}

	following := false
	if viewerID != "" && viewerID != author.ID {
		following, err = s.subs.Exists(ctx, viewerID, author.ID)
		if err != nil {
			return nil, fmt.Errorf("購読状態の取得に失敗しました: %w", err)
		}
	}

	return &ProfileFeed{
		Listing:         *listing,
		Author:          author,
		SubscriberCount: count,
		Following:       following,
	}, nil
}

// Following はuserIDのユーザーが購読している著者の投稿フィードを返す。
func (s *Service) Following(ctx context.Context, userID, rawPage string) (*Listing, error) {
	return s.list(ctx, model.ArticleFilter{SubscriberID: userID}, rawPage)
}

// list は総件数からページ位置を決めてから該当ページの投稿を取得する。
// 範囲外のページ番号は最終ページとして扱う。
func (s *Service) list(ctx context.Context, filter model.ArticleFilter, rawPage string) (*Listing, error) {
	total, err := s.articles.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("投稿数の取得に失敗しました: %w", err)
	}

	page := paginate.New(rawPage, total, s.pageSize)
	articles, err := s.articles.List(ctx, filter, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}

	return &Listing{Articles: articles, Page: page}, nil
}

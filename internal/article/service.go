// Package article は投稿の作成・編集・詳細表示とコメント投稿のドメインロジックを提供する。
package article

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/yatube/internal/media"
	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/repository"
	"github.com/hitoshi/yatube/internal/security"
	"github.com/hitoshi/yatube/internal/validation"
)

// Detail は詳細ページに表示する投稿とその付随情報。
type Detail struct {
	Article            *model.ArticleWithRefs
	Comments           []*model.CommentWithAuthor
	AuthorArticleCount int
}

// Input は投稿の作成・編集の入力。TextとCommunityIDはフォーム検証済みであること。
type Input struct {
	Text        string
	CommunityID string    // 空文字はコミュニティなし
	Image       io.Reader // nilは画像の変更なし
	ClearImage  bool      // 編集時に既存の画像を外す
}

// Service は投稿のサービス層。
type Service struct {
	articles    repository.ArticleRepository
	comments    repository.CommentRepository
	communities repository.CommunityRepository
	images      media.Store
	sanitizer   security.TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	articles repository.ArticleRepository,
	comments repository.CommentRepository,
	communities repository.CommunityRepository,
	images media.Store,
	sanitizer security.TextSanitizer,
) *Service {
	return &Service{
		articles:    articles,
		comments:    comments,
		communities: communities,
		images:      images,
		sanitizer:   sanitizer,
	}
}

// Get は詳細ページ用に投稿・コメント・著者の投稿数を返す。
func (s *Service) Get(ctx context.Context, articleID string) (*Detail, error) {
	a, err := s.find(ctx, articleID)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByArticle(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}

	count, err := s.articles.Count(ctx, model.ArticleFilter{AuthorID: a.AuthorID})
	if err != nil {
		return nil, fmt.Errorf("著者の投稿数の取得に失敗しました: %w", err)
	}

	return &Detail{Article: a, Comments: comments, AuthorArticleCount: count}, nil
}

// GetForEdit は編集フォーム用に投稿を返す。
// editorIDが著者でない場合はNOT_ARTICLE_OWNERエラーを返す。
func (s *Service) GetForEdit(ctx context.Context, articleID, editorID string) (*model.ArticleWithRefs, error) {
	a, err := s.find(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if a.AuthorID != editorID {
		return nil, model.NewNotArticleOwnerError(articleID)
	}
	return a, nil
}

// Communities はフォームの選択肢となるコミュニティ一覧を返す。
func (s *Service) Communities(ctx context.Context) ([]*model.Community, error) {
	list, err := s.communities.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("コミュニティ一覧の取得に失敗しました: %w", err)
	}
	return list, nil
}

// Create は投稿を作成する。著者は常にauthorIDになる。
// 入力の不備は*validation.FieldErrorで返す。
func (s *Service) Create(ctx context.Context, authorID string, in Input) (*model.Article, error) {
	text, communityID, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	image := ""
	if in.Image != nil {
		if image, err = s.saveImage(ctx, in.Image); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	a := &model.Article{
		ID:          uuid.New().String(),
		Text:        text,
		CommunityID: communityID,
		AuthorID:    authorID,
		Image:       image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.articles.Create(ctx, a); err != nil {
		s.removeImage(ctx, image)
		return nil, fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}

	slog.Info("投稿を作成しました",
		slog.String("article_id", a.ID),
		slog.String("author_id", authorID),
	)
	return a, nil
}

// Update は投稿を編集する。著者と作成日時は変更しない。
// editorIDが著者でない場合はNOT_ARTICLE_OWNERエラーを返す。
func (s *Service) Update(ctx context.Context, articleID, editorID string, in Input) (*model.Article, error) {
	current, err := s.GetForEdit(ctx, articleID, editorID)
	if err != nil {
		return nil, err
	}

	text, communityID, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	updated := current.Article
	updated.Text = text
	updated.CommunityID = communityID
	updated.UpdatedAt = time.Now()

	oldImage := current.Image
	switch {
	case in.Image != nil:
		if updated.Image, err = s.saveImage(ctx, in.Image); err != nil {
			return nil, err
		}
	case in.ClearImage:
		updated.Image = ""
	}

	if err := s.articles.Update(ctx, &updated); err != nil {
		if updated.Image != oldImage {
			s.removeImage(ctx, updated.Image)
		}
		return nil, fmt.Errorf("投稿の更新に失敗しました: %w", err)
	}
	if updated.Image != oldImage {
		s.removeImage(ctx, oldImage)
	}

	slog.Info("投稿を更新しました", slog.String("article_id", articleID))
	return &updated, nil
}

// AddComment は投稿にコメントを追加する。
// 投稿の存在確認を入力検証より先に行い、存在しない場合はARTICLE_NOT_FOUNDエラーを返す。
func (s *Service) AddComment(ctx context.Context, articleID, authorID, rawText string) (*model.Comment, error) {
	a, err := s.find(ctx, articleID)
	if err != nil {
		return nil, err
	}

	form := validation.CommentForm{Text: s.sanitizer.Clean(rawText)}
	if errs := validation.Validate(&form); errs.Any() {
		return nil, validation.NewFieldError("text", errs.Get("text")[0])
	}

	c := &model.Comment{
		ID:        uuid.New().String(),
		ArticleID: a.ID,
		AuthorID:  authorID,
		Text:      form.Text,
		CreatedAt: time.Now(),
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}
	return c, nil
}

func (s *Service) find(ctx context.Context, articleID string) (*model.ArticleWithRefs, error) {
	if _, err := uuid.Parse(articleID); err != nil {
		return nil, model.NewArticleNotFoundError(articleID)
	}
	a, err := s.articles.FindByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if a == nil {
		return nil, model.NewArticleNotFoundError(articleID)
	}
	return a, nil
}

// prepare は本文を正規化し、コミュニティの存在を確認する。
func (s *Service) prepare(ctx context.Context, in Input) (string, *string, error) {
	text := s.sanitizer.Clean(in.Text)
	if text == "" {
		return "", nil, validation.NewFieldError("text", "この項目は必須です。")
	}

	if in.CommunityID == "" {
		return text, nil, nil
	}
	community, err := s.communities.FindByID(ctx, in.CommunityID)
	if err != nil {
		return "", nil, fmt.Errorf("コミュニティの取得に失敗しました: %w", err)
	}
	if community == nil {
		return "", nil, validation.NewFieldError("community", "正しく選択してください。選択したコミュニティは存在しません。")
	}
	id := community.ID
	return text, &id, nil
}

func (s *Service) saveImage(ctx context.Context, r io.Reader) (string, error) {
	rel, err := s.images.Save(ctx, r)
	if media.IsUserError(err) {
		return "", validation.NewFieldError("image", err.Error())
	}
	if err != nil {
		return "", fmt.Errorf("画像の保存に失敗しました: %w", err)
	}
	return rel, nil
}

func (s *Service) removeImage(ctx context.Context, rel string) {
	if rel == "" {
		return
	}
	if err := s.images.Remove(ctx, rel); err != nil {
		slog.Warn("画像の削除に失敗しました",
			slog.String("image", rel),
			slog.String("error", err.Error()),
		)
	}
}

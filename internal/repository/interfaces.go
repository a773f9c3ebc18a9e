// Package repository はデータ永続化のインターフェースを定義する。
// 参照整合性（著者削除時のCASCADE、コミュニティ削除時のSET NULL）は
// スキーマ側の外部キー制約で保証し、リポジトリ側では扱わない。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/yatube/internal/model"
)

// ErrDuplicate は一意制約に違反した場合に返されるエラー。
var ErrDuplicate = errors.New("一意制約に違反しました")

// UserRepository は著者データの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。ユーザー名が重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 投稿・コメント・購読・セッションはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindUserBySessionID は有効なセッションに紐づくユーザーを返す。
	// セッションが存在しないか期限切れの場合はnilを返す。
	FindUserBySessionID(ctx context.Context, sessionID string) (*model.User, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// CommunityRepository はコミュニティデータの永続化インターフェース。
type CommunityRepository interface {
	// FindByID は指定IDのコミュニティを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Community, error)
	// FindBySlug はslugでコミュニティを取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Community, error)
	// List は全コミュニティをタイトル順で返す。
	List(ctx context.Context) ([]*model.Community, error)
	// Create はコミュニティを作成する。slugが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, community *model.Community) error
}

// ArticleRepository は投稿データの永続化インターフェース。
// 一覧は常に created_at DESC, id DESC の順で返す。
type ArticleRepository interface {
	// FindByID は指定IDの投稿を著者名・コミュニティ情報付きで取得する。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ArticleWithRefs, error)

	// Create は投稿を作成する。
	Create(ctx context.Context, article *model.Article) error

	// Update は投稿の本文・コミュニティ・画像を更新する。著者と作成日時は変更しない。
	Update(ctx context.Context, article *model.Article) error

	// List はフィルタ条件に合う投稿を新しい順に最大limit件返す。
	List(ctx context.Context, filter model.ArticleFilter, limit, offset int) ([]*model.ArticleWithRefs, error)

	// Count はフィルタ条件に合う投稿の総数を返す。
	Count(ctx context.Context, filter model.ArticleFilter) (int, error)
}

// CommentRepository はコメントデータの永続化インターフェース。
type CommentRepository interface {
	// Create はコメントを作成する。
	Create(ctx context.Context, comment *model.Comment) error
	// ListByArticle は投稿のコメントを古い順に返す。
	ListByArticle(ctx context.Context, articleID string) ([]*model.CommentWithAuthor, error)
}

// SubscriptionRepository は購読（フォロー）データの永続化インターフェース。
type SubscriptionRepository interface {
	// Create は購読を作成し、作成済みまたは既存のレコードを返す。
	// subscriberIDとtargetIDが同じ場合は何もせずnilを返す。
	Create(ctx context.Context, subscriberID, targetID string) (*model.Subscription, error)

	// Delete は購読を削除する。存在しない場合は何もしない。
	Delete(ctx context.Context, subscriberID, targetID string) error

	// Exists は購読が存在するかを返す。
	Exists(ctx context.Context, subscriberID, targetID string) (bool, error)

	// CountByTarget は指定著者の購読者数を返す。
	CountByTarget(ctx context.Context, targetID string) (int, error)
}

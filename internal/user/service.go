// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/repository"
)

// ArticleLister は退会ユーザーの投稿画像を集めるためのインターフェース。
type ArticleLister interface {
	List(ctx context.Context, filter model.ArticleFilter, limit, offset int) ([]*model.ArticleWithRefs, error)
}

// ImageRemover は保存済み画像の削除インターフェース。
type ImageRemover interface {
	Remove(ctx context.Context, relPath string) error
}

// imageBatchSize は画像パスを集める際の1回あたりの取得件数。
const imageBatchSize = 200

// Service はユーザー管理のサービス層。
// 退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	articles ArticleLister
	images   ImageRemover
}

// NewService はServiceの新しいインスタンスを生成する。
// articlesとimagesがnilの場合は画像ファイルを削除しない。
func NewService(userRepo repository.UserRepository, articles ArticleLister, images ImageRemover) *Service {
	return &Service{
		userRepo: userRepo,
		articles: articles,
		images:   images,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// 投稿・コメント・購読・セッションはDBのCASCADE削除に任せる。
// 投稿画像のファイルはユーザー削除後にベストエフォートで削除する。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError(userID)
	}

	slog.Info("退会処理を開始します", slog.String("user_id", userID))

	images, err := s.collectImages(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	for _, img := range images {
		if err := s.images.Remove(ctx, img); err != nil {
			slog.Warn("投稿画像の削除に失敗しました",
				slog.String("user_id", userID),
				slog.String("image", img),
				slog.String("error", err.Error()),
			)
		}
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
		slog.Int("removed_images", len(images)),
	)
	return nil
}

func (s *Service) collectImages(ctx context.Context, userID string) ([]string, error) {
	if s.articles == nil || s.images == nil {
		return nil, nil
	}
	var images []string
	for offset := 0; ; offset += imageBatchSize {
		batch, err := s.articles.List(ctx, model.ArticleFilter{AuthorID: userID}, imageBatchSize, offset)
		if err != nil {
			return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
		}
		for _, a := range batch {
			if a.Image != "" {
				images = append(images, a.Image)
			}
		}
		if len(batch) < imageBatchSize {
			return images, nil
		}
	}
}

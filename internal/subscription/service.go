// Package subscription は著者のフォロー（購読）管理のドメインロジックを提供する。
package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/repository"
)

// Service は購読管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
	subRepo  repository.SubscriptionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, subRepo repository.SubscriptionRepository) *Service {
	return &Service{userRepo: userRepo, subRepo: subRepo}
}

// Follow はsubscriberIDのユーザーがusernameの著者を購読する。
// 著者が存在しない場合はUSER_NOT_FOUNDエラーを返す。
// 自分自身への購読と既存の購読はエラーにせず何もしない。
// 呼び出し側は作成されたかどうかを区別しない。
func (s *Service) Follow(ctx context.Context, subscriberID, username string) error {
	target, err := s.findTarget(ctx, username)
	if err != nil {
		return err
	}

	sub, err := s.subRepo.Create(ctx, subscriberID, target.ID)
	if err != nil {
		return fmt.Errorf("購読の作成に失敗しました: %w", err)
	}
	if sub == nil {
		slog.Debug("自分自身への購読をスキップしました", slog.String("user_id", subscriberID))
	}
	return nil
}

// Unfollow はsubscriberIDのユーザーによるusernameの著者の購読を解除する。
// 購読していない場合は何もしない。
func (s *Service) Unfollow(ctx context.Context, subscriberID, username string) error {
	target, err := s.findTarget(ctx, username)
	if err != nil {
		return err
	}
	if err := s.subRepo.Delete(ctx, subscriberID, target.ID); err != nil {
		return fmt.Errorf("購読の解除に失敗しました: %w", err)
	}
	return nil
}

func (s *Service) findTarget(ctx context.Context, username string) (*model.User, error) {
	target, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("著者の取得に失敗しました: %w", err)
	}
	if target == nil {
		return nil, model.NewUserNotFoundError(username)
	}
	return target, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/yatube/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用した購読リポジトリ。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// Create は購読を作成し、作成済みまたは既存のレコードを返す。
// 自分自身への購読は作成せずnilを返す。重複はON CONFLICTで吸収するため
// 同時に同じ購読が要求されてもエラーにならない。
func (r *PostgresSubscriptionRepo) Create(ctx context.Context, subscriberID, targetID string) (*model.Subscription, error) {
	if subscriberID == targetID {
		return nil, nil
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, subscriber_id, target_id, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (subscriber_id, target_id) DO NOTHING`,
		uuid.New().String(), subscriberID, targetID, time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("購読の作成に失敗しました: %w", err)
	}

	sub := &model.Subscription{}
	err = r.db.QueryRowContext(ctx,
		`SELECT id, subscriber_id, target_id, created_at
		 FROM subscriptions WHERE subscriber_id = $1 AND target_id = $2`,
		subscriberID, targetID,
	).Scan(&sub.ID, &sub.SubscriberID, &sub.TargetID, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		// 作成直後に購読解除された場合
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("購読の取得に失敗しました: %w", err)
	}
	return sub, nil
}

// Delete は購読を削除する。存在しない場合は何もしない。
func (r *PostgresSubscriptionRepo) Delete(ctx context.Context, subscriberID, targetID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE subscriber_id = $1 AND target_id = $2`,
		subscriberID, targetID,
	)
	if err != nil {
		return fmt.Errorf("購読の削除に失敗しました: %w", err)
	}
	return nil
}

// Exists は購読が存在するかを返す。
func (r *PostgresSubscriptionRepo) Exists(ctx context.Context, subscriberID, targetID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE subscriber_id = $1 AND target_id = $2)`,
		subscriberID, targetID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("購読の存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// CountByTarget は指定著者の購読者数を返す。
func (r *PostgresSubscriptionRepo) CountByTarget(ctx context.Context, targetID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE target_id = $1`,
		targetID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("購読者数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)

package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// initialBackoff は接続リトライの初回待ち時間。
	initialBackoff = 500 * time.Millisecond
	// maxBackoff は接続リトライの最大待ち時間。
	maxBackoff = 8 * time.Second
)

// Pinger は疎通確認ができる接続。*sql.DBが実装する。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CalculateBackoff は失敗回数に基づいて指数バックオフの待ち時間を計算する。
// 初回500ミリ秒、2倍ずつ増加、最大8秒。
func CalculateBackoff(failures int) time.Duration {
	delay := initialBackoff
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// PingWithRetry はDBが応答するまで最大attempts回疎通確認を行う。
// コンテナ起動直後などDBの準備が整う前に呼ばれることを想定する。
func PingWithRetry(ctx context.Context, db Pinger, attempts int) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		delay := CalculateBackoff(i)
		slog.Warn("データベースに接続できません。再試行します",
			slog.Int("attempt", i+1),
			slog.Duration("retry_in", delay),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("データベースへの接続を中断しました: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("データベースに%d回接続できませんでした: %w", attempts, err)
}

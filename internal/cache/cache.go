// Package cache はレンダリング済みページのキャッシュを提供する。
//
// キャッシュは明示的なクリア操作かTTL切れでのみ無効化される。
// 投稿の作成・削除では無効化しないため、TTLの間は古い内容が表示されうる。
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultTTL はTTLが設定されていない場合の保持期間。
const DefaultTTL = 20 * time.Second

// PageCache はキー単位でページ断片を保持するキャッシュ。
// 同じキーへの書き込みは後勝ちで、書き込み同士の調停は行わない。
type PageCache interface {
	// Get はキャッシュを参照する。未登録または期限切れの場合はfalseを返す。
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set はキャッシュに値を書き込む。
	Set(ctx context.Context, key string, value []byte) error
	// Clear は全エントリを削除する。
	Clear(ctx context.Context) error
}

// New はcacheURLに応じたPageCacheを生成する。
// 空文字ならプロセス内キャッシュ、redis:// または rediss:// ならRedisを使う。
// 戻り値のclose関数は終了時に呼び出す。
func New(ctx context.Context, cacheURL string, ttl time.Duration) (PageCache, func() error, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cacheURL == "" {
		return NewMemoryPageCache(ttl), func() error { return nil }, nil
	}
	if !strings.HasPrefix(cacheURL, "redis://") && !strings.HasPrefix(cacheURL, "rediss://") {
		return nil, nil, fmt.Errorf("未対応のCACHE_URLです: %s", cacheURL)
	}

	c, err := NewRedisPageCache(ctx, cacheURL, ttl)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

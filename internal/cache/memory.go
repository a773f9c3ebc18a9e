package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryPageCache はプロセス内のPageCache。
// 読み取りはロックを取らず、Clearはマップごと差し替える。
type MemoryPageCache struct {
	entries atomic.Pointer[sync.Map]
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryPageCache はMemoryPageCacheを生成する。
func NewMemoryPageCache(ttl time.Duration) *MemoryPageCache {
	c := &MemoryPageCache{ttl: ttl, now: time.Now}
	c.entries.Store(&sync.Map{})
	return c
}

// Get はキャッシュを参照する。期限切れのエントリは削除してfalseを返す。
func (c *MemoryPageCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m := c.entries.Load()
	v, ok := m.Load(key)
	if !ok {
		return nil, false, nil
	}
	entry := v.(*memoryEntry)
	if !c.now().Before(entry.expiresAt) {
		m.CompareAndDelete(key, v)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set はキャッシュに値を書き込む。
func (c *MemoryPageCache) Set(_ context.Context, key string, value []byte) error {
	c.entries.Load().Store(key, &memoryEntry{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	})
	return nil
}

// Clear は全エントリを削除する。
func (c *MemoryPageCache) Clear(_ context.Context) error {
	c.entries.Store(&sync.Map{})
	return nil
}

var _ PageCache = (*MemoryPageCache)(nil)

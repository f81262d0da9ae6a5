package localcache

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"remotion_studio/internal/storage"
)

// MemoryCache keeps fallback values for the lifetime of the process. It is
// the driver used by tests and by sessions without a writable disk.
type MemoryCache struct {
	c *cache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &MemoryCache{c: cache.New(ttl, 10*time.Minute)}
}

func (m *MemoryCache) Get(_ context.Context, key string, dst any) error {
	v, ok := m.c.Get(key)
	if !ok {
		return storage.ErrorNoSuchKey
	}
	raw, ok := v.([]byte)
	if !ok {
		return storage.ErrInvalidValue
	}
	return decode(raw, dst)
}

func (m *MemoryCache) Set(_ context.Context, key string, value any) error {
	raw, err := encode(value)
	if err != nil {
		return err
	}
	m.c.Set(key, raw, cache.DefaultExpiration)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.c.Delete(k)
	}
	return nil
}

func (m *MemoryCache) Close() error {
	m.c.Flush()
	return nil
}

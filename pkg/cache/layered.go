package cache

import (
	"context"
	"time"
)

// LayeredCache keeps a small in-process L1 in front of a shared L2.
// Writes go through to L2 first; L2 hits are copied into L1 with their remaining ttl.
type LayeredCache struct {
	l1 *MemoryCache
	l2 remote
}

type remote interface {
	Service
	rawStore
}

func NewLayeredCache(l2 *RedisCache, l1Size int) *LayeredCache {
	return &LayeredCache{l1: NewMemoryCache(WithMemoryMaxSize(l1Size)), l2: l2}
}

func newLayered(l1 *MemoryCache, l2 remote) *LayeredCache {
	return &LayeredCache{l1: l1, l2: l2}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if err := lc.l2.setRaw(ctx, key, data, ttl); err != nil {
		return err
	}
	return lc.l1.setRaw(ctx, key, data, ttl)
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if data, _, err := lc.l1.getRaw(ctx, key); err == nil {
		return decode(data, dest)
	}
	data, ttl, err := lc.l2.getRaw(ctx, key)
	if err != nil {
		return err
	}
	_ = lc.l1.setRaw(ctx, key, data, ttl)
	return decode(data, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	_ = lc.l1.DeleteByPattern(ctx, pattern)
	return lc.l2.DeleteByPattern(ctx, pattern)
}

func (lc *LayeredCache) Exists(ctx context.Context, key string) (bool, error) {
	if ok, _ := lc.l1.Exists(ctx, key); ok {
		return true, nil
	}
	return lc.l2.Exists(ctx, key)
}

// Locks live only in L2 so they are shared between instances.
func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.l2.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.l2.Unlock(ctx, key)
}

func (lc *LayeredCache) Close() error {
	_ = lc.l1.Close()
	return lc.l2.Close()
}

package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

type memEntry struct {
	key      string
	value    []byte
	expireAt time.Time
}

// MemoryCache is an in-process LRU with per-entry expiry. Expired entries are
// dropped lazily on access and when they reach the LRU tail.
type MemoryCache struct {
	mu         sync.Mutex
	ll         *list.List // front = most recently used
	items      map[string]*list.Element
	maxEntries int
	defaultTTL time.Duration
	now        func() time.Time
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := MemoryConfig{MaxEntries: 1000, DefaultTTL: 24 * time.Hour}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxEntries < 1 {
		cfg.MaxEntries = 1
	}
	return &MemoryCache{
		ll:         list.New(),
		items:      make(map[string]*list.Element),
		maxEntries: cfg.MaxEntries,
		defaultTTL: cfg.DefaultTTL,
		now:        time.Now,
	}
}

var _ Service = (*MemoryCache)(nil)

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	e, ok := mc.lookupLocked(key)
	var data []byte
	if ok {
		data = e.value
	}
	mc.mu.Unlock()

	if !ok {
		return ErrCacheMiss
	}
	return decode(data, dest)
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	mc.mu.Lock()
	mc.putLocked(key, data, ttl)
	mc.mu.Unlock()
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, k := range keys {
		if el, ok := mc.items[k]; ok {
			mc.removeLocked(el)
		}
	}
	return nil
}

// TryLock claims key for ttl. It returns false while an unexpired claim exists.
func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if _, ok := mc.lookupLocked(key); ok {
		return false, nil
	}
	mc.putLocked(key, []byte("1"), ttl)
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// Len reports the number of entries, expired ones included until evicted.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.ll.Len()
}

// Close is a no-op; MemoryCache runs no background goroutine.
func (mc *MemoryCache) Close() error { return nil }

func (mc *MemoryCache) lookupLocked(key string) (*memEntry, bool) {
	el, ok := mc.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*memEntry)
	if !mc.now().Before(e.expireAt) {
		mc.removeLocked(el)
		return nil, false
	}
	mc.ll.MoveToFront(el)
	return e, true
}

func (mc *MemoryCache) putLocked(key string, data []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = mc.defaultTTL
	}
	expireAt := mc.now().Add(ttl)
	if el, ok := mc.items[key]; ok {
		e := el.Value.(*memEntry)
		e.value, e.expireAt = data, expireAt
		mc.ll.MoveToFront(el)
		return
	}
	mc.items[key] = mc.ll.PushFront(&memEntry{key: key, value: data, expireAt: expireAt})
	for mc.ll.Len() > mc.maxEntries {
		mc.removeLocked(mc.ll.Back())
	}
}

func (mc *MemoryCache) removeLocked(el *list.Element) {
	mc.ll.Remove(el)
	delete(mc.items, el.Value.(*memEntry).key)
}

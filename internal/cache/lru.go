// internal/cache/lru.go
//
// Least-recently-used cache with per-entry expiry.  Backs the commerce query
// cache and the view engine's parsed template sets.  Concurrent fills for the
// same key collapse into one call through singleflight.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yanizio/storefront/internal/metrics"
)

// LRU is a mutex-guarded least-recently-used cache keyed by string.
type LRU struct {
	name string
	cap  int

	mu   sync.Mutex
	ll   *list.List
	dict map[string]*list.Element

	group singleflight.Group
	now   func() time.Time
}

type entry struct {
	key     string
	val     any
	expires time.Time // zero = never
}

// New returns an LRU with the given capacity.  Panics on cap < 1.
func New(name string, capacity int) *LRU {
	if capacity < 1 {
		panic("cache: capacity must be ≥1")
	}
	return &LRU{
		name: name,
		cap:  capacity,
		ll:   list.New(),
		dict: make(map[string]*list.Element, capacity),
		now:  time.Now,
	}
}

// Name reports the handle name the cache was opened with.
func (c *LRU) Name() string { return c.name }

// Get retrieves a live value and marks it MRU.  Expired entries are
// dropped on access.
func (c *LRU) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ele, hit := c.dict[key]
	if !hit {
		return nil, false
	}
	e := ele.Value.(*entry)
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.ll.Remove(ele)
		delete(c.dict, key)
		return nil, false
	}
	c.ll.MoveToFront(ele)
	return e.val, true
}

// Add inserts or updates a value.  ttl <= 0 keeps the entry until evicted.
func (c *LRU) Add(key string, val any, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, hit := c.dict[key]; hit {
		ele.Value = &entry{key: key, val: val, expires: exp}
		c.ll.MoveToFront(ele)
		return
	}
	ele := c.ll.PushFront(&entry{key: key, val: val, expires: exp})
	c.dict[key] = ele
	if c.ll.Len() > c.cap {
		last := c.ll.Back()
		c.ll.Remove(last)
		delete(c.dict, last.Value.(*entry).key)
	}
}

// size reports current size, expired entries included until touched.
func (c *LRU) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Fetch returns the cached value for key or runs fill under the given
// strategy.  CacheNone bypasses the cache entirely.  Fill errors are
// returned to every waiter and nothing is stored.
func (c *LRU) Fetch(ctx context.Context, key string, s Strategy,
	fill func(context.Context) (any, error)) (any, error) {

	if !s.Enabled() {
		return fill(ctx)
	}
	if v, ok := c.Get(key); ok {
		metrics.QueryCacheHitsTotal.WithLabelValues(c.name).Inc()
		return v, nil
	}
	metrics.QueryCacheMissesTotal.WithLabelValues(c.name).Inc()

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		c.Add(key, v, s.MaxAge)
		return v, nil
	})
	return v, err
}

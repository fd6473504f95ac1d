package cache

import (
	"errors"
	"sync"
)

// DefaultCapacity is the entry budget for handles opened via Open.
const DefaultCapacity = 2048

var (
	regMu    sync.Mutex
	registry = map[string]*LRU{}
)

// Open returns the process-wide cache handle for name, creating it on first
// use.  Handles are shared by every request that opens the same name.
func Open(name string) (*LRU, error) {
	if name == "" {
		return nil, errors.New("cache: empty handle name")
	}
	regMu.Lock()
	defer regMu.Unlock()
	if c, ok := registry[name]; ok {
		return c, nil
	}
	c := New(name, DefaultCapacity)
	registry[name] = c
	return c, nil
}

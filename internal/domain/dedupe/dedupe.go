// Package dedupe tracks delivered reminder keys for at-most-once delivery.
package dedupe

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxSize = 10_000

// Deduper records seen keys to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so a failed delivery can be retried.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// lruDeduper keeps the most recently recorded keys; the oldest are evicted
// once the capacity is reached.
type lruDeduper struct {
	mu      sync.Mutex
	maxSize int
	cache   *lru.Cache[string, struct{}]
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &lruDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxSize <= 0 {
		d.maxSize = defaultMaxSize
	}
	cache, err := lru.New[string, struct{}](d.maxSize)
	if err != nil {
		// lru.New only fails on a non-positive size, excluded above.
		panic(err)
	}
	d.cache = cache
	return d
}

func (d *lruDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cache.Contains(key) {
		return true
	}
	d.cache.Add(key, struct{}{})
	return false
}

func (d *lruDeduper) Unrecord(_ context.Context, key string) {
	d.cache.Remove(key)
}

func (d *lruDeduper) Size() int64 {
	return int64(d.cache.Len())
}

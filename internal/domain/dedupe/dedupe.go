// Package dedupe tracks identifiers already handled within a unit of work.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen ids so an item is processed at most once.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so it may be processed again.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps ids in a map. When maxSize > 0 the oldest id is
// evicted once the set is full; otherwise the set grows without bound.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // id -> insertion sequence
	order   []string       // insertion order, may hold ids already unrecorded
	seq     int
	maxSize int
}

// NewInMemoryDeduper creates a deduper. The default is unbounded, which is
// what a single batch needs.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{seen: make(map[string]int)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seq++
	d.seen[id] = d.seq
	d.order = append(d.order, id)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

// evictOldest drops the earliest recorded id still present.
// Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	for len(d.order) > 0 {
		id := d.order[0]
		d.order = d.order[1:]
		if _, ok := d.seen[id]; ok {
			delete(d.seen, id)
			return
		}
	}
}

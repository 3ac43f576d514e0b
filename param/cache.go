package param

import (
	"context"
	"sync"
)

// FrameLoader is the store-side source of frame parameter records. Loading a
// nonexistent frame returns errs.ErrFrameNotFound.
type FrameLoader interface {
	LoadFrameParams(ctx context.Context, frameNum int) (*FrameParams, error)
	LoadAllFrameParams(ctx context.Context) (map[int]*FrameParams, error)
}

// Cache is the in-process cache of per-frame parameters for one open file
// handle.
//
// Entries are pinned for the life of the handle: they are evicted only by
// Invalidate (called by the writer immediately after updating a frame) or
// InvalidateAll. The file is single-writer, so a synchronous invalidation
// before the writer's next read is all the discipline required; the mutex
// exists for concurrent readers, not writer coordination.
type Cache struct {
	loader FrameLoader

	mu      sync.RWMutex
	entries map[int]*FrameParams
}

// NewCache creates a cache over the given loader.
func NewCache(loader FrameLoader) *Cache {
	return &Cache{
		loader:  loader,
		entries: make(map[int]*FrameParams),
	}
}

// Get returns the frame's parameters, loading and caching them on first use.
// A nonexistent frame returns errs.ErrFrameNotFound; the caller decides
// whether that is fatal.
func (c *Cache) Get(ctx context.Context, frameNum int) (*FrameParams, error) {
	c.mu.RLock()
	p, ok := c.entries[frameNum]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := c.loader.LoadFrameParams(ctx, frameNum)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[frameNum] = p
	c.mu.Unlock()

	return p, nil
}

// Invalidate evicts one frame's entry. The writer calls this synchronously
// after updating that frame's parameters, before any subsequent read.
func (c *Cache) Invalidate(frameNum int) {
	c.mu.Lock()
	delete(c.entries, frameNum)
	c.mu.Unlock()
}

// InvalidateAll evicts every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[int]*FrameParams)
	c.mu.Unlock()
}

// Preload bulk-loads every frame's parameters in one store round-trip.
// Full-file operations call this first to avoid one query per frame.
func (c *Cache) Preload(ctx context.Context) error {
	all, err := c.loader.LoadAllFrameParams(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	for frameNum, p := range all {
		c.entries[frameNum] = p
	}
	c.mu.Unlock()

	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

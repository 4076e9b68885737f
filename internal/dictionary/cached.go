package dictionary

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"stembed/internal/command"
	"stembed/internal/stroke"
)

// DefaultCacheSize is the number of outlines Cached remembers.
const DefaultCacheSize = 4096

type cacheEntry[O any] struct {
	list command.List[O]
	ok   bool
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits   uint64
	Misses uint64
	Size   int
}

// Cached remembers the lookups of a slower dictionary, misses included.
type Cached[O any] struct {
	inner  Dictionary[O]
	cache  *lru.Cache[string, cacheEntry[O]]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCached wraps inner with an LRU cache of size entries.
func NewCached[O any](inner Dictionary[O], size int) (*Cached[O], error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, cacheEntry[O]](size)
	if err != nil {
		return nil, fmt.Errorf("create lookup cache: %w", err)
	}
	return &Cached[O]{inner: inner, cache: cache}, nil
}

// Lookup implements Dictionary.
func (c *Cached[O]) Lookup(ctx context.Context, outline stroke.Outline) (command.List[O], bool) {
	key := outline.Key()
	if e, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return e.list, e.ok
	}
	c.misses.Add(1)

	list, ok := c.inner.Lookup(ctx, outline)
	// a cancelled lookup is not evidence that the outline is absent
	if ctx.Err() == nil {
		c.cache.Add(key, cacheEntry[O]{list: list, ok: ok})
	}
	return list, ok
}

// FallbackCommands implements Dictionary.
func (c *Cached[O]) FallbackCommands(s stroke.Stroke) command.List[O] {
	return c.inner.FallbackCommands(s)
}

// LongestOutlineLength implements Dictionary.
func (c *Cached[O]) LongestOutlineLength() int {
	return c.inner.LongestOutlineLength()
}

// Purge drops every cached lookup.
func (c *Cached[O]) Purge() {
	c.cache.Purge()
}

// Stats returns cache counters.
func (c *Cached[O]) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.cache.Len(),
	}
}

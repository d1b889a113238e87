package embedcache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultSize is the number of texts kept when no size is configured
const DefaultSize = 1024

// Embedder generates an embedding for text
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Observer is told about every lookup
type Observer interface {
	ObserveCache(cacheType string, hit bool)
}

// Cache memoizes embeddings by exact text. Concurrent misses for the same
// text share one upstream call, and errors are never stored.
type Cache struct {
	next     Embedder
	entries  *lru.Cache[string, []float32]
	group    singleflight.Group
	observer Observer
}

func New(next Embedder, size int, observer Observer) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	entries, _ := lru.New[string, []float32](size)
	return &Cache{next: next, entries: entries, observer: observer}
}

// GenerateEmbedding returns a copy of the cached vector, or asks the wrapped
// embedder on a miss.
func (c *Cache) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.entries.Get(text); ok {
		c.observe(true)
		return clone(v), nil
	}
	c.observe(false)

	val, err, _ := c.group.Do(text, func() (interface{}, error) {
		v, err := c.next.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		c.entries.Add(text, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(val.([]float32)), nil
}

// Len reports the number of cached texts
func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) observe(hit bool) {
	if c.observer != nil {
		c.observer.ObserveCache("embedding", hit)
	}
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

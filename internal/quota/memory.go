package quota

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryCounter keeps quota counters in process. Counts are per replica.
type MemoryCounter struct {
	store *cache.Cache
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{store: cache.New(cache.NoExpiration, 10*time.Minute)}
}

func (c *MemoryCounter) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	// Add is a no-op when the key already exists
	_ = c.store.Add(key, int64(0), ttl)
	return c.store.IncrementInt64(key, 1)
}

func (c *MemoryCounter) Decr(_ context.Context, key string) error {
	_, err := c.store.DecrementInt64(key, 1)
	return err
}

// Get returns the current count, 0 when the key does not exist
func (c *MemoryCounter) Get(_ context.Context, key string) (int64, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return 0, nil
	}
	return v.(int64), nil
}

package graph

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/aretw0/parley/pkg/handler"
	"github.com/aretw0/parley/pkg/ports"
)

// Cache keeps built graphs keyed by workflow source.
// A ttl of zero keeps them until Invalidate is called.
type Cache struct {
	mu    sync.Mutex
	cache *gocache.Cache
	ttl   time.Duration
}

// NewCache creates an empty graph cache.
func NewCache(ttl time.Duration) *Cache {
	exp := gocache.NoExpiration
	if ttl > 0 {
		exp = ttl
	}
	return &Cache{cache: gocache.New(exp, 10*time.Minute), ttl: exp}
}

// Get returns the cached graph for the loader's source, building it on a miss.
// Concurrent misses for the same cache build once.
func (c *Cache) Get(ctx context.Context, loader ports.WorkflowLoader, reg *handler.Registry) (*Graph, error) {
	if g, ok := c.lookup(loader.Source()); ok {
		return g, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.lookup(loader.Source()); ok {
		return g, nil
	}

	g, err := Load(ctx, loader, reg)
	if err != nil {
		return nil, err
	}
	c.cache.Set(loader.Source(), g, c.ttl)
	return g, nil
}

// Invalidate drops the graph built from source.
func (c *Cache) Invalidate(source string) {
	c.cache.Delete(source)
}

func (c *Cache) lookup(source string) (*Graph, bool) {
	v, found := c.cache.Get(source)
	if !found {
		return nil, false
	}
	return v.(*Graph), true
}

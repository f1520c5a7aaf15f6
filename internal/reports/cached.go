package reports

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"finboard/internal/cache"
	"finboard/internal/core"
	applog "finboard/internal/log"
)

// DefaultStaleTime is how long a payload is served from memory before the
// next read goes upstream.
const DefaultStaleTime = 5 * time.Minute

// sharedFetchTimeout bounds a load that outlives the caller that started it.
const sharedFetchTimeout = time.Minute

// CachedFetcher keeps recent payloads in an LRU cache and collapses
// concurrent loads of the same query into one upstream call.
type CachedFetcher struct {
	next   Fetcher
	cache  *cache.LRUCache[[]byte]
	group  singleflight.Group
	logger *applog.Logger
}

// NewCachedFetcher wraps next. A zero ttl means DefaultStaleTime.
func NewCachedFetcher(next Fetcher, size int, ttl time.Duration) *CachedFetcher {
	if ttl <= 0 {
		ttl = DefaultStaleTime
	}
	return &CachedFetcher{
		next:   next,
		cache:  cache.NewLRUCache[[]byte](size, ttl),
		logger: applog.WithComponent(applog.ComponentCache),
	}
}

func (c *CachedFetcher) Fetch(ctx context.Context, q core.Query) ([]byte, error) {
	key := q.Key()
	if body, ok := c.cache.Get(key); ok {
		c.logger.DebugContext(ctx, "Payload served from cache", applog.FieldQueryKey, key)
		return body, nil
	}

	// The load is shared, so it must not end when the caller that started
	// it goes away. Each caller still stops waiting on its own ctx.
	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		body, err := c.next.Fetch(fctx, q)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, body)
		return body, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.DebugContext(ctx, "Joined in-flight fetch", applog.FieldQueryKey, key)
		}
		return res.Val.([]byte), nil
	}
}

// Invalidate drops the cached payload of q.
func (c *CachedFetcher) Invalidate(q core.Query) {
	key := q.Key()
	c.cache.Delete(key)
	c.group.Forget(key)
}

// InvalidateEndpoint drops every cached payload of an endpoint.
func (c *CachedFetcher) InvalidateEndpoint(e core.Endpoint) int {
	c.cache.Delete(string(e))
	return c.cache.DeletePrefix(string(e) + "?")
}

// Cache exposes the payload cache for expiry sweeps.
func (c *CachedFetcher) Cache() *cache.LRUCache[[]byte] { return c.cache }

var (
	_ Fetcher     = (*CachedFetcher)(nil)
	_ Invalidator = (*CachedFetcher)(nil)
)

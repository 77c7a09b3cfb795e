package routing

import (
	"context"
	"log/slog"
	"time"

	"remitroute/internal/domain"
)

// defaultCacheTTL bounds route staleness when no TTL is configured.
const defaultCacheTTL = 5 * time.Minute

// CacheStore persists candidate lists under corridor keys with a TTL.
// The memory and redis adapters implement it.
type CacheStore interface {
	// Get returns the stored list and whether a live entry existed.
	Get(ctx context.Context, key string) ([]domain.CandidateRoute, bool, error)
	// Set stores routes under key for ttl. An empty list is a valid entry.
	Set(ctx context.Context, key string, routes []domain.CandidateRoute, ttl time.Duration) error
}

// Discoverer produces candidates on a cache miss.
type Discoverer interface {
	Discover(ctx context.Context, corridor domain.Corridor) []domain.CandidateRoute
}

var _ Discoverer = (*Discovery)(nil)

// RouteCache is the read-through corridor cache. Entries hold the
// post-filter, pre-scoring candidate list; within the TTL the stored list is
// returned unchanged, staleness being an accepted trade-off. Store failures
// never fail a payment: the cache degrades to direct discovery.
type RouteCache struct {
	store     CacheStore
	discovery Discoverer
	ttl       time.Duration
	bus       domain.EventBus
	logger    *slog.Logger
}

// NewRouteCache creates a read-through cache over store and discovery.
func NewRouteCache(store CacheStore, discovery Discoverer, ttl time.Duration, bus domain.EventBus, logger *slog.Logger) *RouteCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RouteCache{store: store, discovery: discovery, ttl: ttl, bus: bus, logger: logger}
}

// Candidates returns the corridor's candidate list and whether it was served
// from cache. Concurrent misses for the same expired key may both discover;
// last writer wins, which is acceptable because entries are immutable and
// replaced wholesale.
func (c *RouteCache) Candidates(ctx context.Context, corridor domain.Corridor) ([]domain.CandidateRoute, bool) {
	key := corridor.Key()

	routes, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("route cache read failed, bypassing cache", "key", key, "error", err)
	} else if ok {
		return routes, true
	}

	routes = c.discovery.Discover(ctx, corridor)
	if err := c.store.Set(ctx, key, routes, c.ttl); err != nil {
		c.logger.Warn("route cache write failed", "key", key, "error", err)
	} else {
		publishEvent(c.bus, ctx, domain.EventCacheRefreshed, "", map[string]any{
			"corridor":   key,
			"candidates": len(routes),
		})
	}
	return routes, false
}

// TTL returns the configured entry lifetime.
func (c *RouteCache) TTL() time.Duration { return c.ttl }

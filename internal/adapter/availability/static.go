// Package availability tracks which providers are currently able to accept
// transfers.
package availability

import (
	"context"
	"sort"
	"sync"
)

// StaticChecker holds a mutable down-set. Every provider is available unless
// marked down; discovery drops any candidate with an unavailable leg.
type StaticChecker struct {
	mu   sync.RWMutex
	down map[string]bool
}

// NewStaticChecker creates a checker with the given providers marked down.
func NewStaticChecker(down ...string) *StaticChecker {
	c := &StaticChecker{down: make(map[string]bool, len(down))}
	for _, id := range down {
		c.down[id] = true
	}
	return c
}

// ProviderAvailable reports whether providerID can accept transfers.
func (c *StaticChecker) ProviderAvailable(_ context.Context, providerID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.down[providerID]
}

// MarkDown takes a provider out of rotation.
func (c *StaticChecker) MarkDown(providerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.down[providerID] = true
}

// MarkUp returns a provider to rotation.
func (c *StaticChecker) MarkUp(providerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.down, providerID)
}

// Down lists the providers currently out of rotation, sorted for stable
// health reports.
func (c *StaticChecker) Down() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.down))
	for id := range c.down {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

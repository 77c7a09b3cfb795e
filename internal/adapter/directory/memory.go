// Package directory provides the provider link directory backing route
// discovery. The memory backend serves seeded deployments and tests; the
// sqlite backend persists links across restarts.
package directory

import (
	"context"
	"sync"

	"remitroute/internal/domain"
)

// MemoryDirectory holds provider links in process memory. Reads vastly
// outnumber writes; writes only happen at seed time and through operator
// tooling.
type MemoryDirectory struct {
	mu    sync.RWMutex
	links []domain.RouteLink
}

// NewMemoryDirectory creates a directory seeded with the given links.
// Every link is validated; a bad seed fails startup rather than surfacing
// as missing routes later.
func NewMemoryDirectory(links ...domain.RouteLink) (*MemoryDirectory, error) {
	d := &MemoryDirectory{links: make([]domain.RouteLink, 0, len(links))}
	for _, l := range links {
		if err := d.Add(l); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Add validates and appends one link.
func (d *MemoryDirectory) Add(link domain.RouteLink) error {
	if err := link.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	d.links = append(d.links, link)
	d.mu.Unlock()
	return nil
}

// DirectLinks returns links spanning the corridor exactly, countries and
// currencies both.
func (d *MemoryDirectory) DirectLinks(_ context.Context, corridor domain.Corridor) ([]domain.RouteLink, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []domain.RouteLink
	for _, l := range d.links {
		if l.FromCountry == corridor.FromCountry && l.ToCountry == corridor.ToCountry &&
			l.FromCurrency == corridor.FromCurrency && l.ToCurrency == corridor.ToCurrency {
			out = append(out, l)
		}
	}
	return out, nil
}

// LinksFrom returns all links leaving country denominated in currency.
func (d *MemoryDirectory) LinksFrom(_ context.Context, country domain.Country, currency domain.Currency) ([]domain.RouteLink, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []domain.RouteLink
	for _, l := range d.links {
		if l.FromCountry == country && l.FromCurrency == currency {
			out = append(out, l)
		}
	}
	return out, nil
}

// Len returns the number of links in the directory.
func (d *MemoryDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.links)
}

// Package fx provides exchange rate sources for pricing route legs that do
// not quote their own rate.
package fx

import (
	"context"
	"strings"
	"sync"

	"remitroute/internal/domain"
)

// MemoryRateSource serves retention ratios from a static table keyed by
// currency pair. Rates are directional: the KES->UGX entry says nothing
// about UGX->KES, since corridor liquidity differs by direction.
type MemoryRateSource struct {
	mu    sync.RWMutex
	rates map[string]float64
}

// NewMemoryRateSource creates a source with no pairs loaded.
func NewMemoryRateSource() *MemoryRateSource {
	return &MemoryRateSource{rates: make(map[string]float64)}
}

// SetRate records the retention ratio for one directed pair. Codes are
// uppercased; a non-positive rate removes the pair.
func (s *MemoryRateSource) SetRate(from, to domain.Currency, rate float64) {
	key := pairKey(from, to)
	s.mu.Lock()
	defer s.mu.Unlock()
	if rate <= 0 {
		delete(s.rates, key)
		return
	}
	s.rates[key] = rate
}

// ExchangeRate returns the retention ratio for the pair. A same-currency
// pair is always 1.0: nothing is converted, nothing is lost.
func (s *MemoryRateSource) ExchangeRate(_ context.Context, from, to domain.Currency) (float64, bool) {
	if strings.EqualFold(string(from), string(to)) {
		return 1.0, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rate, ok := s.rates[pairKey(from, to)]
	return rate, ok
}

// Len returns the number of directed pairs loaded.
func (s *MemoryRateSource) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rates)
}

func pairKey(from, to domain.Currency) string {
	return strings.ToUpper(string(from)) + ":" + strings.ToUpper(string(to))
}

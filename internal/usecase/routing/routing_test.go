package routing

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"remitroute/internal/domain"
)

// --- Mocks ---

// fakeDirectory serves links from a static slice, filtering like the real
// directory adapters do.
type fakeDirectory struct {
	mu        sync.Mutex
	links     []domain.RouteLink
	directErr error
	fromErr   error
	calls     int
}

func (f *fakeDirectory) DirectLinks(_ context.Context, corridor domain.Corridor) ([]domain.RouteLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.directErr != nil {
		return nil, f.directErr
	}
	var out []domain.RouteLink
	for _, l := range f.links {
		if l.FromCountry == corridor.FromCountry && l.ToCountry == corridor.ToCountry &&
			l.FromCurrency == corridor.FromCurrency && l.ToCurrency == corridor.ToCurrency {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeDirectory) LinksFrom(_ context.Context, country domain.Country, currency domain.Currency) ([]domain.RouteLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fromErr != nil {
		return nil, f.fromErr
	}
	var out []domain.RouteLink
	for _, l := range f.links {
		if l.FromCountry == country && l.FromCurrency == currency {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeRates struct {
	rates map[string]float64 // "KES:UGX" -> retention
}

func (f *fakeRates) ExchangeRate(_ context.Context, from, to domain.Currency) (float64, bool) {
	r, ok := f.rates[string(from)+":"+string(to)]
	return r, ok
}

type fakeAvailability struct {
	down map[string]bool
}

func (f *fakeAvailability) ProviderAvailable(_ context.Context, providerID string) bool {
	return !f.down[providerID]
}

type fakeCompliance struct {
	blockedProviders map[string]bool
	reasons          []string
}

func (f *fakeCompliance) CheckRoute(_ context.Context, route domain.CandidateRoute, _, _ domain.Country) (bool, []string) {
	for _, p := range route.Providers {
		if f.blockedProviders[p] {
			return false, f.reasons
		}
	}
	return true, nil
}

type fakePolicy struct {
	name       string
	chooseFunc func(ctx context.Context, features []float64, candidates int) (int, error)
}

func (f *fakePolicy) Choose(ctx context.Context, features []float64, candidates int) (int, error) {
	return f.chooseFunc(ctx, features, candidates)
}

func (f *fakePolicy) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

type storedEntry struct {
	routes []domain.CandidateRoute
	ttl    time.Duration
}

// fakeStore is an always-live cache store; expiry is simulated by deleting
// entries from the map.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]storedEntry
	getErr  error
	setErr  error
	sets    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]storedEntry)}
}

func (f *fakeStore) Get(_ context.Context, key string) ([]domain.CandidateRoute, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	e, ok := f.entries[key]
	return e.routes, ok, nil
}

func (f *fakeStore) Set(_ context.Context, key string, routes []domain.CandidateRoute, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[key] = storedEntry{routes: routes, ttl: ttl}
	f.sets++
	return nil
}

func (f *fakeStore) expire(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
}

type fakeDiscoverer struct {
	mu     sync.Mutex
	calls  int
	routes []domain.CandidateRoute
}

func (f *fakeDiscoverer) Discover(_ context.Context, _ domain.Corridor) []domain.CandidateRoute {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.routes
}

func (f *fakeDiscoverer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// --- Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func kesToUgx() domain.Corridor {
	return domain.Corridor{
		FromCountry: "KE", ToCountry: "UG",
		FromCurrency: "KES", ToCurrency: "UGX",
	}
}

func testIntent(amount float64) domain.PaymentIntent {
	return domain.PaymentIntent{
		ID:       "intent-1",
		Amount:   amount,
		Corridor: kesToUgx(),
	}
}

// mkLink builds a healthy link; tests override the fields they exercise.
func mkLink(provider string, from, to domain.Country, fromCur, toCur domain.Currency) domain.RouteLink {
	return domain.RouteLink{
		Provider:        provider,
		Kind:            domain.ProviderMobileMoney,
		FromCountry:     from,
		ToCountry:       to,
		FromCurrency:    fromCur,
		ToCurrency:      toCur,
		Fee:             2,
		ExchangeRate:    0.98,
		DeliveryMinutes: 30,
		SuccessRate:     0.95,
	}
}

// mkCandidate builds a single-hop candidate for scoring and selection tests.
func mkCandidate(provider string, fee, rate, minutes, success float64) domain.CandidateRoute {
	corridor := kesToUgx()
	return domain.CandidateRoute{
		ID:                       domain.RouteID([]string{provider}, corridor),
		Corridor:                 corridor,
		Providers:                []string{provider},
		Kind:                     domain.ProviderMobileMoney,
		ExchangeRate:             rate,
		Fee:                      fee,
		EstimatedDeliveryMinutes: minutes,
		HistoricalSuccessRate:    success,
		Hops:                     1,
	}
}

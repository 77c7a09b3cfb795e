package routing

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"remitroute/internal/domain"
)

// Directory is the provider directory as discovery consumes it. The memory
// and sqlite adapters implement it.
type Directory interface {
	// DirectLinks returns single-leg links that span the corridor exactly.
	DirectLinks(ctx context.Context, corridor domain.Corridor) ([]domain.RouteLink, error)
	// LinksFrom returns all links leaving country denominated in currency.
	LinksFrom(ctx context.Context, country domain.Country, currency domain.Currency) ([]domain.RouteLink, error)
}

// DiscoveryConfig toggles and bounds the three candidate strategies.
type DiscoveryConfig struct {
	Direct             bool
	Hub                bool
	MultiHop           bool
	MaxHops            int
	Hubs               []domain.Country
	MinSuccessRate     float64
	MaxDeliveryMinutes float64
}

// DiscoveryDeps holds injected collaborators for discovery.
type DiscoveryDeps struct {
	Directory    Directory
	Rates        domain.RateSource          // optional, nil = links must carry their own rate
	Availability domain.AvailabilityChecker // optional, nil = every provider available
	Logger       *slog.Logger
}

// Discovery produces the deduplicated, hard-filtered union of candidate
// routes for a corridor. It never fails a payment: directory trouble is
// logged and shrinks the candidate set, down to possibly zero.
type Discovery struct {
	cfg  DiscoveryConfig
	deps DiscoveryDeps
}

// NewDiscovery creates a Discovery. Zero bounds fall back to defaults.
func NewDiscovery(cfg DiscoveryConfig, deps DiscoveryDeps) *Discovery {
	if cfg.MaxHops < 2 {
		cfg.MaxHops = 3
	}
	if cfg.MaxDeliveryMinutes <= 0 {
		cfg.MaxDeliveryMinutes = 3 * 24 * 60
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Discovery{cfg: cfg, deps: deps}
}

// Discover runs the enabled strategies concurrently, unions their output in
// strategy order (direct, hub, multi-hop) keeping the first sighting of each
// route, and applies the hard filters.
func (d *Discovery) Discover(ctx context.Context, corridor domain.Corridor) []domain.CandidateRoute {
	var direct, hub, multi []domain.CandidateRoute

	g, gctx := errgroup.WithContext(ctx)
	if d.cfg.Direct {
		g.Go(func() error {
			var err error
			direct, err = d.discoverDirect(gctx, corridor)
			return err
		})
	}
	if d.cfg.Hub {
		g.Go(func() error {
			var err error
			hub, err = d.discoverHub(gctx, corridor)
			return err
		})
	}
	if d.cfg.MultiHop {
		g.Go(func() error {
			var err error
			multi, err = d.discoverMultiHop(gctx, corridor)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		d.deps.Logger.Warn("route discovery degraded",
			"corridor", corridor.Key(), "error", err)
	}

	seen := make(map[string]bool)
	union := make([]domain.CandidateRoute, 0, len(direct)+len(hub)+len(multi))
	for _, batch := range [][]domain.CandidateRoute{direct, hub, multi} {
		for _, c := range batch {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			union = append(union, c)
		}
	}

	candidates := d.filter(ctx, union)
	d.deps.Logger.Debug("route discovery finished",
		"corridor", corridor.Key(),
		"direct", len(direct), "hub", len(hub), "multi_hop", len(multi),
		"after_filters", len(candidates))
	return candidates
}

// discoverDirect finds single-leg candidates spanning the corridor.
func (d *Discovery) discoverDirect(ctx context.Context, corridor domain.Corridor) ([]domain.CandidateRoute, error) {
	links, err := d.deps.Directory.DirectLinks(ctx, corridor)
	if err != nil {
		return nil, domain.WrapOp("discovery.direct", err)
	}
	out := make([]domain.CandidateRoute, 0, len(links))
	for _, l := range links {
		if c, ok := d.candidateFromLegs(ctx, corridor, []domain.RouteLink{l}); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// discoverHub finds two-leg candidates through the configured intermediary
// markets. A hub equal to either corridor endpoint is skipped.
func (d *Discovery) discoverHub(ctx context.Context, corridor domain.Corridor) ([]domain.CandidateRoute, error) {
	first, err := d.deps.Directory.LinksFrom(ctx, corridor.FromCountry, corridor.FromCurrency)
	if err != nil {
		return nil, domain.WrapOp("discovery.hub", err)
	}

	var out []domain.CandidateRoute
	for _, hub := range d.cfg.Hubs {
		if hub == corridor.FromCountry || hub == corridor.ToCountry {
			continue
		}
		for _, l1 := range first {
			if l1.ToCountry != hub {
				continue
			}
			second, err := d.deps.Directory.LinksFrom(ctx, hub, l1.ToCurrency)
			if err != nil {
				return out, domain.WrapOp("discovery.hub", err)
			}
			for _, l2 := range second {
				if l2.ToCountry != corridor.ToCountry || l2.ToCurrency != corridor.ToCurrency {
					continue
				}
				if c, ok := d.candidateFromLegs(ctx, corridor, []domain.RouteLink{l1, l2}); ok {
					out = append(out, c)
				}
			}
		}
	}
	return out, nil
}

// pathState is one frontier entry of the multi-hop search.
type pathState struct {
	country  domain.Country
	currency domain.Currency
	legs     []domain.RouteLink
}

// discoverMultiHop runs a breadth-first search over the link graph, bounded
// by MaxHops, revisiting no country within a path. Two-leg paths duplicate
// hub results for configured hubs; union dedup keeps the hub sighting.
func (d *Discovery) discoverMultiHop(ctx context.Context, corridor domain.Corridor) ([]domain.CandidateRoute, error) {
	var out []domain.CandidateRoute
	queue := []pathState{{country: corridor.FromCountry, currency: corridor.FromCurrency}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		links, err := d.deps.Directory.LinksFrom(ctx, cur.country, cur.currency)
		if err != nil {
			return out, domain.WrapOp("discovery.multi_hop", err)
		}
		for _, l := range links {
			if d.visits(cur.legs, l.ToCountry) || l.ToCountry == corridor.FromCountry {
				continue
			}
			legs := append(append([]domain.RouteLink{}, cur.legs...), l)
			if l.ToCountry == corridor.ToCountry && l.ToCurrency == corridor.ToCurrency {
				if len(legs) >= 2 {
					if c, ok := d.candidateFromLegs(ctx, corridor, legs); ok {
						out = append(out, c)
					}
				}
				continue
			}
			if len(legs) < d.cfg.MaxHops {
				queue = append(queue, pathState{country: l.ToCountry, currency: l.ToCurrency, legs: legs})
			}
		}
	}
	return out, nil
}

func (d *Discovery) visits(legs []domain.RouteLink, country domain.Country) bool {
	for _, l := range legs {
		if l.ToCountry == country {
			return true
		}
	}
	return false
}

// candidateFromLegs folds a leg chain into one candidate: fees add, rates
// and success probabilities multiply, delivery times add. Legs without a
// quoted rate are priced through the FX source; an unpriceable leg drops
// the whole candidate.
func (d *Discovery) candidateFromLegs(ctx context.Context, corridor domain.Corridor, legs []domain.RouteLink) (domain.CandidateRoute, bool) {
	providers := make([]string, 0, len(legs))
	var fee, minutes float64
	rate, success := 1.0, 1.0

	for _, leg := range legs {
		legRate := leg.ExchangeRate
		if legRate == 0 {
			if d.deps.Rates == nil {
				return domain.CandidateRoute{}, false
			}
			quoted, ok := d.deps.Rates.ExchangeRate(ctx, leg.FromCurrency, leg.ToCurrency)
			if !ok {
				d.deps.Logger.Debug("dropping unpriceable candidate",
					"provider", leg.Provider, "from", leg.FromCurrency, "to", leg.ToCurrency)
				return domain.CandidateRoute{}, false
			}
			legRate = quoted
		}
		providers = append(providers, leg.Provider)
		fee += leg.Fee
		minutes += leg.DeliveryMinutes
		rate *= legRate
		success *= domain.Clamp01(leg.SuccessRate)
	}

	c := domain.CandidateRoute{
		ID:                       domain.RouteID(providers, corridor),
		Corridor:                 corridor,
		Providers:                providers,
		Kind:                     legs[0].Kind,
		ExchangeRate:             rate,
		Fee:                      fee,
		EstimatedDeliveryMinutes: minutes,
		HistoricalSuccessRate:    success,
		Hops:                     len(legs),
	}
	return c, true
}

// filter applies the hard candidate filters: minimum success rate, maximum
// delivery time, and the external availability check over every provider in
// the chain.
func (d *Discovery) filter(ctx context.Context, candidates []domain.CandidateRoute) []domain.CandidateRoute {
	out := make([]domain.CandidateRoute, 0, len(candidates))
	for _, c := range candidates {
		if c.HistoricalSuccessRate < d.cfg.MinSuccessRate {
			continue
		}
		if c.EstimatedDeliveryMinutes > d.cfg.MaxDeliveryMinutes {
			continue
		}
		if !d.available(ctx, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (d *Discovery) available(ctx context.Context, c domain.CandidateRoute) bool {
	if d.deps.Availability == nil {
		return true
	}
	for _, p := range c.Providers {
		if !d.deps.Availability.ProviderAvailable(ctx, p) {
			return false
		}
	}
	return true
}

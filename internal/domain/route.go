package domain

import (
	"fmt"
	"strings"
)

// ProviderKind tags the settlement rail a provider operates on. Route
// execution is dispatched on the kind of the route's first leg.
type ProviderKind string

const (
	ProviderMobileMoney ProviderKind = "mobile_money"
	ProviderBank        ProviderKind = "bank"
	ProviderBridge      ProviderKind = "bridge"
)

// ValidProviderKind reports whether k is a known provider kind.
func ValidProviderKind(k ProviderKind) bool {
	switch k {
	case ProviderMobileMoney, ProviderBank, ProviderBridge:
		return true
	}
	return false
}

// RouteLink is one hop offered by a provider: funds enter in
// (FromCountry, FromCurrency) and arrive in (ToCountry, ToCurrency).
// Links are the raw material the discovery strategies combine into candidate
// routes.
type RouteLink struct {
	Provider        string       `json:"provider"`
	Kind            ProviderKind `json:"kind"`
	FromCountry     Country      `json:"from_country"`
	ToCountry       Country      `json:"to_country"`
	FromCurrency    Currency     `json:"from_currency"`
	ToCurrency      Currency     `json:"to_currency"`
	Fee             float64      `json:"fee"`           // flat fee in source currency units
	ExchangeRate    float64      `json:"exchange_rate"` // value retained vs mid-market (1.0 = no spread); 0 = provider quotes no rate, priced via the FX source
	DeliveryMinutes float64      `json:"delivery_minutes"`
	SuccessRate     float64      `json:"success_rate"` // historical, clamped to [0,1] on read
}

// CandidateRoute is one concrete way to move funds across a corridor, built
// from one or more links. Ephemeral: produced by discovery, consumed by
// scoring.
type CandidateRoute struct {
	ID                       string       `json:"id"` // stable identity: provider chain + corridor key
	Corridor                 Corridor     `json:"corridor"`
	Providers                []string     `json:"providers"`     // one per leg, in order
	Kind                     ProviderKind `json:"kind"`          // kind of the first leg, used for executor dispatch
	ExchangeRate             float64      `json:"exchange_rate"` // product of leg retention ratios; 0.98 means 2% lost to spread
	Fee                      float64      `json:"fee"`
	EstimatedDeliveryMinutes float64      `json:"estimated_delivery_minutes"`
	HistoricalSuccessRate    float64      `json:"historical_success_rate"`
	Hops                     int          `json:"hops"`
}

// RouteID builds the stable candidate identity used for deduplication and
// deterministic tie-breaking.
func RouteID(providers []string, corridor Corridor) string {
	return strings.Join(providers, ">") + "@" + corridor.Key()
}

// PrimaryProvider returns the provider executing the first leg, or "" for a
// malformed candidate.
func (r CandidateRoute) PrimaryProvider() string {
	if len(r.Providers) == 0 {
		return ""
	}
	return r.Providers[0]
}

// HasProvider reports whether any leg of the route is operated by provider.
func (r CandidateRoute) HasProvider(provider string) bool {
	for _, p := range r.Providers {
		if p == provider {
			return true
		}
	}
	return false
}

// ScoredRoute wraps a CandidateRoute with its per-dimension scores, the
// weighted total, and its position in the ranking. All scores are in [0,1].
type ScoredRoute struct {
	Route            CandidateRoute `json:"route"`
	CostScore        float64        `json:"cost_score"`
	SpeedScore       float64        `json:"speed_score"`
	ReliabilityScore float64        `json:"reliability_score"`
	ComplianceScore  float64        `json:"compliance_score"`
	TotalScore       float64        `json:"total_score"`
	Rank             int            `json:"rank"` // 1-based, dense
}

// RouteOptimizationResult is the per-request outcome of the optimization
// pipeline: the chosen route, the remaining ranked candidates, and
// discovery/cache metadata.
type RouteOptimizationResult struct {
	Selected       *ScoredRoute  `json:"selected"`
	Alternatives   []ScoredRoute `json:"alternatives"` // ranked order, selected excluded
	CacheHit       bool          `json:"cache_hit"`
	CandidateCount int           `json:"candidate_count"`
}

// Clamp01 clamps v to the closed interval [0,1]. Scores and historical
// success rates are normalized through it.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Validate checks a route link for structurally impossible values.
func (l RouteLink) Validate() error {
	if l.Provider == "" {
		return fmt.Errorf("%w: link provider must be set", ErrInvalidInput)
	}
	if !ValidProviderKind(l.Kind) {
		return fmt.Errorf("%w: unknown provider kind %q", ErrInvalidInput, l.Kind)
	}
	if l.Fee < 0 {
		return fmt.Errorf("%w: link fee must not be negative", ErrInvalidInput)
	}
	if l.ExchangeRate < 0 {
		return fmt.Errorf("%w: link exchange rate must not be negative", ErrInvalidInput)
	}
	if l.DeliveryMinutes < 0 {
		return fmt.Errorf("%w: link delivery minutes must not be negative", ErrInvalidInput)
	}
	return nil
}

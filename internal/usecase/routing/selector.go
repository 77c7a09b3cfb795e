package routing

import (
	"context"
	"log/slog"

	"remitroute/internal/domain"
)

// Policy is an optional learned selection policy. It receives the fixed
// shape feature vector and the number of live candidate blocks in it, and
// returns a 0-based index into the ranking, or a negative index to decline.
type Policy interface {
	Choose(ctx context.Context, features []float64, candidates int) (int, error)
	Name() string
}

// Selector picks the route a payment will execute on. Preferences are best
// effort, not hard constraints: when every candidate fails a preference
// filter the top-ranked route is used anyway. Only an empty ranking is an
// error.
type Selector struct {
	policy        Policy // optional
	maxCandidates int    // K, candidate blocks in the feature vector
	logger        *slog.Logger
}

// NewSelector creates a Selector. policy may be nil; the deterministic
// heuristic is always available as a fallback.
func NewSelector(policy Policy, maxCandidates int, logger *slog.Logger) *Selector {
	if maxCandidates < 1 {
		maxCandidates = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{policy: policy, maxCandidates: maxCandidates, logger: logger}
}

// Select returns the chosen route from a ranked list.
func (s *Selector) Select(ctx context.Context, ranked []domain.ScoredRoute, intent domain.PaymentIntent) (*domain.ScoredRoute, error) {
	if len(ranked) == 0 {
		return nil, domain.NewDomainError("selector.select", domain.ErrNoRouteAvailable,
			"no candidates for corridor "+intent.Corridor.Key())
	}

	valid := s.preferenceMask(ranked, intent.Preferences)

	if s.policy != nil {
		if pick := s.policyPick(ctx, ranked, valid, intent); pick != nil {
			return pick, nil
		}
	}

	for i := range ranked {
		if valid[i] {
			return &ranked[i], nil
		}
	}
	// Preferences filtered everything out; fall back to the overall best.
	return &ranked[0], nil
}

// preferenceMask marks, per ranked candidate, whether it passes the
// max-delivery, max-fee and preferred-provider filters.
func (s *Selector) preferenceMask(ranked []domain.ScoredRoute, p domain.PaymentPreferences) []bool {
	valid := make([]bool, len(ranked))
	for i, sr := range ranked {
		r := sr.Route
		switch {
		case p.MaxDeliveryMinutes > 0 && r.EstimatedDeliveryMinutes > p.MaxDeliveryMinutes:
		case p.MaxFee > 0 && r.Fee > p.MaxFee:
		case p.PreferredProvider != "" && !r.HasProvider(p.PreferredProvider):
		default:
			valid[i] = true
		}
	}
	return valid
}

// policyPick consults the learned policy. A policy error or out-of-range
// index falls back to the heuristic; a negative index means the policy
// declined to choose.
func (s *Selector) policyPick(ctx context.Context, ranked []domain.ScoredRoute, valid []bool, intent domain.PaymentIntent) *domain.ScoredRoute {
	count := len(ranked)
	if count > s.maxCandidates {
		count = s.maxCandidates
	}

	idx, err := s.policy.Choose(ctx, s.features(ranked, valid, intent), count)
	if err != nil {
		s.logger.Warn("selection policy failed, using heuristic",
			"policy", s.policy.Name(), "error", err)
		return nil
	}
	if idx < 0 || idx >= count {
		if idx >= count {
			s.logger.Debug("selection policy returned out-of-range index",
				"policy", s.policy.Name(), "index", idx, "candidates", count)
		}
		return nil
	}
	return &ranked[idx]
}

// features builds the fixed-shape policy input: the payment amount followed
// by K five-value candidate blocks [fee_pct, time_norm, reliability,
// compliance, valid], zero-padded past the last live candidate.
func (s *Selector) features(ranked []domain.ScoredRoute, valid []bool, intent domain.PaymentIntent) []float64 {
	features := make([]float64, 1+5*s.maxCandidates)
	features[0] = intent.Amount
	for i := 0; i < s.maxCandidates && i < len(ranked); i++ {
		sr := ranked[i]
		base := 1 + 5*i
		if intent.Amount > 0 {
			features[base] = sr.Route.Fee / intent.Amount
		}
		features[base+1] = 1 - sr.SpeedScore
		features[base+2] = sr.ReliabilityScore
		features[base+3] = sr.ComplianceScore
		if valid[i] {
			features[base+4] = 1
		}
	}
	return features
}

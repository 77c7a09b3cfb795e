package routing

import (
	"context"
	"log/slog"
	"sort"

	"remitroute/internal/domain"
)

// Weights are the four scoring dimension weights. They sum to 1.0; the
// config layer enforces that at load.
type Weights struct {
	Cost        float64
	Speed       float64
	Reliability float64
	Compliance  float64
}

// ScoringConfig parameterizes the multi-objective scorer.
type ScoringConfig struct {
	MaxCostPct         float64 // cost fraction scoring 0, default 0.05
	MaxDeliveryMinutes float64 // delivery time scoring 0, default 1440
	PriorityBoost      float64 // weight multiplier per prioritized dimension, default 3
	Weights            Weights
}

// Scorer computes per-dimension scores and a deterministic ranking.
type Scorer struct {
	cfg        ScoringConfig
	compliance domain.ComplianceChecker // optional, nil = every route compliant
	logger     *slog.Logger
}

// NewScorer creates a Scorer. Zero config fields fall back to defaults.
func NewScorer(cfg ScoringConfig, compliance domain.ComplianceChecker, logger *slog.Logger) *Scorer {
	if cfg.MaxCostPct <= 0 {
		cfg.MaxCostPct = 0.05
	}
	if cfg.MaxDeliveryMinutes <= 0 {
		cfg.MaxDeliveryMinutes = 1440
	}
	if cfg.PriorityBoost < 1 {
		cfg.PriorityBoost = 3
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = Weights{Cost: 0.30, Speed: 0.25, Reliability: 0.25, Compliance: 0.20}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{cfg: cfg, compliance: compliance, logger: logger}
}

// ScoreAndRank scores every candidate for this intent and returns them in
// ranking order: total score descending, reliability descending, candidate
// ID ascending. Identical inputs always yield identical ordering.
func (s *Scorer) ScoreAndRank(ctx context.Context, candidates []domain.CandidateRoute, intent domain.PaymentIntent) []domain.ScoredRoute {
	w := s.effectiveWeights(intent.Preferences)

	scored := make([]domain.ScoredRoute, 0, len(candidates))
	for _, c := range candidates {
		sr := domain.ScoredRoute{
			Route:            c,
			CostScore:        s.costScore(c, intent.Amount),
			SpeedScore:       s.speedScore(c),
			ReliabilityScore: domain.Clamp01(c.HistoricalSuccessRate),
			ComplianceScore:  s.complianceScore(ctx, c, intent),
		}
		sr.TotalScore = w.Cost*sr.CostScore +
			w.Speed*sr.SpeedScore +
			w.Reliability*sr.ReliabilityScore +
			w.Compliance*sr.ComplianceScore
		scored = append(scored, sr)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].TotalScore != scored[j].TotalScore {
			return scored[i].TotalScore > scored[j].TotalScore
		}
		if scored[i].ReliabilityScore != scored[j].ReliabilityScore {
			return scored[i].ReliabilityScore > scored[j].ReliabilityScore
		}
		return scored[i].Route.ID < scored[j].Route.ID
	})
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored
}

// costScore rates the total cost of moving the intent's amount: flat fees
// plus the value lost to the FX spread, as a fraction of the amount.
func (s *Scorer) costScore(c domain.CandidateRoute, amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	totalCostPct := (c.Fee + amount*(1-c.ExchangeRate)) / amount
	return domain.Clamp01(1 - totalCostPct/s.cfg.MaxCostPct)
}

func (s *Scorer) speedScore(c domain.CandidateRoute) float64 {
	return domain.Clamp01(1 - c.EstimatedDeliveryMinutes/s.cfg.MaxDeliveryMinutes)
}

// complianceScore is the single boolean gate projected onto [0,1]. Reasons
// are logged for audit and otherwise ignored.
func (s *Scorer) complianceScore(ctx context.Context, c domain.CandidateRoute, intent domain.PaymentIntent) float64 {
	if s.compliance == nil {
		return 1
	}
	ok, reasons := s.compliance.CheckRoute(ctx, c, intent.Corridor.FromCountry, intent.Corridor.ToCountry)
	if !ok {
		s.logger.Info("route failed compliance check",
			"route", c.ID, "corridor", intent.Corridor.Key(), "reasons", reasons)
		return 0
	}
	return 1
}

// effectiveWeights boosts the weight of each prioritized dimension and
// renormalizes so the weights still sum to 1.
func (s *Scorer) effectiveWeights(p domain.PaymentPreferences) Weights {
	w := s.cfg.Weights
	if !p.PrioritizeCost && !p.PrioritizeSpeed && !p.PrioritizeReliability {
		return w
	}
	if p.PrioritizeCost {
		w.Cost *= s.cfg.PriorityBoost
	}
	if p.PrioritizeSpeed {
		w.Speed *= s.cfg.PriorityBoost
	}
	if p.PrioritizeReliability {
		w.Reliability *= s.cfg.PriorityBoost
	}
	sum := w.Cost + w.Speed + w.Reliability + w.Compliance
	if sum <= 0 {
		return s.cfg.Weights
	}
	w.Cost /= sum
	w.Speed /= sum
	w.Reliability /= sum
	w.Compliance /= sum
	return w
}

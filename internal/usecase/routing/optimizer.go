package routing

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"remitroute/internal/domain"
	"remitroute/internal/infra/tracer"
)

// CandidateSource feeds the optimizer; in production it is the RouteCache.
type CandidateSource interface {
	Candidates(ctx context.Context, corridor domain.Corridor) ([]domain.CandidateRoute, bool)
}

var _ CandidateSource = (*RouteCache)(nil)

// Optimizer runs the full pipeline for one intent: candidates (cached),
// scoring, ranking, selection.
type Optimizer struct {
	source   CandidateSource
	scorer   *Scorer
	selector *Selector
	bus      domain.EventBus // optional
	logger   *slog.Logger
}

// NewOptimizer wires the pipeline stages together.
func NewOptimizer(source CandidateSource, scorer *Scorer, selector *Selector, bus domain.EventBus, logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{source: source, scorer: scorer, selector: selector, bus: bus, logger: logger}
}

// Optimize returns the selected route and the ranked alternatives for the
// intent. Scoring always runs fresh, even on a cache hit, because scores
// depend on the payment amount and preferences.
func (o *Optimizer) Optimize(ctx context.Context, intent domain.PaymentIntent) (*domain.RouteOptimizationResult, error) {
	ctx, span := tracer.StartSpan(ctx, "routing.optimize",
		trace.WithAttributes(
			tracer.StringAttr("corridor", intent.Corridor.Key()),
			tracer.Float64Attr("amount", intent.Amount),
		),
	)
	defer span.End()

	candidates, cacheHit := o.source.Candidates(ctx, intent.Corridor)
	span.SetAttributes(
		tracer.IntAttr("candidates", len(candidates)),
		tracer.StringAttr("cache", cacheLabel(cacheHit)),
	)
	if len(candidates) == 0 {
		err := domain.NewDomainError("routing.optimize", domain.ErrNoRouteAvailable,
			"no viable candidates for corridor "+intent.Corridor.Key())
		tracer.RecordError(span, err)
		return nil, err
	}

	ranked := o.scorer.ScoreAndRank(ctx, candidates, intent)
	selected, err := o.selector.Select(ctx, ranked, intent)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	alternatives := make([]domain.ScoredRoute, 0, len(ranked)-1)
	for _, sr := range ranked {
		if sr.Rank == selected.Rank {
			continue
		}
		alternatives = append(alternatives, sr)
	}

	o.logger.Info("route selected",
		"intent", intent.ID,
		"route", selected.Route.ID,
		"total_score", selected.TotalScore,
		"rank", selected.Rank,
		"cache_hit", cacheHit,
		"candidates", len(candidates),
	)
	publishEvent(o.bus, ctx, domain.EventRouteSelected, intent.ID, domain.RouteEventPayload{
		RouteID:        selected.Route.ID,
		Provider:       selected.Route.PrimaryProvider(),
		TotalScore:     selected.TotalScore,
		CacheHit:       cacheHit,
		CandidateCount: len(candidates),
	})

	tracer.SetOK(span)
	return &domain.RouteOptimizationResult{
		Selected:       selected,
		Alternatives:   alternatives,
		CacheHit:       cacheHit,
		CandidateCount: len(candidates),
	}, nil
}

func cacheLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remitroute/internal/domain"
	"remitroute/internal/usecase/eventbus"
)

type fakeOptimizer struct {
	optimizeFunc func(ctx context.Context, intent domain.PaymentIntent) (*domain.RouteOptimizationResult, error)
}

func (f *fakeOptimizer) Optimize(ctx context.Context, intent domain.PaymentIntent) (*domain.RouteOptimizationResult, error) {
	return f.optimizeFunc(ctx, intent)
}

type fakeExecutor struct {
	kind        domain.ProviderKind
	validateErr error
	executeFunc func(ctx context.Context, route domain.CandidateRoute, intent domain.PaymentIntent) (*domain.TransferReceipt, error)
}

func (f *fakeExecutor) Kind() domain.ProviderKind                   { return f.kind }
func (f *fakeExecutor) ValidateIntent(_ domain.PaymentIntent) error { return f.validateErr }
func (f *fakeExecutor) Execute(ctx context.Context, route domain.CandidateRoute, intent domain.PaymentIntent) (*domain.TransferReceipt, error) {
	return f.executeFunc(ctx, route, intent)
}

type fakeResolver struct {
	executors map[domain.ProviderKind]domain.TransferExecutor
}

func (f *fakeResolver) Resolve(kind domain.ProviderKind) (domain.TransferExecutor, error) {
	exec, ok := f.executors[kind]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return exec, nil
}

func mpesaRoute() domain.CandidateRoute {
	return domain.CandidateRoute{
		ID:        "mpesa@KE:UG:KES:UGX",
		Providers: []string{"mpesa"},
		Kind:      domain.ProviderMobileMoney,
		Corridor: domain.Corridor{
			FromCountry: "KE", ToCountry: "UG",
			FromCurrency: "KES", ToCurrency: "UGX",
		},
		ExchangeRate:             0.97,
		Fee:                      2.5,
		EstimatedDeliveryMinutes: 10,
		HistoricalSuccessRate:    0.99,
		Hops:                     1,
	}
}

func selectedResult(route domain.CandidateRoute) *domain.RouteOptimizationResult {
	return &domain.RouteOptimizationResult{
		Selected:       &domain.ScoredRoute{Route: route, TotalScore: 0.9, Rank: 1},
		CandidateCount: 1,
	}
}

func newTestAgent(opt RouteOptimizer, res ExecutorResolver, bus domain.EventBus) *PaymentAgent {
	return NewPaymentAgent(PaymentAgentDeps{
		Runtime:   NewAgentRuntime("payments", fastPolicy(), RuntimeDeps{Logger: testLogger(), Bus: bus}),
		Optimizer: opt,
		Executors: res,
		Bus:       bus,
		Logger:    testLogger(),
	})
}

func TestProcessPaymentSuccess(t *testing.T) {
	opt := &fakeOptimizer{optimizeFunc: func(_ context.Context, _ domain.PaymentIntent) (*domain.RouteOptimizationResult, error) {
		return selectedResult(mpesaRoute()), nil
	}}
	exec := &fakeExecutor{
		kind: domain.ProviderMobileMoney,
		executeFunc: func(_ context.Context, route domain.CandidateRoute, _ domain.PaymentIntent) (*domain.TransferReceipt, error) {
			return &domain.TransferReceipt{Handle: "mm-42", Provider: route.PrimaryProvider(), Finalized: true}, nil
		},
	}
	agent := newTestAgent(opt, &fakeResolver{executors: map[domain.ProviderKind]domain.TransferExecutor{
		domain.ProviderMobileMoney: exec,
	}}, nil)

	res := agent.ProcessPayment(context.Background(), testIntent())

	require.True(t, res.Success)
	receipt, ok := res.Payload.(*domain.TransferReceipt)
	require.True(t, ok, "payload should be a transfer receipt")
	assert.Equal(t, "mm-42", receipt.Handle)
	assert.Equal(t, "mpesa", receipt.Provider)
	assert.True(t, receipt.Finalized)
}

func TestProcessPaymentNormalizesCodes(t *testing.T) {
	var seen domain.Corridor
	opt := &fakeOptimizer{optimizeFunc: func(_ context.Context, intent domain.PaymentIntent) (*domain.RouteOptimizationResult, error) {
		seen = intent.Corridor
		return nil, domain.NewDomainError("routing.optimize", domain.ErrNoRouteAvailable, "empty")
	}}
	agent := newTestAgent(opt, &fakeResolver{}, nil)

	intent := testIntent()
	intent.Corridor = domain.Corridor{FromCountry: "ke", ToCountry: "ug", FromCurrency: "kes", ToCurrency: "ugx"}
	agent.ProcessPayment(context.Background(), intent)

	assert.Equal(t, domain.Country("KE"), seen.FromCountry)
	assert.Equal(t, domain.Country("UG"), seen.ToCountry)
	assert.Equal(t, domain.Currency("KES"), seen.FromCurrency)
	assert.Equal(t, domain.Currency("UGX"), seen.ToCurrency)
}

func TestProcessPaymentAssignsIntentID(t *testing.T) {
	var seenID string
	opt := &fakeOptimizer{optimizeFunc: func(_ context.Context, intent domain.PaymentIntent) (*domain.RouteOptimizationResult, error) {
		seenID = intent.ID
		return nil, domain.NewDomainError("routing.optimize", domain.ErrNoRouteAvailable, "empty")
	}}
	agent := newTestAgent(opt, &fakeResolver{}, nil)

	intent := testIntent()
	intent.ID = ""
	res := agent.ProcessPayment(context.Background(), intent)

	assert.NotEmpty(t, seenID)
	assert.Equal(t, seenID, res.IntentID)
}

func TestProcessPaymentNoRouteFailsFast(t *testing.T) {
	var calls atomic.Int32
	opt := &fakeOptimizer{optimizeFunc: func(_ context.Context, _ domain.PaymentIntent) (*domain.RouteOptimizationResult, error) {
		calls.Add(1)
		return nil, domain.NewDomainError("routing.optimize", domain.ErrNoRouteAvailable, "no candidates for corridor")
	}}
	agent := newTestAgent(opt, &fakeResolver{}, nil)

	res := agent.ProcessPayment(context.Background(), testIntent())

	assert.Equal(t, domain.TaskFailed, res.Status)
	assert.Equal(t, domain.CodeNoRouteAvailable, res.ErrorCode)
	assert.Equal(t, int32(1), calls.Load(), "an empty corridor is not retried")
}

func TestProcessPaymentNoExecutorForRail(t *testing.T) {
	opt := &fakeOptimizer{optimizeFunc: func(_ context.Context, _ domain.PaymentIntent) (*domain.RouteOptimizationResult, error) {
		return selectedResult(mpesaRoute()), nil
	}}
	agent := newTestAgent(opt, &fakeResolver{}, nil) // no executors registered

	res := agent.ProcessPayment(context.Background(), testIntent())

	assert.Equal(t, domain.TaskFailed, res.Status)
	assert.Equal(t, domain.CodeRouteOptimization, res.ErrorCode)
	assert.Contains(t, res.Message, `no executor for rail "mobile_money"`)
}

func TestProcessPaymentRailValidationRejects(t *testing.T) {
	opt := &fakeOptimizer{optimizeFunc: func(_ context.Context, _ domain.PaymentIntent) (*domain.RouteOptimizationResult, error) {
		return selectedResult(mpesaRoute()), nil
	}}
	exec := &fakeExecutor{
		kind:        domain.ProviderMobileMoney,
		validateErr: errors.New("amount exceeds wallet limit"),
	}
	agent := newTestAgent(opt, &fakeResolver{executors: map[domain.ProviderKind]domain.TransferExecutor{
		domain.ProviderMobileMoney: exec,
	}}, nil)

	res := agent.ProcessPayment(context.Background(), testIntent())

	assert.Equal(t, domain.TaskRejected, res.Status)
	assert.Equal(t, domain.CodeValidationFailed, res.ErrorCode)
	assert.Contains(t, res.Message, "wallet limit")
}

func TestProcessPaymentRetriesExecution(t *testing.T) {
	var attempts atomic.Int32
	opt := &fakeOptimizer{optimizeFunc: func(_ context.Context, _ domain.PaymentIntent) (*domain.RouteOptimizationResult, error) {
		return selectedResult(mpesaRoute()), nil
	}}
	exec := &fakeExecutor{
		kind: domain.ProviderMobileMoney,
		executeFunc: func(_ context.Context, _ domain.CandidateRoute, _ domain.PaymentIntent) (*domain.TransferReceipt, error) {
			if attempts.Add(1) < 3 {
				return nil, errors.New("wallet backend 503")
			}
			return &domain.TransferReceipt{Handle: "mm-7", Provider: "mpesa", Finalized: true}, nil
		},
	}
	agent := newTestAgent(opt, &fakeResolver{executors: map[domain.ProviderKind]domain.TransferExecutor{
		domain.ProviderMobileMoney: exec,
	}}, nil)

	res := agent.ProcessPayment(context.Background(), testIntent())

	require.True(t, res.Success)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestProcessPaymentInvalidIntentRejected(t *testing.T) {
	var calls atomic.Int32
	opt := &fakeOptimizer{optimizeFunc: func(_ context.Context, _ domain.PaymentIntent) (*domain.RouteOptimizationResult, error) {
		calls.Add(1)
		return selectedResult(mpesaRoute()), nil
	}}
	agent := newTestAgent(opt, &fakeResolver{}, nil)

	intent := testIntent()
	intent.Amount = 0
	res := agent.ProcessPayment(context.Background(), intent)

	assert.Equal(t, domain.TaskRejected, res.Status)
	assert.Equal(t, domain.CodeValidationFailed, res.ErrorCode)
	assert.Equal(t, int32(0), calls.Load(), "the pipeline must not run for an invalid intent")
}

func TestQuoteRouteSkipsSettlement(t *testing.T) {
	var executed atomic.Int32
	opt := &fakeOptimizer{optimizeFunc: func(_ context.Context, _ domain.PaymentIntent) (*domain.RouteOptimizationResult, error) {
		return selectedResult(mpesaRoute()), nil
	}}
	exec := &fakeExecutor{
		kind: domain.ProviderMobileMoney,
		executeFunc: func(_ context.Context, _ domain.CandidateRoute, _ domain.PaymentIntent) (*domain.TransferReceipt, error) {
			executed.Add(1)
			return &domain.TransferReceipt{}, nil
		},
	}
	agent := newTestAgent(opt, &fakeResolver{executors: map[domain.ProviderKind]domain.TransferExecutor{
		domain.ProviderMobileMoney: exec,
	}}, nil)

	res := agent.QuoteRoute(context.Background(), testIntent())

	require.True(t, res.Success)
	quote, ok := res.Payload.(*domain.RouteOptimizationResult)
	require.True(t, ok, "payload should be the optimization result")
	assert.Equal(t, "mpesa", quote.Selected.Route.PrimaryProvider())
	assert.Equal(t, int32(0), executed.Load(), "quoting must not move money")
}

func TestTransferExecutedEventPublished(t *testing.T) {
	bus := eventbus.New(testLogger())
	var events atomic.Int32
	bus.Subscribe(domain.EventTransferExecuted, func(_ context.Context, e domain.Event) {
		if e.IntentID == "intent-1" {
			events.Add(1)
		}
	})

	opt := &fakeOptimizer{optimizeFunc: func(_ context.Context, _ domain.PaymentIntent) (*domain.RouteOptimizationResult, error) {
		return selectedResult(mpesaRoute()), nil
	}}
	exec := &fakeExecutor{
		kind: domain.ProviderMobileMoney,
		executeFunc: func(_ context.Context, _ domain.CandidateRoute, _ domain.PaymentIntent) (*domain.TransferReceipt, error) {
			return &domain.TransferReceipt{Handle: "mm-1", Provider: "mpesa", Finalized: true}, nil
		},
	}
	agent := newTestAgent(opt, &fakeResolver{executors: map[domain.ProviderKind]domain.TransferExecutor{
		domain.ProviderMobileMoney: exec,
	}}, bus)

	res := agent.ProcessPayment(context.Background(), testIntent())
	require.True(t, res.Success)

	bus.Close()
	assert.Equal(t, int32(1), events.Load())
}

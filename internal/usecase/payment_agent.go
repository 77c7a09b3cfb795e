package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"remitroute/internal/domain"
)

// ExecutorResolver maps a route's settlement rail to its executor.
type ExecutorResolver interface {
	Resolve(kind domain.ProviderKind) (domain.TransferExecutor, error)
}

// RouteOptimizer is the optimization pipeline as the agent consumes it.
type RouteOptimizer interface {
	Optimize(ctx context.Context, intent domain.PaymentIntent) (*domain.RouteOptimizationResult, error)
}

// PaymentAgentDeps holds injected dependencies for the payment agent.
type PaymentAgentDeps struct {
	Runtime   *AgentRuntime
	Optimizer RouteOptimizer
	Executors ExecutorResolver
	Bus       domain.EventBus // optional
	Logger    *slog.Logger
}

// PaymentAgent processes payment intents end to end: route optimization
// followed by settlement on the selected rail, the whole pipeline running
// under the runtime's policy.
type PaymentAgent struct {
	deps PaymentAgentDeps
}

// NewPaymentAgent creates a payment agent and installs intent validation as
// the runtime's pre-flight hook.
func NewPaymentAgent(deps PaymentAgentDeps) *PaymentAgent {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Runtime != nil && deps.Runtime.deps.Validator == nil {
		deps.Runtime.SetValidator(func(ctx context.Context, intent domain.PaymentIntent) error {
			return intent.Validate()
		})
	}
	return &PaymentAgent{deps: deps}
}

// Runtime exposes the agent's runtime for monitoring and lifecycle control.
func (a *PaymentAgent) Runtime() *AgentRuntime { return a.deps.Runtime }

// ProcessPayment routes and settles one intent. All outcomes fold into the
// returned TaskResult; on success the payload is a *domain.TransferReceipt.
func (a *PaymentAgent) ProcessPayment(ctx context.Context, intent domain.PaymentIntent) domain.TaskResult {
	intent = intent.NormalizeCodes()
	if intent.ID == "" {
		intent.ID = newID()
	}
	return a.deps.Runtime.RunWithPolicy(ctx, intent, a.routeAndExecute)
}

// QuoteRoute runs route optimization without settlement, under the same
// runtime policy. On success the payload is a *domain.RouteOptimizationResult.
func (a *PaymentAgent) QuoteRoute(ctx context.Context, intent domain.PaymentIntent) domain.TaskResult {
	intent = intent.NormalizeCodes()
	if intent.ID == "" {
		intent.ID = newID()
	}
	return a.deps.Runtime.RunWithPolicy(ctx, intent, func(ctx context.Context, intent domain.PaymentIntent) (any, error) {
		return a.deps.Optimizer.Optimize(ctx, intent)
	})
}

// routeAndExecute is the work function submitted for a full payment:
// optimize, resolve the rail executor, validate against the rail, settle.
func (a *PaymentAgent) routeAndExecute(ctx context.Context, intent domain.PaymentIntent) (any, error) {
	result, err := a.deps.Optimizer.Optimize(ctx, intent)
	if err != nil {
		return nil, err
	}

	route := result.Selected.Route
	exec, err := a.deps.Executors.Resolve(route.Kind)
	if err != nil {
		// A selected route we cannot execute is an optimizer-pipeline
		// defect, not a provider failure.
		return nil, domain.NewDomainError("agent.resolve_executor", domain.ErrRouteOptimization,
			fmt.Sprintf("no executor for rail %q", route.Kind))
	}

	if err := exec.ValidateIntent(intent); err != nil {
		return nil, domain.NewDomainError("agent.rail_validate", domain.ErrValidationFailed, err.Error())
	}

	receipt, err := exec.Execute(ctx, route, intent)
	if err != nil {
		return nil, domain.WrapOp("agent.execute_transfer", err)
	}

	a.deps.Logger.Info("transfer executed",
		"intent", intent.ID,
		"route", route.ID,
		"provider", receipt.Provider,
		"handle", receipt.Handle,
		"finalized", receipt.Finalized,
	)
	publishEvent(a.deps.Bus, ctx, domain.EventTransferExecuted, a.deps.Runtime.ID(), intent.ID, receipt)
	return receipt, nil
}

package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"remitroute/internal/domain"
)

// BankSubmission is one transfer handed to the banking rails.
type BankSubmission struct {
	IdempotencyKey string
	Provider       string
	Amount         float64
	Currency       domain.Currency
}

// BankGateway is the settlement SDK seam. Submit blocks until the rail
// acknowledges the submission, which is why BankExecutor bounds concurrent
// calls with a worker pool.
type BankGateway interface {
	Submit(ctx context.Context, sub BankSubmission) (string, error)
}

// BankConfig bounds the bank rail.
type BankConfig struct {
	Workers    int
	RatePerSec float64
	Burst      int
	MinAmount  float64 // rails refuse dust transfers below this
}

// BankExecutor settles transfers over banking rails. Submissions are
// acknowledged, not finalized: clearing completes out of band.
type BankExecutor struct {
	gateway   BankGateway
	limiter   *rate.Limiter
	pool      *semaphore.Weighted
	minAmount float64
	logger    *slog.Logger
}

// NewBankExecutor creates the bank rail over gateway.
func NewBankExecutor(gateway BankGateway, cfg BankConfig, logger *slog.Logger) *BankExecutor {
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 20
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BankExecutor{
		gateway:   gateway,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		pool:      semaphore.NewWeighted(int64(cfg.Workers)),
		minAmount: cfg.MinAmount,
		logger:    logger,
	}
}

// Kind returns the rail tag.
func (e *BankExecutor) Kind() domain.ProviderKind { return domain.ProviderBank }

// ValidateIntent rejects transfers below the rail minimum.
func (e *BankExecutor) ValidateIntent(intent domain.PaymentIntent) error {
	if e.minAmount > 0 && intent.Amount < e.minAmount {
		return fmt.Errorf("amount %v below bank rail minimum %v", intent.Amount, e.minAmount)
	}
	return nil
}

// Execute submits the transfer on a pool slot. The caller is released on
// cancellation, but the slot stays held until the blocking SDK call returns
// so the pool keeps bounding real in-flight submissions.
func (e *BankExecutor) Execute(ctx context.Context, route domain.CandidateRoute, intent domain.PaymentIntent) (*domain.TransferReceipt, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := e.pool.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	sub := BankSubmission{
		IdempotencyKey: uuid.NewString(),
		Provider:       route.PrimaryProvider(),
		Amount:         intent.Amount,
		Currency:       intent.Corridor.FromCurrency,
	}

	type outcome struct {
		handle string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer e.pool.Release(1)
		handle, err := e.gateway.Submit(ctx, sub)
		done <- outcome{handle: handle, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return nil, fmt.Errorf("bank submit: %w", out.err)
		}
		e.logger.Debug("bank submission acknowledged",
			"provider", sub.Provider, "handle", out.handle, "intent", intent.ID)
		return &domain.TransferReceipt{
			Handle:    out.handle,
			Provider:  sub.Provider,
			Finalized: false,
		}, nil
	}
}

package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"remitroute/internal/domain"
)

// BridgeTransfer is one transfer across a blockchain bridge: funds lock on
// the source side and mint on the destination side.
type BridgeTransfer struct {
	IdempotencyKey string
	Provider       string
	Amount         float64
	FromCurrency   domain.Currency
	ToCurrency     domain.Currency
}

// BridgeGateway is the bridge backend. LockAndMint returns the transaction
// hash once the destination mint is confirmed.
type BridgeGateway interface {
	LockAndMint(ctx context.Context, transfer BridgeTransfer) (string, error)
}

// BridgeConfig bounds the bridge rail.
type BridgeConfig struct {
	RatePerSec float64
	Burst      int
}

// BridgeExecutor settles transfers over blockchain bridges. The mint
// confirmation is the settlement, so receipts are finalized.
type BridgeExecutor struct {
	gateway BridgeGateway
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewBridgeExecutor creates the bridge rail over gateway.
func NewBridgeExecutor(gateway BridgeGateway, cfg BridgeConfig, logger *slog.Logger) *BridgeExecutor {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 10
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BridgeExecutor{
		gateway: gateway,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		logger:  logger,
	}
}

// Kind returns the rail tag.
func (e *BridgeExecutor) Kind() domain.ProviderKind { return domain.ProviderBridge }

// ValidateIntent accepts any structurally valid intent: bridges carry
// whatever corridor the directory lists for them.
func (e *BridgeExecutor) ValidateIntent(intent domain.PaymentIntent) error {
	return nil
}

// Execute locks funds on the source chain and mints on the destination.
func (e *BridgeExecutor) Execute(ctx context.Context, route domain.CandidateRoute, intent domain.PaymentIntent) (*domain.TransferReceipt, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	transfer := BridgeTransfer{
		IdempotencyKey: uuid.NewString(),
		Provider:       route.PrimaryProvider(),
		Amount:         intent.Amount,
		FromCurrency:   intent.Corridor.FromCurrency,
		ToCurrency:     intent.Corridor.ToCurrency,
	}
	txHash, err := e.gateway.LockAndMint(ctx, transfer)
	if err != nil {
		return nil, fmt.Errorf("bridge lock-and-mint: %w", err)
	}

	e.logger.Debug("bridge mint confirmed",
		"provider", transfer.Provider, "tx", txHash, "intent", intent.ID)
	return &domain.TransferReceipt{
		Handle:    txHash,
		Provider:  transfer.Provider,
		Finalized: true,
	}, nil
}

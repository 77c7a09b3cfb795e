package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"remitroute/internal/domain"
)

// WalletPush is one wallet-to-wallet transfer request.
type WalletPush struct {
	IdempotencyKey string
	Provider       string
	Amount         float64
	Currency       domain.Currency
}

// WalletGateway is the mobile wallet backend. Push initiates the transfer
// and returns the backend's handle for it.
type WalletGateway interface {
	Push(ctx context.Context, push WalletPush) (string, error)
}

// MobileMoneyConfig bounds the mobile money rail.
type MobileMoneyConfig struct {
	RatePerSec float64
	Burst      int
	MaxAmount  float64  // wallet cap per transfer, source currency units; 0 = uncapped
	Currencies []string // supported source currencies; empty = all
}

// MobileMoneyExecutor settles transfers over mobile wallet networks. Wallet
// pushes finalize immediately on acceptance.
type MobileMoneyExecutor struct {
	gateway    WalletGateway
	limiter    *rate.Limiter
	maxAmount  float64
	currencies map[domain.Currency]bool
	logger     *slog.Logger
}

// NewMobileMoneyExecutor creates the mobile money rail over gateway.
func NewMobileMoneyExecutor(gateway WalletGateway, cfg MobileMoneyConfig, logger *slog.Logger) *MobileMoneyExecutor {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 50
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	currencies := make(map[domain.Currency]bool, len(cfg.Currencies))
	for _, c := range cfg.Currencies {
		currencies[domain.Currency(strings.ToUpper(c))] = true
	}
	return &MobileMoneyExecutor{
		gateway:    gateway,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		maxAmount:  cfg.MaxAmount,
		currencies: currencies,
		logger:     logger,
	}
}

// Kind returns the rail tag.
func (e *MobileMoneyExecutor) Kind() domain.ProviderKind { return domain.ProviderMobileMoney }

// ValidateIntent rejects transfers the wallet network cannot carry.
func (e *MobileMoneyExecutor) ValidateIntent(intent domain.PaymentIntent) error {
	if e.maxAmount > 0 && intent.Amount > e.maxAmount {
		return fmt.Errorf("amount %v exceeds wallet limit %v", intent.Amount, e.maxAmount)
	}
	currency := domain.Currency(strings.ToUpper(string(intent.Corridor.FromCurrency)))
	if len(e.currencies) > 0 && !e.currencies[currency] {
		return fmt.Errorf("currency %s not supported on mobile money", intent.Corridor.FromCurrency)
	}
	return nil
}

// Execute pushes the transfer through the wallet network.
func (e *MobileMoneyExecutor) Execute(ctx context.Context, route domain.CandidateRoute, intent domain.PaymentIntent) (*domain.TransferReceipt, error) {
	// Provider API quota; Wait queues rather than rejects.
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	push := WalletPush{
		IdempotencyKey: uuid.NewString(),
		Provider:       route.PrimaryProvider(),
		Amount:         intent.Amount,
		Currency:       intent.Corridor.FromCurrency,
	}
	handle, err := e.gateway.Push(ctx, push)
	if err != nil {
		return nil, fmt.Errorf("mobile money push: %w", err)
	}

	e.logger.Debug("wallet push accepted",
		"provider", push.Provider, "handle", handle, "intent", intent.ID)
	return &domain.TransferReceipt{
		Handle:    handle,
		Provider:  push.Provider,
		Finalized: true,
	}, nil
}

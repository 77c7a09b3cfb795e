package executor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"remitroute/internal/domain"
)

// Simulator is an in-process settlement backend implementing all three
// gateway interfaces. It stands in for real rails in development, demos and
// the quote/doctor commands; every call succeeds after an optional fixed
// latency.
type Simulator struct {
	latency time.Duration
	seq     atomic.Uint64
}

// NewSimulator creates a simulator with the given per-call latency.
func NewSimulator(latency time.Duration) *Simulator {
	return &Simulator{latency: latency}
}

func (s *Simulator) settle(ctx context.Context) error {
	if s.latency <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.latency):
		return nil
	}
}

func (s *Simulator) handle(prefix string) string {
	return fmt.Sprintf("%s-%06d", prefix, s.seq.Add(1))
}

// Push implements WalletGateway.
func (s *Simulator) Push(ctx context.Context, push WalletPush) (string, error) {
	if err := s.settle(ctx); err != nil {
		return "", err
	}
	return s.handle("sim-mm"), nil
}

// Submit implements BankGateway.
func (s *Simulator) Submit(ctx context.Context, sub BankSubmission) (string, error) {
	if err := s.settle(ctx); err != nil {
		return "", err
	}
	return s.handle("sim-bank"), nil
}

// LockAndMint implements BridgeGateway.
func (s *Simulator) LockAndMint(ctx context.Context, transfer BridgeTransfer) (string, error) {
	if err := s.settle(ctx); err != nil {
		return "", err
	}
	return s.handle("sim-tx"), nil
}

var (
	_ WalletGateway = (*Simulator)(nil)
	_ BankGateway   = (*Simulator)(nil)
	_ BridgeGateway = (*Simulator)(nil)
)

// Interface checks for the rails themselves.
var (
	_ domain.TransferExecutor = (*MobileMoneyExecutor)(nil)
	_ domain.TransferExecutor = (*BankExecutor)(nil)
	_ domain.TransferExecutor = (*BridgeExecutor)(nil)
)

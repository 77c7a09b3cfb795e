//go:build integration
// +build integration

package integration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"remitroute/internal/adapter/compliance"
	"remitroute/internal/adapter/directory"
	"remitroute/internal/adapter/executor"
	"remitroute/internal/adapter/fx"
	"remitroute/internal/adapter/routecache"
	"remitroute/internal/domain"
	"remitroute/internal/usecase"
	"remitroute/internal/usecase/eventbus"
	"remitroute/internal/usecase/routing"
)

// buildAgent wires the full routing and settlement stack over the given
// directory and wallet gateway. Bank and bridge rails always run on the
// simulator; the wallet rail is the injection point for failure tests.
func buildAgent(bus *eventbus.Bus, dir routing.Directory, wallet executor.WalletGateway, policy usecase.RuntimePolicy) (*usecase.PaymentAgent, *usecase.AgentRuntime) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	discovery := routing.NewDiscovery(routing.DiscoveryConfig{
		Direct: true,
		Hub:    true,
		Hubs:   []domain.Country{"AE"},
	}, routing.DiscoveryDeps{
		Directory: dir,
		Rates:     fx.NewMemoryRateSource(),
		Logger:    log,
	})
	cache := routing.NewRouteCache(routecache.NewMemoryStore(), discovery, time.Minute, bus, log)

	scorer := routing.NewScorer(routing.ScoringConfig{}, compliance.NewStaticChecker(compliance.DenyLists{}), log)
	selector := routing.NewSelector(nil, 5, log)
	optimizer := routing.NewOptimizer(cache, scorer, selector, bus, log)

	sim := executor.NewSimulator(2 * time.Millisecond)
	dispatcher := executor.NewDispatcher()
	dispatcher.Register(executor.NewMobileMoneyExecutor(wallet, executor.MobileMoneyConfig{}, log))
	dispatcher.Register(executor.NewBankExecutor(sim, executor.BankConfig{}, log))
	dispatcher.Register(executor.NewBridgeExecutor(sim, executor.BridgeConfig{}, log))

	rt := usecase.NewAgentRuntime("e2e-payments", policy, usecase.RuntimeDeps{Logger: log, Bus: bus})
	agent := usecase.NewPaymentAgent(usecase.PaymentAgentDeps{
		Runtime:   rt,
		Optimizer: optimizer,
		Executors: dispatcher,
		Bus:       bus,
		Logger:    log,
	})
	return agent, rt
}

func TestE2E_PaymentAcrossDirectCorridor(t *testing.T) {
	SkipIfShort(t)
	ctx := NewTestContext(t, DefaultTimeout)

	// Setup real components (not mocks)
	dir, err := directory.NewMemoryDirectory(EastAfricaLinks()...)
	if err != nil {
		t.Fatalf("seed directory: %v", err)
	}

	bus := eventbus.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer bus.Close()

	executed := make(chan domain.Event, 1)
	unsub := bus.Subscribe(domain.EventTransferExecuted, func(_ context.Context, e domain.Event) {
		select {
		case executed <- e:
		default:
		}
	})
	defer unsub()

	agent, rt := buildAgent(bus, dir, executor.NewSimulator(0), usecase.RuntimePolicy{})
	defer rt.Stop(context.Background())

	res := agent.ProcessPayment(ctx, KampalaIntent(150))
	if !res.Success {
		t.Fatalf("payment failed: %s [%s]", res.Message, res.ErrorCode)
	}

	receipt, ok := res.Payload.(*domain.TransferReceipt)
	if !ok {
		t.Fatalf("payload type %T, want *domain.TransferReceipt", res.Payload)
	}
	if !strings.HasPrefix(receipt.Handle, "sim-mm") {
		t.Errorf("handle %q, want a mobile money settlement", receipt.Handle)
	}
	if receipt.Provider != "mpesa" {
		t.Errorf("provider %q, want mpesa (fast cheap wallet beats the slow bank)", receipt.Provider)
	}
	if !receipt.Finalized {
		t.Error("receipt not finalized")
	}

	select {
	case e := <-executed:
		if e.IntentID != res.IntentID {
			t.Errorf("transfer event for intent %q, want %q", e.IntentID, res.IntentID)
		}
	case <-time.After(2 * time.Second):
		t.Error("no transfer.executed event within 2s")
	}

	snap := rt.Snapshot()
	if snap.CompletedTasks != 1 {
		t.Errorf("completed tasks %d, want 1", snap.CompletedTasks)
	}

	t.Logf("payment settled via %s (handle %s) in %s", receipt.Provider, receipt.Handle, res.Duration)
}

func TestE2E_SQLiteDirectoryQuote(t *testing.T) {
	SkipIfShort(t)
	ctx := NewTestContext(t, DefaultTimeout)

	dbPath := filepath.Join(t.TempDir(), "routes.db")
	dir, err := directory.NewSQLiteDirectory(dbPath)
	if err != nil {
		t.Fatalf("open sqlite directory: %v", err)
	}
	defer dir.Close()
	if err := dir.Seed(ctx, EastAfricaLinks()); err != nil {
		t.Fatalf("seed sqlite directory: %v", err)
	}

	bus := eventbus.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer bus.Close()

	agent, rt := buildAgent(bus, dir, executor.NewSimulator(0), usecase.RuntimePolicy{})
	defer rt.Stop(context.Background())

	first := agent.QuoteRoute(ctx, KampalaIntent(200))
	if !first.Success {
		t.Fatalf("first quote failed: %s [%s]", first.Message, first.ErrorCode)
	}
	opt1 := first.Payload.(*domain.RouteOptimizationResult)
	if opt1.CacheHit {
		t.Error("first quote served from cache before anything was cached")
	}
	if opt1.Selected == nil {
		t.Fatal("first quote selected no route")
	}

	second := agent.QuoteRoute(ctx, KampalaIntent(200))
	if !second.Success {
		t.Fatalf("second quote failed: %s [%s]", second.Message, second.ErrorCode)
	}
	opt2 := second.Payload.(*domain.RouteOptimizationResult)
	if !opt2.CacheHit {
		t.Error("second quote missed the route cache")
	}
	if opt2.Selected == nil || opt2.Selected.Route.ID != opt1.Selected.Route.ID {
		t.Errorf("cached quote selected a different route: %+v vs %+v", opt2.Selected, opt1.Selected)
	}

	t.Logf("quoted %s twice, %d candidate(s), second served from cache", opt1.Selected.Route.ID, opt2.CandidateCount)
}

// flakyWallet fails every push and counts invocations, standing in for a
// provider outage.
type flakyWallet struct {
	calls atomic.Int32
}

func (f *flakyWallet) Push(ctx context.Context, push executor.WalletPush) (string, error) {
	f.calls.Add(1)
	return "", errors.New("wallet backend unavailable")
}

func TestE2E_BreakerOpensUnderFailingRail(t *testing.T) {
	SkipIfShort(t)
	ctx := NewTestContext(t, DefaultTimeout)

	// Only the wallet corridor is seeded, so every payment lands on the
	// failing rail.
	dir, err := directory.NewMemoryDirectory(EastAfricaLinks()[0])
	if err != nil {
		t.Fatalf("seed directory: %v", err)
	}

	bus := eventbus.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer bus.Close()

	opened := make(chan domain.Event, 1)
	unsub := bus.Subscribe(domain.EventBreakerStateChange, func(_ context.Context, e domain.Event) {
		select {
		case opened <- e:
		default:
		}
	})
	defer unsub()

	wallet := &flakyWallet{}
	agent, rt := buildAgent(bus, dir, wallet, usecase.RuntimePolicy{
		RetryAttempts:    0,
		TaskTimeout:      5 * time.Second,
		BreakerEnabled:   true,
		BreakerThreshold: 2,
		BreakerTimeout:   time.Minute,
	})
	defer rt.Stop(context.Background())

	for i := 0; i < 2; i++ {
		res := agent.ProcessPayment(ctx, KampalaIntent(100))
		if res.Success {
			t.Fatalf("payment %d succeeded against a failing wallet", i+1)
		}
		if res.ErrorCode != domain.CodeRetryExhausted {
			t.Fatalf("payment %d error code %s, want %s", i+1, res.ErrorCode, domain.CodeRetryExhausted)
		}
	}

	select {
	case <-opened:
	case <-time.After(2 * time.Second):
		t.Error("no breaker.state_change event within 2s")
	}

	res := agent.ProcessPayment(ctx, KampalaIntent(100))
	if res.ErrorCode != domain.CodeCircuitOpen {
		t.Fatalf("third payment error code %s, want %s", res.ErrorCode, domain.CodeCircuitOpen)
	}
	if res.Status != domain.TaskRejected {
		t.Errorf("third payment status %s, want %s", res.Status, domain.TaskRejected)
	}
	if got := wallet.calls.Load(); got != 2 {
		t.Errorf("wallet invoked %d times, want 2 (open breaker short-circuits)", got)
	}

	snap := rt.Snapshot()
	if snap.FailedTasks != 2 {
		t.Errorf("failed tasks %d, want 2", snap.FailedTasks)
	}
	if !snap.BreakerOpen {
		t.Error("snapshot does not report the breaker open")
	}

	t.Logf("breaker opened after 2 consecutive failures, third payment rejected without a push")
}

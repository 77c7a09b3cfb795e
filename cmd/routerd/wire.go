package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"remitroute/internal/adapter/availability"
	"remitroute/internal/adapter/compliance"
	"remitroute/internal/adapter/directory"
	"remitroute/internal/adapter/executor"
	"remitroute/internal/adapter/fx"
	"remitroute/internal/adapter/policy"
	"remitroute/internal/adapter/routecache"
	"remitroute/internal/domain"
	"remitroute/internal/infra/config"
	"remitroute/internal/usecase"
	"remitroute/internal/usecase/eventbus"
	"remitroute/internal/usecase/routing"
	"remitroute/internal/usecase/scheduling"
)

// goredisCache adapts a go-redis client to routecache.RedisClient.
type goredisCache struct {
	client *goredis.Client
}

func (g *goredisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := g.client.Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (g *goredisCache) SetEX(ctx context.Context, key, value string, expiration time.Duration) error {
	return g.client.Set(ctx, key, value, expiration).Err()
}

func (g *goredisCache) Close() error {
	return g.client.Close()
}

// components is the wired object graph for one command invocation.
type components struct {
	Agent     *usecase.PaymentAgent
	Registry  *usecase.Registry
	Scheduler *scheduling.Scheduler // nil when disabled
	Bus       *eventbus.Bus

	memCache *routecache.MemoryStore // nil when the redis backend is active
	closers  []func() error
}

// buildComponents wires every collaborator per config and returns the graph
// plus a cleanup function. Cleanup stops the scheduler and runtimes before
// releasing stores and the bus.
func buildComponents(ctx context.Context, cfg *config.Config, log *slog.Logger) (*components, func(context.Context) error, error) {
	comp := &components{Bus: eventbus.New(log)}

	fail := func(err error) (*components, func(context.Context) error, error) {
		for _, c := range comp.closers {
			c()
		}
		comp.Bus.Close()
		return nil, nil, err
	}

	// 1. Provider directory (memory or sqlite), seeded from config.
	dir, err := buildDirectory(ctx, cfg, comp)
	if err != nil {
		return fail(fmt.Errorf("directory: %w", err))
	}

	// 2. FX table and provider availability.
	rates := buildRates(cfg)
	avail := availability.NewStaticChecker()

	// 3. Candidate discovery over the directory.
	dcfg := cfg.Routing.Discovery
	hubs := make([]domain.Country, len(dcfg.Hubs))
	for i, h := range dcfg.Hubs {
		hubs[i] = domain.Country(strings.ToUpper(h))
	}
	discovery := routing.NewDiscovery(routing.DiscoveryConfig{
		Direct:             dcfg.Direct,
		Hub:                dcfg.Hub,
		MultiHop:           dcfg.MultiHop,
		MaxHops:            dcfg.MaxHops,
		Hubs:               hubs,
		MinSuccessRate:     dcfg.MinSuccessRate,
		MaxDeliveryMinutes: dcfg.MaxDeliveryMinutes,
	}, routing.DiscoveryDeps{
		Directory:    dir,
		Rates:        rates,
		Availability: avail,
		Logger:       log,
	})

	// 4. Route cache in front of discovery.
	store, err := buildCacheStore(ctx, cfg, comp)
	if err != nil {
		return fail(fmt.Errorf("route cache: %w", err))
	}
	routeCache := routing.NewRouteCache(store, discovery,
		config.Duration(cfg.Routing.Cache.TTL), comp.Bus, log)

	// 5. Compliance gate, scorer, selection policy, optimizer.
	checker := compliance.NewStaticChecker(compliance.DenyLists{
		Countries: cfg.Compliance.BlockedCountries,
		Corridors: cfg.Compliance.BlockedCorridors,
		Providers: cfg.Compliance.BlockedProviders,
	})
	scfg := cfg.Routing.Scoring
	scorer := routing.NewScorer(routing.ScoringConfig{
		MaxCostPct:         scfg.MaxCostPct,
		MaxDeliveryMinutes: scfg.MaxDeliveryMinutes,
		PriorityBoost:      scfg.PriorityBoost,
		Weights: routing.Weights{
			Cost:        scfg.Weights.Cost,
			Speed:       scfg.Weights.Speed,
			Reliability: scfg.Weights.Reliability,
			Compliance:  scfg.Weights.Compliance,
		},
	}, checker, log)

	pol, err := buildPolicy(ctx, cfg, log, comp)
	if err != nil {
		return fail(fmt.Errorf("selection policy: %w", err))
	}
	selector := routing.NewSelector(pol, cfg.Routing.Selection.Policy.MaxCandidates, log)
	optimizer := routing.NewOptimizer(routeCache, scorer, selector, comp.Bus, log)

	// 6. Settlement rails on the simulated backend.
	dispatcher := buildExecutors(cfg, log)

	// 7. Payment runtime, registry, agent.
	rcfg := cfg.Runtime
	runtime := usecase.NewAgentRuntime("payments", usecase.RuntimePolicy{
		MaxConcurrentTasks: rcfg.MaxConcurrentTasks,
		RetryAttempts:      rcfg.RetryAttempts,
		RetryDelayBase:     config.Duration(rcfg.RetryDelayBase),
		TaskTimeout:        config.Duration(rcfg.TaskTimeout),
		BreakerEnabled:     rcfg.CircuitBreaker.Enabled,
		BreakerThreshold:   rcfg.CircuitBreaker.Threshold,
		BreakerTimeout:     config.Duration(rcfg.CircuitBreaker.Timeout),
	}, usecase.RuntimeDeps{Logger: log, Bus: comp.Bus})

	comp.Registry = usecase.NewRegistry("payments", log)
	if err := comp.Registry.Register(runtime); err != nil {
		return fail(fmt.Errorf("register runtime: %w", err))
	}

	comp.Agent = usecase.NewPaymentAgent(usecase.PaymentAgentDeps{
		Runtime:   runtime,
		Optimizer: optimizer,
		Executors: dispatcher,
		Bus:       comp.Bus,
		Logger:    log,
	})

	// 8. Maintenance scheduler.
	if cfg.Scheduler.Enabled {
		comp.Scheduler = buildScheduler(cfg, comp, log)
	}

	cleanup := func(ctx context.Context) error {
		if comp.Scheduler != nil {
			comp.Scheduler.Stop()
		}
		err := comp.Registry.StopAll(ctx)
		for _, c := range comp.closers {
			if cerr := c(); cerr != nil && err == nil {
				err = cerr
			}
		}
		comp.Bus.Close()
		return err
	}
	return comp, cleanup, nil
}

// seedLinks converts configured seed links into domain links. Codes are
// uppercased so seeded links match normalized intents.
func seedLinks(seed []config.SeedLink) []domain.RouteLink {
	links := make([]domain.RouteLink, len(seed))
	for i, s := range seed {
		links[i] = domain.RouteLink{
			Provider:        s.Provider,
			Kind:            domain.ProviderKind(s.Kind),
			FromCountry:     domain.Country(strings.ToUpper(s.From)),
			ToCountry:       domain.Country(strings.ToUpper(s.To)),
			FromCurrency:    domain.Currency(strings.ToUpper(s.FromCurrency)),
			ToCurrency:      domain.Currency(strings.ToUpper(s.ToCurrency)),
			Fee:             s.Fee,
			ExchangeRate:    s.Rate,
			DeliveryMinutes: s.DeliveryMinutes,
			SuccessRate:     s.SuccessRate,
		}
	}
	return links
}

func buildDirectory(ctx context.Context, cfg *config.Config, comp *components) (routing.Directory, error) {
	links := seedLinks(cfg.Directory.Seed)

	if cfg.Directory.Backend == "sqlite" {
		dir, err := directory.NewSQLiteDirectory(cfg.Directory.SQLitePath)
		if err != nil {
			return nil, err
		}
		comp.closers = append(comp.closers, dir.Close)
		if len(links) > 0 {
			if err := dir.Seed(ctx, links); err != nil {
				return nil, err
			}
		}
		return dir, nil
	}
	return directory.NewMemoryDirectory(links...)
}

func buildRates(cfg *config.Config) *fx.MemoryRateSource {
	rates := fx.NewMemoryRateSource()
	for _, r := range cfg.FX.Rates {
		rates.SetRate(
			domain.Currency(strings.ToUpper(r.From)),
			domain.Currency(strings.ToUpper(r.To)),
			r.Rate,
		)
	}
	return rates
}

func buildCacheStore(ctx context.Context, cfg *config.Config, comp *components) (routing.CacheStore, error) {
	if cfg.Routing.Cache.Backend != "redis" {
		comp.memCache = routecache.NewMemoryStore()
		return comp.memCache, nil
	}

	rc := cfg.Routing.Cache.Redis
	client := goredis.NewClient(&goredis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", rc.Addr, err)
	}
	store := routecache.NewRedisStore(&goredisCache{client: client})
	comp.closers = append(comp.closers, store.Close)
	return store, nil
}

// buildPolicy loads the configured selection policy. A missing artifact file
// downgrades to the heuristic with a warning; a present but broken artifact
// is fatal.
func buildPolicy(ctx context.Context, cfg *config.Config, log *slog.Logger, comp *components) (routing.Policy, error) {
	pcfg := cfg.Routing.Selection.Policy
	switch pcfg.Backend {
	case "linear":
		pol, err := policy.NewLinearPolicy(pcfg.Path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Warn("policy artifact missing, selection falls back to heuristic", "path", pcfg.Path)
				return nil, nil
			}
			return nil, err
		}
		log.Info("linear policy loaded", "path", pcfg.Path, "policy", pol.Name())
		return pol, nil
	case "wasm":
		pol, err := policy.NewWASMPolicy(ctx, policy.WASMPolicyConfig{
			Path:        pcfg.Path,
			ExecTimeout: config.Duration(pcfg.ExecTimeout),
		}, log)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Warn("policy module missing, selection falls back to heuristic", "path", pcfg.Path)
				return nil, nil
			}
			return nil, err
		}
		comp.closers = append(comp.closers, func() error {
			return pol.Close(context.Background())
		})
		return pol, nil
	default: // "none"
		return nil, nil
	}
}

// buildExecutors registers the three rails over the simulated settlement
// backend. Real gateway SDKs plug in here.
func buildExecutors(cfg *config.Config, log *slog.Logger) *executor.Dispatcher {
	sim := executor.NewSimulator(0)
	e := cfg.Executors

	dispatcher := executor.NewDispatcher()
	dispatcher.Register(executor.NewMobileMoneyExecutor(sim, executor.MobileMoneyConfig{
		RatePerSec: e.MobileMoney.RatePerSec,
		Burst:      e.MobileMoney.Burst,
		MaxAmount:  e.MobileMoney.MaxAmount,
		Currencies: e.MobileMoney.Currencies,
	}, log))
	dispatcher.Register(executor.NewBankExecutor(sim, executor.BankConfig{
		Workers:    e.Bank.Workers,
		RatePerSec: e.Bank.RatePerSec,
		Burst:      e.Bank.Burst,
		MinAmount:  e.Bank.MinAmount,
	}, log))
	dispatcher.Register(executor.NewBridgeExecutor(sim, executor.BridgeConfig{
		RatePerSec: e.Bridge.RatePerSec,
		Burst:      e.Bridge.Burst,
	}, log))
	return dispatcher
}

// buildScheduler registers the maintenance actions and the configured jobs.
// A job that fails to register is logged and skipped, never fatal.
func buildScheduler(cfg *config.Config, comp *components, log *slog.Logger) *scheduling.Scheduler {
	sched := scheduling.NewScheduler(log)

	sched.RegisterAction(scheduling.ActionCacheSweep, func(ctx context.Context) error {
		if comp.memCache == nil {
			return nil // redis expires entries server-side
		}
		if evicted := comp.memCache.Sweep(); evicted > 0 {
			log.Info("route cache swept", "evicted", evicted)
		}
		return nil
	})
	sched.RegisterAction(scheduling.ActionHealthReport, func(ctx context.Context) error {
		for _, st := range comp.Registry.Snapshots() {
			log.Info("runtime health",
				"runtime", st.Name,
				"status", string(st.Status),
				"current_tasks", st.CurrentTasks,
				"completed", st.CompletedTasks,
				"failed", st.FailedTasks,
				"success_rate", st.SuccessRate,
				"avg_processing", st.AverageProcessingTime,
				"breaker_open", st.BreakerOpen,
			)
		}
		return nil
	})

	for _, tc := range cfg.Scheduler.Tasks {
		if err := sched.AddJob(scheduling.Job{
			Name:     tc.Name,
			Schedule: tc.Schedule,
			Action:   scheduling.Action(tc.Action),
			OneShot:  tc.OneShot,
		}); err != nil {
			log.Warn("scheduler: failed to add job", "job", tc.Name, "error", err)
		}
	}
	return sched
}

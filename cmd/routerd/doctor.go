package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"remitroute/internal/adapter/directory"
	"remitroute/internal/adapter/policy"
	"remitroute/internal/infra/config"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

// runDoctor executes all health checks and reports results.
func runDoctor() error {
	cfgPath := configPath()

	// A missing file loads as defaults; cfg is nil only on a parse or
	// validation error.
	cfg, cfgErr := config.Load(cfgPath)
	if cfgErr != nil {
		cfg = nil
	}

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "Provider directory", Fn: checkDirectory},
		{Name: "Route cache", Fn: checkRouteCache},
		{Name: "FX rates", Fn: checkFXRates},
		{Name: "Compliance lists", Fn: checkCompliance},
		{Name: "Selection policy", Fn: checkPolicy},
		{Name: "Settlement rails", Fn: checkRails},
		{Name: "Scheduler", Fn: checkScheduler},
	}

	fmt.Println("routerd doctor")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println()

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Printf("  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Printf("      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("-", 50))
	fmt.Printf("Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		fmt.Println("\nFix the FAIL issues above to ensure routerd runs correctly.")
		return fmt.Errorf("%d check(s) failed", fail)
	}
	if warn > 0 {
		fmt.Println("\nrouterd should work, but consider addressing the warnings.")
	} else {
		fmt.Println("\nAll checks passed! routerd is ready to run.")
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

// checkConfigFile returns a check that verifies the config file parses. A
// missing file is only a warning since the built-in defaults are runnable.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     "Fix the reported fields in " + cfgPath,
			}
		}

		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no config file at %s, running on built-in defaults", cfgPath),
				Fix:     "Create config.yaml or point ROUTERD_CONFIG at one",
			}
		}

		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

// checkDirectory verifies the provider directory backend opens and holds
// links to route over.
func checkDirectory(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check: config not loaded"}
	}

	seeded := len(cfg.Directory.Seed)

	if cfg.Directory.Backend == "sqlite" {
		dir, err := directory.NewSQLiteDirectory(cfg.Directory.SQLitePath)
		if err != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("cannot open %s: %v", cfg.Directory.SQLitePath, err),
				Fix:     "Check directory.sqlite_path and file permissions",
			}
		}
		defer dir.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n, err := dir.Count(ctx)
		if err != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("cannot query %s: %v", cfg.Directory.SQLitePath, err),
			}
		}
		if n == 0 && seeded == 0 {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("sqlite directory %s is empty and no seed links configured", cfg.Directory.SQLitePath),
				Fix:     "Add links under directory.seed or load the database",
			}
		}
		if n == 0 {
			return CheckResult{
				Status:  StatusPass,
				Message: fmt.Sprintf("sqlite directory %s is empty, %d seed link(s) load on start", cfg.Directory.SQLitePath, seeded),
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("sqlite directory %s holds %d link(s)", cfg.Directory.SQLitePath, n),
		}
	}

	if seeded == 0 {
		return CheckResult{
			Status:  StatusWarn,
			Message: "memory directory has no seed links, every quote will end in NO_ROUTE",
			Fix:     "Add links under directory.seed in config.yaml",
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("memory directory with %d seed link(s)", seeded),
	}
}

// checkRouteCache verifies the configured cache backend is usable. For
// redis this dials the server.
func checkRouteCache(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check: config not loaded"}
	}

	if cfg.Routing.Cache.Backend != "redis" {
		return CheckResult{
			Status:  StatusPass,
			Message: "in-memory store (per process, swept by the scheduler)",
		}
	}

	rc := cfg.Routing.Cache.Redis
	client := goredis.NewClient(&goredis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := client.Ping(ctx).Err(); err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("redis not reachable at %s: %v", rc.Addr, err),
			Fix:     "Start redis or switch routing.cache.backend to memory",
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("redis reachable at %s (latency: %dms)", rc.Addr, time.Since(start).Milliseconds()),
	}
}

// checkFXRates flags seed links that quote no rate of their own and have no
// FX pair to fall back on. Discovery drops such links.
func checkFXRates(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "skipped: config not loaded"}
	}

	missing := missingFXPairs(cfg)
	if len(missing) > 0 {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("seed links depend on unconfigured FX pair(s): %s", strings.Join(missing, ", ")),
			Fix:     "Add the pairs under fx.rates, or set rate on the links",
		}
	}

	if len(cfg.FX.Rates) == 0 {
		return CheckResult{
			Status:  StatusPass,
			Message: "no FX pairs configured (every seed link quotes its own rate)",
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%d FX pair(s) configured", len(cfg.FX.Rates)),
	}
}

// missingFXPairs returns "FROM:TO" pairs that rate-less cross-currency seed
// links need but fx.rates does not provide, sorted and deduplicated.
func missingFXPairs(cfg *config.Config) []string {
	have := make(map[string]bool, len(cfg.FX.Rates))
	for _, r := range cfg.FX.Rates {
		have[strings.ToUpper(r.From)+":"+strings.ToUpper(r.To)] = true
	}

	seen := make(map[string]bool)
	var missing []string
	for _, s := range cfg.Directory.Seed {
		if s.Rate != 0 {
			continue
		}
		from, to := strings.ToUpper(s.FromCurrency), strings.ToUpper(s.ToCurrency)
		if from == to {
			continue
		}
		pair := from + ":" + to
		if !have[pair] && !seen[pair] {
			seen[pair] = true
			missing = append(missing, pair)
		}
	}
	sort.Strings(missing)
	return missing
}

// checkCompliance reports the configured deny list sizes.
func checkCompliance(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "skipped: config not loaded"}
	}

	c := cfg.Compliance
	total := len(c.BlockedCountries) + len(c.BlockedCorridors) + len(c.BlockedProviders)
	if total == 0 {
		return CheckResult{
			Status:  StatusPass,
			Message: "no deny entries, every route passes the gate",
		}
	}
	return CheckResult{
		Status: StatusPass,
		Message: fmt.Sprintf("%d countries, %d corridors, %d providers blocked",
			len(c.BlockedCountries), len(c.BlockedCorridors), len(c.BlockedProviders)),
	}
}

// checkPolicy loads the configured selection policy artifact the same way
// the daemon does.
func checkPolicy(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "skipped: config not loaded"}
	}

	pcfg := cfg.Routing.Selection.Policy
	switch pcfg.Backend {
	case "linear":
		pol, err := policy.NewLinearPolicy(pcfg.Path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return CheckResult{
					Status:  StatusWarn,
					Message: fmt.Sprintf("artifact %s missing, selection falls back to the heuristic", pcfg.Path),
					Fix:     "Export the artifact, or set routing.selection.policy.backend to none",
				}
			}
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("artifact %s rejected: %v", pcfg.Path, err),
				Fix:     "Re-export the artifact",
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("linear policy %q ready", pol.Name()),
		}
	case "wasm":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
		pol, err := policy.NewWASMPolicy(ctx, policy.WASMPolicyConfig{
			Path:        pcfg.Path,
			ExecTimeout: config.Duration(pcfg.ExecTimeout),
		}, quiet)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return CheckResult{
					Status:  StatusWarn,
					Message: fmt.Sprintf("module %s missing, selection falls back to the heuristic", pcfg.Path),
					Fix:     "Build the policy module, or set routing.selection.policy.backend to none",
				}
			}
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("module %s rejected: %v", pcfg.Path, err),
				Fix:     "Rebuild the policy module",
			}
		}
		defer pol.Close(ctx)
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("wasm policy %q ready", pol.Name()),
		}
	default:
		return CheckResult{
			Status:  StatusPass,
			Message: "deterministic heuristic (no learned policy configured)",
		}
	}
}

// checkRails reports the effective settlement rail limits.
func checkRails(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "skipped: config not loaded"}
	}

	e := cfg.Executors
	msg := fmt.Sprintf("mobile_money %g/s, bank %g/s x%d workers, bridge %g/s",
		e.MobileMoney.RatePerSec, e.Bank.RatePerSec, e.Bank.Workers, e.Bridge.RatePerSec)
	if e.MobileMoney.MaxAmount > 0 {
		msg += fmt.Sprintf(", wallet cap %g", e.MobileMoney.MaxAmount)
	}
	if e.Bank.MinAmount > 0 {
		msg += fmt.Sprintf(", bank floor %g", e.Bank.MinAmount)
	}
	if len(e.MobileMoney.Currencies) > 0 {
		msg += fmt.Sprintf(", wallet currencies [%s]", strings.Join(e.MobileMoney.Currencies, ", "))
	}
	return CheckResult{Status: StatusPass, Message: msg}
}

// checkScheduler warns when background maintenance is off, since the
// memory cache then only evicts lazily on reads.
func checkScheduler(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "skipped: config not loaded"}
	}

	if !cfg.Scheduler.Enabled {
		return CheckResult{
			Status:  StatusWarn,
			Message: "scheduler disabled, expired cache entries evict lazily only",
			Fix:     "Set scheduler.enabled: true in config.yaml",
		}
	}

	names := make([]string, len(cfg.Scheduler.Tasks))
	for i, tc := range cfg.Scheduler.Tasks {
		names[i] = tc.Name
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%d job(s): %s", len(names), strings.Join(names, ", ")),
	}
}

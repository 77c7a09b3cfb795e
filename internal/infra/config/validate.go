package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// weightSumTolerance absorbs float literal rounding in config files.
const weightSumTolerance = 1e-9

// Validate checks cfg for structural correctness. It returns a
// *ValidationError when one or more problems are found, allowing callers to
// inspect all issues at once.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateRuntime(cfg, ve)
	validateDiscovery(cfg, ve)
	validateCache(cfg, ve)
	validateScoring(cfg, ve)
	validateSelection(cfg, ve)
	validateDirectory(cfg, ve)
	validateCompliance(cfg, ve)
	validateFX(cfg, ve)
	validateExecutors(cfg, ve)
	validateScheduler(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		ve.Add("logger.level %q is not a valid level", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "text", "json", "":
	default:
		ve.Add("logger.format must be \"text\" or \"json\", got %q", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "stdout", "noop", "":
	default:
		ve.Add("tracer.exporter %q is not supported", cfg.Tracer.Exporter)
	}
}

func validateRuntime(cfg *Config, ve *ValidationError) {
	r := cfg.Runtime
	if r.MaxConcurrentTasks < 1 {
		ve.Add("runtime.max_concurrent_tasks must be >= 1")
	}
	if r.RetryAttempts < 0 {
		ve.Add("runtime.retry_attempts must be >= 0")
	}
	validateDuration("runtime.retry_delay_base", r.RetryDelayBase, ve)
	validateDuration("runtime.task_timeout", r.TaskTimeout, ve)
	if r.CircuitBreaker.Enabled {
		if r.CircuitBreaker.Threshold < 1 {
			ve.Add("runtime.circuit_breaker.threshold must be >= 1")
		}
		validateDuration("runtime.circuit_breaker.timeout", r.CircuitBreaker.Timeout, ve)
	}
}

func validateDiscovery(cfg *Config, ve *ValidationError) {
	d := cfg.Routing.Discovery
	if !d.Direct && !d.Hub && !d.MultiHop {
		ve.Add("routing.discovery: at least one strategy must be enabled")
	}
	if d.MultiHop && d.MaxHops < 2 {
		ve.Add("routing.discovery.max_hops must be >= 2 when multi_hop is enabled")
	}
	if d.Hub && len(d.Hubs) == 0 {
		ve.Add("routing.discovery.hubs must not be empty when the hub strategy is enabled")
	}
	if d.MinSuccessRate < 0 || d.MinSuccessRate > 1 {
		ve.Add("routing.discovery.min_success_rate must be in [0,1], got %v", d.MinSuccessRate)
	}
	if d.MaxDeliveryMinutes <= 0 {
		ve.Add("routing.discovery.max_delivery_minutes must be > 0")
	}
}

func validateCache(cfg *Config, ve *ValidationError) {
	c := cfg.Routing.Cache
	validateDuration("routing.cache.ttl", c.TTL, ve)
	switch c.Backend {
	case "memory", "":
	case "redis":
		if c.Redis.Addr == "" {
			ve.Add("routing.cache.redis.addr is required for the redis backend")
		}
	default:
		ve.Add("routing.cache.backend must be \"memory\" or \"redis\", got %q", c.Backend)
	}
}

func validateScoring(cfg *Config, ve *ValidationError) {
	s := cfg.Routing.Scoring
	if s.MaxCostPct <= 0 {
		ve.Add("routing.scoring.max_cost_pct must be > 0")
	}
	if s.MaxDeliveryMinutes <= 0 {
		ve.Add("routing.scoring.max_delivery_minutes must be > 0")
	}
	if s.PriorityBoost < 1 {
		ve.Add("routing.scoring.priority_boost must be >= 1")
	}
	w := s.Weights
	if w.Cost < 0 || w.Speed < 0 || w.Reliability < 0 || w.Compliance < 0 {
		ve.Add("routing.scoring.weights must not be negative")
	}
	sum := w.Cost + w.Speed + w.Reliability + w.Compliance
	if math.Abs(sum-1.0) > weightSumTolerance {
		ve.Add("routing.scoring.weights must sum to 1.0, got %v", sum)
	}
}

func validateSelection(cfg *Config, ve *ValidationError) {
	p := cfg.Routing.Selection.Policy
	switch p.Backend {
	case "none", "":
	case "linear", "wasm":
		if p.Path == "" {
			ve.Add("routing.selection.policy.path is required for the %s backend", p.Backend)
		}
	default:
		ve.Add("routing.selection.policy.backend must be \"none\", \"linear\" or \"wasm\", got %q", p.Backend)
	}
	if p.MaxCandidates < 1 {
		ve.Add("routing.selection.policy.max_candidates must be >= 1")
	}
	if p.Backend == "wasm" {
		validateDuration("routing.selection.policy.exec_timeout", p.ExecTimeout, ve)
	}
}

var validLinkKinds = map[string]bool{
	"mobile_money": true,
	"bank":         true,
	"bridge":       true,
}

func validateDirectory(cfg *Config, ve *ValidationError) {
	d := cfg.Directory
	switch d.Backend {
	case "memory", "":
	case "sqlite":
		if d.SQLitePath == "" {
			ve.Add("directory.sqlite_path is required for the sqlite backend")
		}
	default:
		ve.Add("directory.backend must be \"memory\" or \"sqlite\", got %q", d.Backend)
	}
	for i, l := range d.Seed {
		if l.Provider == "" {
			ve.Add("directory.seed[%d].provider must be set", i)
		}
		if !validLinkKinds[l.Kind] {
			ve.Add("directory.seed[%d].kind %q is not a valid provider kind", i, l.Kind)
		}
		if l.From == "" || l.To == "" || l.FromCurrency == "" || l.ToCurrency == "" {
			ve.Add("directory.seed[%d] must set from, to, from_currency and to_currency", i)
		}
		if l.Fee < 0 {
			ve.Add("directory.seed[%d].fee must not be negative", i)
		}
		if l.Rate < 0 {
			ve.Add("directory.seed[%d].rate must not be negative", i)
		}
		if l.SuccessRate < 0 || l.SuccessRate > 1 {
			ve.Add("directory.seed[%d].success_rate must be in [0,1]", i)
		}
	}
}

func validateCompliance(cfg *Config, ve *ValidationError) {
	for i, c := range cfg.Compliance.BlockedCorridors {
		parts := strings.Split(c, ":")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			ve.Add("compliance.blocked_corridors[%d] must be \"FROM:TO\", got %q", i, c)
		}
	}
}

func validateFX(cfg *Config, ve *ValidationError) {
	for i, r := range cfg.FX.Rates {
		if r.From == "" || r.To == "" {
			ve.Add("fx.rates[%d] must set from and to", i)
		}
		if r.Rate <= 0 {
			ve.Add("fx.rates[%d].rate must be > 0", i)
		}
	}
}

func validateExecutors(cfg *Config, ve *ValidationError) {
	e := cfg.Executors
	if e.MobileMoney.RatePerSec <= 0 {
		ve.Add("executors.mobile_money.rate_per_sec must be > 0")
	}
	if e.MobileMoney.Burst < 1 {
		ve.Add("executors.mobile_money.burst must be >= 1")
	}
	if e.MobileMoney.MaxAmount <= 0 {
		ve.Add("executors.mobile_money.max_amount must be > 0")
	}
	if e.Bank.Workers < 1 {
		ve.Add("executors.bank.workers must be >= 1")
	}
	if e.Bank.RatePerSec <= 0 {
		ve.Add("executors.bank.rate_per_sec must be > 0")
	}
	if e.Bank.Burst < 1 {
		ve.Add("executors.bank.burst must be >= 1")
	}
	if e.Bank.MinAmount < 0 {
		ve.Add("executors.bank.min_amount must not be negative")
	}
	if e.Bridge.RatePerSec <= 0 {
		ve.Add("executors.bridge.rate_per_sec must be > 0")
	}
	if e.Bridge.Burst < 1 {
		ve.Add("executors.bridge.burst must be >= 1")
	}
}

var validSchedulerActions = map[string]bool{
	"cache_sweep":   true,
	"health_report": true,
}

func validateScheduler(cfg *Config, ve *ValidationError) {
	if !cfg.Scheduler.Enabled {
		return
	}
	for i, t := range cfg.Scheduler.Tasks {
		if t.Name == "" {
			ve.Add("scheduler.tasks[%d].name must be set", i)
		}
		if t.Schedule == "" {
			ve.Add("scheduler.tasks[%d].schedule must be set", i)
		}
		if !validSchedulerActions[t.Action] {
			ve.Add("scheduler.tasks[%d].action %q is not a known action", i, t.Action)
		}
	}
}

// validateDuration records an error when s is not a positive duration.
// Returns the parsed duration for callers that need it, or 0 on failure.
func validateDuration(field, s string, ve *ValidationError) time.Duration {
	if s == "" {
		ve.Add("%s must be set", field)
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		ve.Add("%s is not a valid duration: %q", field, s)
		return 0
	}
	if d <= 0 {
		ve.Add("%s must be positive, got %q", field, s)
		return 0
	}
	return d
}

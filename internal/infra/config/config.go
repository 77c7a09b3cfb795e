package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Logger     LoggerConfig     `yaml:"logger"`
	Tracer     TracerConfig     `yaml:"tracer"`
	Runtime    RuntimeConfig    `yaml:"runtime"`
	Routing    RoutingConfig    `yaml:"routing"`
	Directory  DirectoryConfig  `yaml:"directory"`
	Compliance ComplianceConfig `yaml:"compliance"`
	FX         FXConfig         `yaml:"fx"`
	Executors  ExecutorsConfig  `yaml:"executors"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

// LoggerConfig holds structured logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
	Output string `yaml:"output"` // stdout | stderr | file path
}

// TracerConfig holds OpenTelemetry tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout | noop
}

// RuntimeConfig holds the agent runtime policy. All durations are duration
// strings ("500ms", "30s").
type RuntimeConfig struct {
	MaxConcurrentTasks int           `yaml:"max_concurrent_tasks"`
	RetryAttempts      int           `yaml:"retry_attempts"`
	RetryDelayBase     string        `yaml:"retry_delay_base"`
	TaskTimeout        string        `yaml:"task_timeout"`
	CircuitBreaker     BreakerConfig `yaml:"circuit_breaker"`
}

// BreakerConfig holds circuit breaker settings for a runtime.
type BreakerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Threshold uint32 `yaml:"threshold"` // consecutive failures before opening
	Timeout   string `yaml:"timeout"`   // open period before the next call probes
}

// RoutingConfig groups the route optimization engine settings.
type RoutingConfig struct {
	Discovery DiscoveryConfig `yaml:"discovery"`
	Cache     CacheConfig     `yaml:"cache"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Selection SelectionConfig `yaml:"selection"`
}

// DiscoveryConfig holds candidate discovery settings.
type DiscoveryConfig struct {
	Direct             bool     `yaml:"direct"`
	Hub                bool     `yaml:"hub"`
	MultiHop           bool     `yaml:"multi_hop"`
	MaxHops            int      `yaml:"max_hops"`
	Hubs               []string `yaml:"hubs"` // intermediary market country codes
	MinSuccessRate     float64  `yaml:"min_success_rate"`
	MaxDeliveryMinutes float64  `yaml:"max_delivery_minutes"`
}

// CacheConfig holds route cache settings.
type CacheConfig struct {
	TTL     string      `yaml:"ttl"`     // duration string, default "5m"
	Backend string      `yaml:"backend"` // memory | redis
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds redis connection settings for the cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ScoringConfig holds the multi-objective scoring parameters.
type ScoringConfig struct {
	MaxCostPct         float64       `yaml:"max_cost_pct"`
	MaxDeliveryMinutes float64       `yaml:"max_delivery_minutes"`
	PriorityBoost      float64       `yaml:"priority_boost"` // weight multiplier for prioritized dimensions
	Weights            WeightsConfig `yaml:"weights"`
}

// WeightsConfig holds the scoring dimension weights. The four weights must
// sum to 1.0; this is validated once at load, never at scoring time.
type WeightsConfig struct {
	Cost        float64 `yaml:"cost"`
	Speed       float64 `yaml:"speed"`
	Reliability float64 `yaml:"reliability"`
	Compliance  float64 `yaml:"compliance"`
}

// SelectionConfig holds route selection settings.
type SelectionConfig struct {
	Policy PolicyConfig `yaml:"policy"`
}

// PolicyConfig holds the optional learned selection policy settings.
// Backend "none" (or a missing artifact file) is not an error; the selector
// falls back to its deterministic heuristic.
type PolicyConfig struct {
	Backend       string `yaml:"backend"` // none | linear | wasm
	Path          string `yaml:"path"`
	MaxCandidates int    `yaml:"max_candidates"` // K: feature vector covers up to K candidates
	ExecTimeout   string `yaml:"exec_timeout"`   // wasm guest call budget
}

// DirectoryConfig holds provider directory settings.
type DirectoryConfig struct {
	Backend    string     `yaml:"backend"`     // memory | sqlite
	SQLitePath string     `yaml:"sqlite_path"` // required for the sqlite backend
	Seed       []SeedLink `yaml:"seed"`        // initial links for the memory backend
}

// SeedLink defines one provider link in the directory seed.
type SeedLink struct {
	Provider        string  `yaml:"provider"`
	Kind            string  `yaml:"kind"` // mobile_money | bank | bridge
	From            string  `yaml:"from"`
	To              string  `yaml:"to"`
	FromCurrency    string  `yaml:"from_currency"`
	ToCurrency      string  `yaml:"to_currency"`
	Fee             float64 `yaml:"fee"`
	Rate            float64 `yaml:"rate"` // retention vs mid-market (1.0 = no spread); 0 = price via the FX source
	DeliveryMinutes float64 `yaml:"delivery_minutes"`
	SuccessRate     float64 `yaml:"success_rate"`
}

// ComplianceConfig holds the static deny-list compliance gate. The real
// sanctions rule-base is an external collaborator; these lists serve
// development and tests.
type ComplianceConfig struct {
	BlockedCountries []string `yaml:"blocked_countries"`
	BlockedCorridors []string `yaml:"blocked_corridors"` // "FROM:TO" country pairs
	BlockedProviders []string `yaml:"blocked_providers"`
}

// FXConfig holds the in-memory exchange rate table.
type FXConfig struct {
	Rates []FXRate `yaml:"rates"`
}

// FXRate is one currency pair rate, expressed as the fraction of mid-market
// value retained after conversion (1.0 = no spread).
type FXRate struct {
	From string  `yaml:"from"`
	To   string  `yaml:"to"`
	Rate float64 `yaml:"rate"`
}

// ExecutorsConfig holds per-rail execution settings.
type ExecutorsConfig struct {
	MobileMoney MobileMoneyConfig `yaml:"mobile_money"`
	Bank        BankConfig        `yaml:"bank"`
	Bridge      BridgeConfig      `yaml:"bridge"`
}

// MobileMoneyConfig holds mobile money executor settings.
type MobileMoneyConfig struct {
	RatePerSec float64  `yaml:"rate_per_sec"`
	Burst      int      `yaml:"burst"`
	MaxAmount  float64  `yaml:"max_amount"` // wallet cap per transfer, source currency units
	Currencies []string `yaml:"currencies"` // empty = all
}

// BankConfig holds bank rails executor settings. Workers bounds the pool
// that shields the core from the blocking settlement SDK.
type BankConfig struct {
	Workers    int     `yaml:"workers"`
	RatePerSec float64 `yaml:"rate_per_sec"`
	Burst      int     `yaml:"burst"`
	MinAmount  float64 `yaml:"min_amount"`
}

// BridgeConfig holds blockchain bridge executor settings.
type BridgeConfig struct {
	RatePerSec float64 `yaml:"rate_per_sec"`
	Burst      int     `yaml:"burst"`
}

// SchedulerConfig holds periodic maintenance job settings.
type SchedulerConfig struct {
	Enabled bool                  `yaml:"enabled"`
	Tasks   []ScheduledTaskConfig `yaml:"tasks"`
}

// ScheduledTaskConfig defines a single scheduled task.
type ScheduledTaskConfig struct {
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule"` // cron expression or duration string
	Action   string `yaml:"action"`  // cache_sweep | health_report
	OneShot  bool   `yaml:"one_shot,omitempty"`
}

// Defaults returns a Config populated with production defaults. Loading
// merges the YAML file over these, so absent keys keep their default.
func Defaults() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "stdout",
		},
		Runtime: RuntimeConfig{
			MaxConcurrentTasks: 8,
			RetryAttempts:      2,
			RetryDelayBase:     "500ms",
			TaskTimeout:        "30s",
			CircuitBreaker: BreakerConfig{
				Enabled:   true,
				Threshold: 5,
				Timeout:   "30s",
			},
		},
		Routing: RoutingConfig{
			Discovery: DiscoveryConfig{
				Direct:             true,
				Hub:                true,
				MultiHop:           false,
				MaxHops:            3,
				Hubs:               []string{"US", "GB", "AE"},
				MinSuccessRate:     0.5,
				MaxDeliveryMinutes: 4320,
			},
			Cache: CacheConfig{
				TTL:     "5m",
				Backend: "memory",
			},
			Scoring: ScoringConfig{
				MaxCostPct:         0.05,
				MaxDeliveryMinutes: 1440,
				PriorityBoost:      3.0,
				Weights: WeightsConfig{
					Cost:        0.30,
					Speed:       0.25,
					Reliability: 0.25,
					Compliance:  0.20,
				},
			},
			Selection: SelectionConfig{
				Policy: PolicyConfig{
					Backend:       "none",
					MaxCandidates: 5,
					ExecTimeout:   "2s",
				},
			},
		},
		Directory: DirectoryConfig{
			Backend: "memory",
		},
		Executors: ExecutorsConfig{
			MobileMoney: MobileMoneyConfig{
				RatePerSec: 50,
				Burst:      10,
				MaxAmount:  10000,
			},
			Bank: BankConfig{
				Workers:    4,
				RatePerSec: 20,
				Burst:      5,
				MinAmount:  1,
			},
			Bridge: BridgeConfig{
				RatePerSec: 10,
				Burst:      2,
			},
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
			Tasks: []ScheduledTaskConfig{
				{Name: "cache-sweep", Schedule: "1m", Action: "cache_sweep"},
				{Name: "health-report", Schedule: "5m", Action: "health_report"},
			},
		},
	}
}

// Load reads and validates the configuration at path. A missing file is not
// an error: defaults are validated and returned, so a bare binary runs.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps ROUTERD_* env vars to config fields. Env beats
// file, so deployments can inject connection details and secrets without
// editing YAML.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ROUTERD_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("ROUTERD_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("ROUTERD_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("ROUTERD_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("ROUTERD_CACHE_BACKEND"); v != "" {
		cfg.Routing.Cache.Backend = v
	}
	if v := os.Getenv("ROUTERD_REDIS_ADDR"); v != "" {
		cfg.Routing.Cache.Redis.Addr = v
	}
	if v := os.Getenv("ROUTERD_REDIS_PASSWORD"); v != "" {
		cfg.Routing.Cache.Redis.Password = v
	}
	if v := os.Getenv("ROUTERD_DIRECTORY_BACKEND"); v != "" {
		cfg.Directory.Backend = v
	}
	if v := os.Getenv("ROUTERD_DIRECTORY_SQLITE_PATH"); v != "" {
		cfg.Directory.SQLitePath = v
	}
	if v := os.Getenv("ROUTERD_POLICY_BACKEND"); v != "" {
		cfg.Routing.Selection.Policy.Backend = v
	}
	if v := os.Getenv("ROUTERD_POLICY_PATH"); v != "" {
		cfg.Routing.Selection.Policy.Path = v
	}
}

// Duration parses a validated duration field. Callers run after Validate, so
// a parse failure here indicates a programming error and returns 0.
func Duration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// Package config loads the threadpool command's settings from flags,
// THREADPOOL_* environment variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/utkarsh5026/threadpool/internal/algorithms"
	"github.com/utkarsh5026/threadpool/internal/logger"
	"github.com/utkarsh5026/threadpool/pool"
)

// EnvPrefix prefixes every environment override, e.g. THREADPOOL_WORKERS or
// THREADPOOL_RETRY_MAX_ATTEMPTS.
const EnvPrefix = "THREADPOOL"

// Config is the full set of settings for a pool and the CLI around it.
type Config struct {
	// Workers is the pool size. 0 means one worker per GOMAXPROCS.
	Workers      int    `yaml:"workers"`
	Name         string `yaml:"name,omitempty"`
	LockOSThread bool   `yaml:"lock-os-thread"`

	Logging   logger.Config   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"rate-limit"`
	Retry     RetryConfig     `yaml:"retry"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address of the /metrics endpoint. Empty disables it.
	Addr string `yaml:"addr,omitempty"`
}

// TracingConfig controls per-task spans.
type TracingConfig struct {
	// Enabled prints one span per task to stderr.
	Enabled bool `yaml:"enabled"`
}

// RateLimitConfig caps how fast workers start tasks.
type RateLimitConfig struct {
	// TasksPerSecond of 0 disables rate limiting.
	TasksPerSecond float64 `yaml:"tasks-per-second"`
	Burst          int     `yaml:"burst"`
}

// RetryConfig is the retry policy for tasks that return an error.
// MaxAttempts counts the first run; 1 disables retries.
type RetryConfig struct {
	MaxAttempts  int                    `yaml:"max-attempts"`
	InitialDelay time.Duration          `yaml:"initial-delay"`
	Backoff      algorithms.BackoffKind `yaml:"backoff"`
	MaxDelay     time.Duration          `yaml:"max-delay"`
	Jitter       float64                `yaml:"jitter"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Logging: logger.Default(),
		RateLimit: RateLimitConfig{
			Burst: 1,
		},
		Retry: RetryConfig{
			MaxAttempts:  1,
			InitialDelay: 100 * time.Millisecond,
			Backoff:      algorithms.BackoffExponential,
			MaxDelay:     5 * time.Second,
			Jitter:       0.1,
		},
	}
}

// flagKeys maps each command-line flag onto its config key.
var flagKeys = map[string]string{
	"workers":        "workers",
	"name":           "name",
	"lock-os-thread": "lock-os-thread",
	"log-level":      "logging.level",
	"log-format":     "logging.format",
	"log-file":       "logging.file",
	"metrics-addr":   "metrics.addr",
	"rate-limit":     "rate-limit.tasks-per-second",
	"rate-burst":     "rate-limit.burst",
	"max-attempts":   "retry.max-attempts",
	"retry-delay":    "retry.initial-delay",
	"backoff":        "retry.backoff",
	"max-delay":      "retry.max-delay",
	"trace":          "tracing.enabled",
}

// BindFlags defines the configuration flags on flagSet and returns a viper
// instance bound to them and to the THREADPOOL_ environment.
//
// Precedence, highest first: flags set on the command line, environment,
// config file, flag defaults.
func BindFlags(flagSet *pflag.FlagSet) (*viper.Viper, error) {
	d := Default()

	flagSet.IntP("workers", "w", d.Workers, "Number of workers in the pool (0 = GOMAXPROCS).")
	flagSet.String("name", d.Name, "Pool name used in logs and metrics (default: random).")
	flagSet.Bool("lock-os-thread", d.LockOSThread, "Lock each worker to an OS thread and pin it to a CPU where supported.")
	flagSet.String("log-level", d.Logging.Level, "Log level: debug, info, warn or error.")
	flagSet.String("log-format", d.Logging.Format, "Log format: console or json.")
	flagSet.String("log-file", d.Logging.File, "Also write JSON logs to this file, rotated by size.")
	flagSet.String("metrics-addr", d.Metrics.Addr, "Serve Prometheus metrics on this address, e.g. :9090.")
	flagSet.Float64("rate-limit", d.RateLimit.TasksPerSecond, "Maximum tasks started per second (0 = unlimited).")
	flagSet.Int("rate-burst", d.RateLimit.Burst, "Rate limiter burst size.")
	flagSet.Int("max-attempts", d.Retry.MaxAttempts, "Runs per task before its error is reported (1 = no retries).")
	flagSet.Duration("retry-delay", d.Retry.InitialDelay, "Delay before the first retry.")
	flagSet.String("backoff", d.Retry.Backoff.String(), "Retry backoff: exponential, jittered or decorrelated.")
	flagSet.Duration("max-delay", d.Retry.MaxDelay, "Upper bound on a single retry delay.")
	flagSet.Bool("trace", d.Tracing.Enabled, "Print a span for every task to stderr.")

	v := viper.New()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flagSet.Lookup(name)); err != nil {
			return nil, fmt.Errorf("binding flag %q: %w", name, err)
		}
	}

	// Keys without a flag still need a default so that env and file values
	// reach Unmarshal.
	v.SetDefault("logging.max-size-mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max-backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max-age-days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)
	v.SetDefault("retry.jitter", d.Retry.Jitter)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v, nil
}

// DecodeHook converts strings from flags, env and YAML into durations and
// text-unmarshalable types such as BackoffKind.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

// Load reads path (when non-empty) as YAML into v and decodes the merged
// settings. The result is validated.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error while reading the config file: %w", err)
		}
	}

	cfg := Default()
	err := v.Unmarshal(&cfg, viper.DecodeHook(DecodeHook()), func(decoderConfig *mapstructure.DecoderConfig) {
		decoderConfig.TagName = "yaml"
	})
	if err != nil {
		return Config{}, fmt.Errorf("error while unmarshaling the config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch c.Logging.Format {
	case logger.FormatConsole, logger.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("logging.format must be %q or %q, got %q",
			logger.FormatConsole, logger.FormatJSON, c.Logging.Format))
	}
	if c.RateLimit.TasksPerSecond < 0 {
		errs = append(errs, fmt.Errorf("rate-limit.tasks-per-second must be >= 0, got %v", c.RateLimit.TasksPerSecond))
	}
	if c.RateLimit.TasksPerSecond > 0 && c.RateLimit.Burst < 1 {
		errs = append(errs, fmt.Errorf("rate-limit.burst must be >= 1 when rate limiting, got %d", c.RateLimit.Burst))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.max-attempts must be >= 1, got %d", c.Retry.MaxAttempts))
	}
	if c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < 0 {
		errs = append(errs, errors.New("retry delays must not be negative"))
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		errs = append(errs, fmt.Errorf("retry.jitter must be within [0, 1], got %v", c.Retry.Jitter))
	}

	return errors.Join(errs...)
}

// WorkerCount resolves Workers == 0 to GOMAXPROCS.
func (c Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// PoolOptions translates the settings into pool options. reg may be nil to
// leave metrics off.
func (c Config) PoolOptions(log *zap.Logger, reg prometheus.Registerer) []pool.Option {
	opts := []pool.Option{
		pool.WithLogger(log),
		pool.WithRetryPolicy(c.Retry.MaxAttempts, c.Retry.InitialDelay),
		pool.WithBackoff(c.Retry.Backoff, c.Retry.MaxDelay, c.Retry.Jitter),
	}
	if c.Name != "" {
		opts = append(opts, pool.WithName(c.Name))
	}
	if reg != nil {
		opts = append(opts, pool.WithMetrics(reg))
	}
	if c.RateLimit.TasksPerSecond > 0 {
		opts = append(opts, pool.WithRateLimit(c.RateLimit.TasksPerSecond, c.RateLimit.Burst))
	}
	if c.LockOSThread {
		opts = append(opts, pool.WithThreadAffinity())
	}
	return opts
}

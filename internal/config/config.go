// Package config holds configuration types and loading logic for the
// deadline command.
// Fields are only added, never renamed or removed.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/snehjoshi/deadline/pkg/wake"
)

// Config is the root configuration.
type Config struct {
	Timer   TimerConfig   `yaml:"timer"`
	Wake    WakeConfig    `yaml:"wake"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// TimerConfig holds defaults applied to every deadline.
// Durations use time.ParseDuration syntax; an empty string means unset.
type TimerConfig struct {
	// MaxInterval caps each native wait. Empty or "0s" means unbounded.
	MaxInterval string `yaml:"max_interval"`
	// MaxDelay is the host's maximum single-shot timer delay. Empty keeps the
	// library default.
	MaxDelay string `yaml:"max_delay"`
}

// WakeConfig controls which host observations turn into wake signals.
type WakeConfig struct {
	Enabled bool `yaml:"enabled"`
	// Signals lists the wake signals a deadline subscribes to.
	Signals         []string `yaml:"signals"`
	DriftInterval   string   `yaml:"drift_interval"`
	DriftThreshold  string   `yaml:"drift_threshold"`
	NetworkInterval string   `yaml:"network_interval"`
	Continue        bool     `yaml:"continue"`
}

// LogLevel is the minimum level written to the log.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info" // default
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogJSON LogFormat = "json"
	LogText LogFormat = "text" // default
)

// LogConfig controls structured logging.
type LogConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns a Config populated with safe, sensible defaults.
// It is the canonical source of truth for default values.
func Default() *Config {
	return &Config{
		Timer: TimerConfig{
			MaxInterval: "",
			MaxDelay:    "",
		},
		Wake: WakeConfig{
			Enabled:         true,
			Signals:         []string{string(wake.Resume), string(wake.Online), string(wake.Continue)},
			DriftInterval:   wake.DefaultDriftInterval.String(),
			DriftThreshold:  wake.DefaultDriftThreshold.String(),
			NetworkInterval: wake.DefaultNetworkInterval.String(),
			Continue:        true,
		},
		Log: LogConfig{
			Level:  LogInfo,
			Format: LogText,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
	}
}

// Load reads a YAML config file at path and overlays it on top of Default().
// If the file does not exist the default config is returned without error.
//
// After loading the file, environment variables are applied as overrides:
//
//	DEADLINE_LOG_LEVEL     sets log.level
//	DEADLINE_LOG_FORMAT    sets log.format
//	DEADLINE_MAX_INTERVAL  sets timer.max_interval
//	DEADLINE_METRICS_ADDR  sets metrics.addr and enables metrics
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays environment variable overrides onto cfg.
func applyEnv(cfg *Config) {
	if v := os.Getenv("DEADLINE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = LogLevel(v)
	}
	if v := os.Getenv("DEADLINE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = LogFormat(v)
	}
	if v := os.Getenv("DEADLINE_MAX_INTERVAL"); v != "" {
		cfg.Timer.MaxInterval = v
	}
	if v := os.Getenv("DEADLINE_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
		cfg.Metrics.Enabled = true
	}
}

// Validate checks that the config values are consistent and within acceptable
// ranges. It returns the first error found.
func (c *Config) Validate() error {
	for _, f := range []struct{ name, val string }{
		{"timer.max_interval", c.Timer.MaxInterval},
		{"timer.max_delay", c.Timer.MaxDelay},
		{"wake.drift_interval", c.Wake.DriftInterval},
		{"wake.drift_threshold", c.Wake.DriftThreshold},
		{"wake.network_interval", c.Wake.NetworkInterval},
	} {
		d, err := parseDuration(f.val)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", f.name)
		}
	}
	for _, s := range c.Wake.Signals {
		switch wake.Signal(s) {
		case wake.Resume, wake.Online, wake.Continue:
		default:
			return fmt.Errorf("wake.signals: unknown signal %q", s)
		}
	}
	switch c.Log.Level {
	case LogDebug, LogInfo, LogWarn, LogError:
	default:
		return errors.New(`log.level must be one of "debug", "info", "warn", "error"`)
	}
	switch c.Log.Format {
	case LogJSON, LogText:
	default:
		return errors.New(`log.format must be one of "json", "text"`)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("metrics.addr must not be empty when metrics are enabled")
	}
	return nil
}

// parseDuration parses s with time.ParseDuration; the empty string is zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// mustDuration is parseDuration for values already checked by Validate.
func mustDuration(s string) time.Duration {
	d, _ := parseDuration(s)
	return d
}

// MaxIntervalDuration returns timer.max_interval. Call Validate first.
func (t TimerConfig) MaxIntervalDuration() time.Duration { return mustDuration(t.MaxInterval) }

// MaxDelayDuration returns timer.max_delay. Call Validate first.
func (t TimerConfig) MaxDelayDuration() time.Duration { return mustDuration(t.MaxDelay) }

// WatcherOptions converts the wake section into Watcher options.
// Call Validate first.
func (w WakeConfig) WatcherOptions() []wake.WatcherOption {
	return []wake.WatcherOption{
		wake.WithDriftInterval(mustDuration(w.DriftInterval)),
		wake.WithDriftThreshold(mustDuration(w.DriftThreshold)),
		wake.WithNetworkInterval(mustDuration(w.NetworkInterval)),
		wake.WithContinue(w.Continue),
	}
}

// SignalSet returns the configured wake signals. A disabled wake section
// yields an empty set.
func (w WakeConfig) SignalSet() []wake.Signal {
	if !w.Enabled {
		return nil
	}
	out := make([]wake.Signal, len(w.Signals))
	for i, s := range w.Signals {
		out[i] = wake.Signal(s)
	}
	return out
}

// SlogLevel maps the configured level onto slog.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package config defines service configuration and its loading hooks.
//
// Conventions:
//   - New(ctx) returns a Config filled with defaults.
//   - Load(ctx) layers a YAML file and RALLY_* environment variables on top.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBDriver is postgres or sqlite.
	DBDriver string `koanf:"db_driver"`

	// DatabaseURL is the driver-specific DSN.
	DatabaseURL string `koanf:"database_url"`

	// SuggestThreshold is the exclusive similarity floor for suggestions.
	SuggestThreshold float64 `koanf:"suggest_threshold"`

	// AutoLinkThreshold is the inclusive similarity a single candidate
	// needs to be linked by the batch.
	AutoLinkThreshold float64 `koanf:"autolink_threshold"`

	// MaxSuggestions caps suggestion lists; 0 means no cap.
	MaxSuggestions int `koanf:"max_suggestions"`

	// PointsTable overrides championship points by position. Empty means
	// the standard 25-18-15-12-10-8-6-4-2-1 table.
	PointsTable []int `koanf:"points_table"`

	// MaxImportBytes bounds the size of an uploaded HTML results page.
	MaxImportBytes int64 `koanf:"max_import_bytes"`

	// AutoLinkOnSubmit schedules a background auto-link batch after each
	// accepted submission.
	AutoLinkOnSubmit bool `koanf:"autolink_on_submit"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsBuckets overrides the auto-link batch duration buckets, in seconds.
	MetricsBuckets []float64 `koanf:"metrics_buckets"`

	// MetricsLabels are constant labels as "key=value" pairs.
	MetricsLabels []string `koanf:"metrics_labels"`
}

// New creates a Config with defaults. The context is reserved for loaders
// that need it.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		DBDriver:          "sqlite",
		DatabaseURL:       "file:rally.db",
		SuggestThreshold:  0.6,
		AutoLinkThreshold: 0.9,
		MaxSuggestions:    10,
		MaxImportBytes:    5 << 20,
		MetricsNamespace:  "rally",
		MetricsSubsystem:  "results",
	}
}

// Validate checks value ranges and required fields.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DatabaseURL) == "":
		return fmt.Errorf("%w: database_url must not be empty", ErrInvalidConfig)
	case c.SuggestThreshold < 0 || c.SuggestThreshold >= 1:
		return fmt.Errorf("%w: suggest_threshold must be in [0, 1), got %v", ErrInvalidConfig, c.SuggestThreshold)
	case c.AutoLinkThreshold <= 0 || c.AutoLinkThreshold > 1:
		return fmt.Errorf("%w: autolink_threshold must be in (0, 1], got %v", ErrInvalidConfig, c.AutoLinkThreshold)
	case c.MaxSuggestions < 0:
		return fmt.Errorf("%w: max_suggestions must not be negative", ErrInvalidConfig)
	case c.MaxImportBytes <= 0:
		return fmt.Errorf("%w: max_import_bytes must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.DBDriver) {
	case "postgres", "postgresql", "pg", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("%w: unsupported db_driver %q", ErrInvalidConfig, c.DBDriver)
	}
	if strings.TrimSpace(c.MetricsNamespace) == "" {
		return fmt.Errorf("%w: metrics_namespace must not be empty", ErrInvalidConfig)
	}
	for i := 1; i < len(c.MetricsBuckets); i++ {
		if c.MetricsBuckets[i] <= c.MetricsBuckets[i-1] {
			return fmt.Errorf("%w: metrics_buckets must increase", ErrInvalidConfig)
		}
	}
	for _, l := range c.MetricsLabels {
		if k, _, ok := strings.Cut(l, "="); !ok || strings.TrimSpace(k) == "" {
			return fmt.Errorf("%w: metrics_labels entry %q is not key=value", ErrInvalidConfig, l)
		}
	}
	for i, p := range c.PointsTable {
		if p < 0 {
			return fmt.Errorf("%w: points_table[%d] is negative", ErrInvalidConfig, i)
		}
	}
	return nil
}

// ConstLabels returns MetricsLabels as a map. Later pairs win.
func (c *Config) ConstLabels() map[string]string {
	out := make(map[string]string, len(c.MetricsLabels))
	for _, l := range c.MetricsLabels {
		if k, v, ok := strings.Cut(l, "="); ok {
			out[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return out
}

// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - Load layers a YAML file and VAXDASH_* environment variables on top.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/vaxdash/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Dataset sources: a local path or an http(s) URL each.
	SnapshotSource string `koanf:"snapshot_source"`
	WeeklySource   string `koanf:"weekly_source"`
	NationalSource string `koanf:"national_source"`
	RankingSource  string `koanf:"ranking_source"`

	// MinDate and MaxDate bound the date control, DefaultDate is its initial value.
	MinDate     string `koanf:"min_date"`
	MaxDate     string `koanf:"max_date"`
	DefaultDate string `koanf:"default_date"`

	// MaxShowCount caps the ranking show control; DefaultShowCount is used when absent.
	MaxShowCount     int `koanf:"max_show_count"`
	DefaultShowCount int `koanf:"default_show_count"`

	// MaxLagWeeks caps the weekly lag control.
	MaxLagWeeks int `koanf:"max_lag_weeks"`

	// FetchRetries and FetchTimeoutMS govern remote dataset downloads.
	FetchRetries   int `koanf:"fetch_retries"`
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// MapExclude drops locations from the map; RankingExclude from per-state views.
	MapExclude     []string `koanf:"map_exclude"`
	RankingExclude []string `koanf:"ranking_exclude"`

	// MetricsEnabled toggles Prometheus collection; MetricsRefreshMS paces the gauge updaters.
	MetricsEnabled   bool `koanf:"metrics_enabled"`
	MetricsRefreshMS int  `koanf:"metrics_refresh_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		SnapshotSource:   "data/df1.csv",
		WeeklySource:     "data/df2.csv",
		NationalSource:   "data/df3.csv",
		RankingSource:    "data/df4.csv",
		MinDate:          "2020-12-14",
		MaxDate:          "2022-04-14",
		DefaultDate:      "2022-04-14",
		MaxShowCount:     50,
		DefaultShowCount: 5,
		MaxLagWeeks:      50,
		FetchRetries:     5,
		FetchTimeoutMS:   10_000,
		MapExclude:       []string{"PR"},
		RankingExclude:   []string{"US"},
		MetricsEnabled:   true,
		MetricsRefreshMS: 10_000,
	}
}

// Sources returns the configured dataset sources keyed by dataset name.
func (c *Config) Sources() map[string]string {
	return map[string]string{
		model.DatasetSnapshot: c.SnapshotSource,
		model.DatasetWeekly:   c.WeeklySource,
		model.DatasetNational: c.NationalSource,
		model.DatasetRanking:  c.RankingSource,
	}
}

// DateRange returns the parsed min, max and default dates.
func (c *Config) DateRange() (minDate, maxDate, defDate model.Date, err error) {
	if minDate, err = model.ParseDate(c.MinDate); err != nil {
		return minDate, maxDate, defDate, fmt.Errorf("min_date: %w: %w", ErrInvalidConfig, err)
	}
	if maxDate, err = model.ParseDate(c.MaxDate); err != nil {
		return minDate, maxDate, defDate, fmt.Errorf("max_date: %w: %w", ErrInvalidConfig, err)
	}
	if defDate, err = model.ParseDate(c.DefaultDate); err != nil {
		return minDate, maxDate, defDate, fmt.Errorf("default_date: %w: %w", ErrInvalidConfig, err)
	}
	return minDate, maxDate, defDate, nil
}

// MetricsRefreshInterval returns the gauge refresh period.
func (c *Config) MetricsRefreshInterval() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("addr must not be empty: %w", ErrInvalidConfig)
	}
	for name, src := range c.Sources() {
		if strings.TrimSpace(src) == "" {
			return fmt.Errorf("%s source must not be empty: %w", name, ErrInvalidConfig)
		}
	}
	minDate, maxDate, defDate, err := c.DateRange()
	if err != nil {
		return err
	}
	if minDate.After(maxDate) {
		return fmt.Errorf("min_date %s after max_date %s: %w", minDate, maxDate, ErrInvalidConfig)
	}
	if defDate.Before(minDate) || defDate.After(maxDate) {
		return fmt.Errorf("default_date %s outside [%s, %s]: %w", defDate, minDate, maxDate, ErrInvalidConfig)
	}
	if c.MaxShowCount < 1 {
		return fmt.Errorf("max_show_count must be positive: %w", ErrInvalidConfig)
	}
	if c.DefaultShowCount < 1 || c.DefaultShowCount > c.MaxShowCount {
		return fmt.Errorf("default_show_count %d outside [1, %d]: %w", c.DefaultShowCount, c.MaxShowCount, ErrInvalidConfig)
	}
	if c.MaxLagWeeks < 0 {
		return fmt.Errorf("max_lag_weeks must not be negative: %w", ErrInvalidConfig)
	}
	if c.FetchRetries < 0 || c.FetchTimeoutMS <= 0 {
		return fmt.Errorf("fetch_retries/fetch_timeout_ms out of range: %w", ErrInvalidConfig)
	}
	if c.MetricsRefreshMS <= 0 {
		return fmt.Errorf("metrics_refresh_ms must be positive: %w", ErrInvalidConfig)
	}
	return nil
}

// Package probe sweeps a running vaxdash server over a date range and checks
// the views it returns against the pipeline invariants.
package probe

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/vaxdash/internal/domain/model"
)

// Default configuration constants.
const (
	DefaultBaseURL     = "http://localhost:9080"
	DefaultStepDays    = 7
	DefaultConcurrency = 4
	DefaultTimeout     = 30 * time.Second
	DefaultRetries     = 3
)

// Config holds the settings of one sweep.
type Config struct {
	BaseURL     string
	From        model.Date
	To          model.Date
	StepDays    int
	Concurrency int
	Timeout     time.Duration // per request
	Retries     int
	Output      string // report path; empty writes no file

	// Controls sent with every request. Empty values use the server defaults.
	Mode      string
	Detail    string
	Criterion string
	Direction string
	Show      int
	Lag       int
}

// Validate checks the sweep bounds.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base url is empty", ErrInvalidConfig)
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("%w: base url: %w", ErrInvalidConfig, err)
	}
	if c.From.IsZero() || c.To.IsZero() {
		return fmt.Errorf("%w: from and to are required", ErrInvalidConfig)
	}
	if c.From.After(c.To) {
		return fmt.Errorf("%w: from %s is after to %s", ErrInvalidConfig, c.From, c.To)
	}
	if c.StepDays < 1 {
		return fmt.Errorf("%w: step must be at least 1 day, got %d", ErrInvalidConfig, c.StepDays)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, c.Concurrency)
	}
	if c.Lag < 0 {
		return fmt.Errorf("%w: lag must not be negative, got %d", ErrInvalidConfig, c.Lag)
	}
	return nil
}

// Dates lists the sweep dates from From to To inclusive, StepDays apart.
func (c *Config) Dates() []model.Date {
	var out []model.Date
	for d := c.From; !d.After(c.To); d = d.AddDays(c.StepDays) {
		out = append(out, d)
	}
	return out
}

// query builds the /views query for date.
func (c *Config) query(date model.Date) url.Values {
	q := url.Values{}
	q.Set("date", date.String())
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("mode", c.Mode)
	set("detail", c.Detail)
	set("criterion", c.Criterion)
	set("direction", c.Direction)
	if c.Show > 0 {
		q.Set("show", strconv.Itoa(c.Show))
	}
	q.Set("lag", strconv.Itoa(c.Lag))
	return q
}

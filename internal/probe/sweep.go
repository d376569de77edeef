package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	service "github.com/okian/vaxdash/internal/app"
	"github.com/okian/vaxdash/internal/domain/model"
	"github.com/okian/vaxdash/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	reportPermission    = 0600
)

// PassSummary is the per-date line of a report.
type PassSummary struct {
	Date        model.Date `json:"date"`
	PassID      string     `json:"pass_id"`
	Map         string     `json:"map"`
	Weekly      string     `json:"weekly"`
	Proportions string     `json:"proportions"`
	Ranking     string     `json:"ranking"`
	MapRows     int        `json:"map_rows"`
	Buckets     int        `json:"buckets"`
	Ranked      int        `json:"ranked"`
	TotalCases  float64    `json:"total_cases"`
	TookMS      float64    `json:"took_ms"`
}

// Report is the outcome of a sweep.
type Report struct {
	BaseURL    string        `json:"base_url"`
	From       model.Date    `json:"from"`
	To         model.Date    `json:"to"`
	StepDays   int           `json:"step_days"`
	Passes     []PassSummary `json:"passes"`
	Violations []Violation   `json:"violations"`
	Started    time.Time     `json:"started"`
	Duration   string        `json:"duration"`
}

// OK reports whether no check failed.
func (r *Report) OK() bool { return len(r.Violations) == 0 }

func summarize(v service.Views) PassSummary {
	return PassSummary{
		Date:        v.Controls.Date,
		PassID:      v.PassID,
		Map:         string(v.Map.Status),
		Weekly:      string(v.Weekly.Status),
		Proportions: string(v.Proportions.Status),
		Ranking:     string(v.Ranking.Status),
		MapRows:     len(v.Map.Rows),
		Buckets:     len(v.Weekly.Buckets),
		Ranked:      len(v.Ranking.Rows),
		TotalCases:  v.Weekly.TotalCases,
		TookMS:      v.TookMS,
	}
}

// Sweep fetches /views for every date of cfg and verifies the results. A
// failed request aborts the sweep; failed checks are collected in the report
// and surface as ErrViolations. A nil client is built from cfg.
func Sweep(ctx context.Context, cfg *Config, client *Client) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = NewClient(cfg.BaseURL, cfg.Timeout, cfg.Retries, nil)
	}
	log := logger.Get().Named("probe")
	started := time.Now()
	dates := cfg.Dates()

	log.Info(ctx, "starting sweep",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("from", cfg.From.String()),
		logger.String("to", cfg.To.String()),
		logger.Int("dates", len(dates)),
		logger.Int("concurrency", cfg.Concurrency))

	if err := client.Health(ctx); err != nil {
		return nil, err
	}

	passes := make([]service.Views, len(dates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i, d := range dates {
		g.Go(func() error {
			v, err := client.Views(gctx, cfg.query(d))
			if err != nil {
				return fmt.Errorf("date %s: %w", d, err)
			}
			passes[i] = v
			log.Debug(gctx, "pass fetched",
				logger.String("date", d.String()),
				logger.String("pass_id", v.PassID))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		BaseURL:    cfg.BaseURL,
		From:       cfg.From,
		To:         cfg.To,
		StepDays:   cfg.StepDays,
		Passes:     make([]PassSummary, 0, len(passes)),
		Violations: []Violation{},
		Started:    started,
	}
	for _, v := range passes {
		report.Passes = append(report.Passes, summarize(v))
		report.Violations = append(report.Violations, VerifyViews(v)...)
	}
	report.Violations = append(report.Violations, VerifyTotals(passes)...)
	sort.SliceStable(report.Violations, func(i, j int) bool {
		return report.Violations[i].Date.Before(report.Violations[j].Date)
	})
	report.Duration = time.Since(started).String()

	for _, v := range report.Violations {
		log.Warn(ctx, "check failed",
			logger.String("date", v.Date.String()),
			logger.String("check", v.Check),
			logger.String("message", v.Message))
	}
	log.Info(ctx, "sweep finished",
		logger.Int("passes", len(report.Passes)),
		logger.Int("violations", len(report.Violations)),
		logger.String("duration", report.Duration))

	if !report.OK() {
		return report, fmt.Errorf("%w: %d", ErrViolations, len(report.Violations))
	}
	return report, nil
}

// WriteReport writes r as indented JSON to path, creating its directory.
func WriteReport(path string, r *Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), reportPermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

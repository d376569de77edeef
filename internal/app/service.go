// Package service provides the dashboard pipeline service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/vaxdash/internal/adapters/repository"
	"github.com/okian/vaxdash/internal/domain/model"
	"github.com/okian/vaxdash/pkg/logger"
	"github.com/okian/vaxdash/pkg/metrics"
)

// Service recomputes dashboard views from the loaded tables. Tables are
// read-only once loaded; every request runs its own pass.
type Service struct {
	mu sync.RWMutex

	store    repository.Store
	external bool // store supplied by caller, not loaded by Start

	// Loading
	sources      map[string]string
	fetchRetries int
	fetchTimeout time.Duration

	// Pipeline configuration
	mapExclude     []string
	rankingExclude []string
	minDate        model.Date
	maxDate        model.Date
	defaultDate    model.Date
	defaultShow    int
	maxShow        int
	maxLag         int

	validate *validator.Validate

	// State
	started    bool
	recomputes atomic.Int64
	lastPass   atomic.Value // string

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore serves tables from store instead of loading the sources on Start.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			s.external = true
		}
	}
}

// WithSources sets the dataset sources loaded by Start, keyed by dataset name.
func WithSources(sources map[string]string) Option {
	return func(s *Service) {
		if len(sources) > 0 {
			s.sources = sources
		}
	}
}

// WithFetchRetries bounds remote fetch retries and the per-attempt timeout.
func WithFetchRetries(retries int, timeout time.Duration) Option {
	return func(s *Service) {
		if retries >= 0 {
			s.fetchRetries = retries
		}
		if timeout > 0 {
			s.fetchTimeout = timeout
		}
	}
}

// WithMapExclusions sets the locations dropped from the map view.
func WithMapExclusions(locations ...string) Option {
	return func(s *Service) {
		s.mapExclude = locations
	}
}

// WithRankingExclusions sets the locations dropped from the ranking and detail views.
func WithRankingExclusions(locations ...string) Option {
	return func(s *Service) {
		s.rankingExclude = locations
	}
}

// WithDateRange bounds the date control and sets its default.
func WithDateRange(minDate, maxDate, defaultDate model.Date) Option {
	return func(s *Service) {
		if minDate.After(maxDate) || defaultDate.Before(minDate) || defaultDate.After(maxDate) {
			return
		}
		s.minDate, s.maxDate, s.defaultDate = minDate, maxDate, defaultDate
	}
}

// WithShowLimits sets the default and maximum ranking show count.
func WithShowLimits(defaultShow, maxShow int) Option {
	return func(s *Service) {
		if defaultShow >= 1 && maxShow >= defaultShow {
			s.defaultShow, s.maxShow = defaultShow, maxShow
		}
	}
}

// WithMaxLag caps the weekly lag control.
func WithMaxLag(weeks int) Option {
	return func(s *Service) {
		if weeks >= 0 {
			s.maxLag = weeks
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		sources: map[string]string{
			model.DatasetSnapshot: "data/df1.csv",
			model.DatasetWeekly:   "data/df2.csv",
			model.DatasetNational: "data/df3.csv",
			model.DatasetRanking:  "data/df4.csv",
		},
		fetchRetries:   5,
		fetchTimeout:   10 * time.Second,
		mapExclude:     []string{"PR"},
		rankingExclude: []string{"US"},
		minDate:        model.NewDate(2020, 12, 14),
		maxDate:        model.NewDate(2022, 4, 14),
		defaultDate:    model.NewDate(2022, 4, 14),
		defaultShow:    5,
		maxShow:        50,
		maxLag:         50,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.validate = newValidator(s)
	s.lastPass.Store("")
	return s
}

// Start loads the datasets unless a store was supplied.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting dashboard service...")

	if !s.external {
		store, err := repository.Load(ctx, s.sources,
			repository.WithFetchRetries(s.fetchRetries),
			repository.WithFetchTimeout(s.fetchTimeout),
			repository.WithLogger(s.logger.Named("repository")),
		)
		if err != nil {
			metrics.RecordErrorByComponent("service", "start")
			s.logger.Error(ctx, "failed to load datasets", logger.Error(err))
			return err
		}
		s.store = store
	}

	s.started = true
	s.logger.Info(ctx, "dashboard service started",
		logger.Any("datasets", s.store.Names()),
		logger.String("min_date", s.minDate.String()),
		logger.String("max_date", s.maxDate.String()),
		logger.Int("max_show", s.maxShow),
	)
	return nil
}

// Stop marks the service stopped. Loaded tables are released unless they
// came from WithStore.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if !s.external {
		s.store = nil
	}
	s.started = false
	s.logger.Info(context.Background(), "dashboard service stopped")
}

// tables returns the store of a started service.
func (s *Service) tables() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.store == nil {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"minDate":        s.minDate.String(),
		"maxDate":        s.maxDate.String(),
		"defaultDate":    s.defaultDate.String(),
		"maxShow":        s.maxShow,
		"maxLag":         s.maxLag,
		"recomputeCount": s.recomputes.Load(),
		"lastPassId":     s.lastPass.Load(),
	}

	if s.started && s.store != nil {
		ctx := context.Background()
		datasets := make(map[string]interface{}, len(model.Datasets))
		for _, name := range s.store.Names() {
			t, err := s.store.Table(ctx, name)
			if err != nil {
				continue
			}
			entry := map[string]interface{}{
				"rows":         t.Len(),
				"invalidCells": t.Invalid,
			}
			if first, last, ok := t.DateRange(); ok {
				entry["firstDate"] = first.String()
				entry["lastDate"] = last.String()
			}
			datasets[name] = entry
			metrics.UpdateDatasetRows(name, t.Len())
		}
		stats["datasets"] = datasets
	}

	return stats
}

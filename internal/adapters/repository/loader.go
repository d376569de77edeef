package repository

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/vaxdash/internal/domain/model"
	"github.com/okian/vaxdash/pkg/logger"
	"github.com/okian/vaxdash/pkg/metrics"
)

const (
	defaultFetchRetries  = 5
	defaultFetchTimeout  = 10 * time.Second
	defaultRetryInterval = 500 * time.Millisecond
)

type loader struct {
	client        *http.Client
	retries       int
	timeout       time.Duration
	retryInterval time.Duration
	log           logger.Logger
}

func newLoader(opts ...Option) *loader {
	l := &loader{
		client:        http.DefaultClient,
		retries:       defaultFetchRetries,
		timeout:       defaultFetchTimeout,
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.Get().Named("repository")
	}
	return l
}

// Load reads every source concurrently and returns a store holding the
// resulting tables. sources maps dataset name to a path or http(s) URL. The
// first failure cancels the remaining loads.
func Load(ctx context.Context, sources map[string]string, opts ...Option) (*MemoryStore, error) {
	l := newLoader(opts...)

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	tables := make([]*model.Table, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			t, err := l.loadTable(gctx, name, sources[name])
			if err != nil {
				metrics.RecordErrorByComponent("repository", "load")
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewMemoryStore(tables...), nil
}

func (l *loader) loadTable(ctx context.Context, name, src string) (*model.Table, error) {
	start := time.Now()

	rc, err := l.open(ctx, name, src)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	t, err := ParseCSV(name, rc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	took := time.Since(start)
	metrics.RecordDatasetLoadLatency(name, float64(took.Microseconds())/1000)
	metrics.UpdateDatasetRows(name, t.Len())
	metrics.UpdateDatasetInvalidCells(name, t.Invalid)

	first, last, _ := t.DateRange()
	l.log.Info(ctx, "dataset loaded",
		logger.String("dataset", name),
		logger.Int("rows", t.Len()),
		logger.Int("invalid_cells", t.Invalid),
		logger.String("first_date", first.String()),
		logger.String("last_date", last.String()),
		logger.Duration("took", took),
	)
	return t, nil
}

package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/okian/vaxdash/pkg/logger"
	"github.com/okian/vaxdash/pkg/metrics"
)

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// open returns a reader over the source of dataset name: a local file or the
// body of a successful GET.
func (l *loader) open(ctx context.Context, name, src string) (io.ReadCloser, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptySource)
	}
	if !isRemote(src) {
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("%s: open %s: %w", name, src, err)
		}
		return f, nil
	}
	body, err := l.fetch(ctx, name, src)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

// fetch downloads src with exponential backoff. Client errors (4xx) are not
// retried.
func (l *loader) fetch(ctx context.Context, name, src string) ([]byte, error) {
	var body []byte
	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, src, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %s: %w", ErrFetch, name, err))
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrFetch, name, err)
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return backoff.Permanent(fmt.Errorf("%w: %s: status %d", ErrFetch, name, resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("%w: %s: status %d", ErrFetch, name, resp.StatusCode)
		}
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: %s: read body: %w", ErrFetch, name, err)
		}
		body = b
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = l.retryInterval
	eb.MaxInterval = 30 * l.retryInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(l.retries)), ctx)

	notify := func(err error, wait time.Duration) {
		metrics.RecordDatasetFetchRetry(name)
		l.log.Warn(ctx, "dataset fetch failed, retrying",
			logger.String("dataset", name),
			logger.Duration("wait", wait),
			logger.Error(err),
		)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return body, nil
}

package repository

import (
	"net/http"
	"time"

	"github.com/okian/vaxdash/pkg/logger"
)

// Option applies a configuration option to Load.
type Option func(*loader)

// WithHTTPClient sets the client used for http(s) sources.
func WithHTTPClient(c *http.Client) Option {
	return func(l *loader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithFetchRetries bounds the retries of one remote fetch. Zero disables retries.
func WithFetchRetries(n int) Option {
	return func(l *loader) {
		if n >= 0 {
			l.retries = n
		}
	}
}

// WithFetchTimeout sets the timeout of a single fetch attempt.
func WithFetchTimeout(d time.Duration) Option {
	return func(l *loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithRetryInterval sets the initial backoff interval between fetch attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(l *loader) {
		if d > 0 {
			l.retryInterval = d
		}
	}
}

// WithLogger sets the logger used while loading.
func WithLogger(lg logger.Logger) Option {
	return func(l *loader) {
		if lg != nil {
			l.log = lg
		}
	}
}

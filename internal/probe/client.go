package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	service "github.com/okian/vaxdash/internal/app"
	"github.com/okian/vaxdash/pkg/logger"
)

const maxErrorBody = 512

// Client fetches views from a vaxdash server.
type Client struct {
	baseURL string
	http    *http.Client
	retries int
	log     logger.Logger
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration, retries int, log logger.Logger) *Client {
	if log == nil {
		log = logger.Get().Named("probe")
	}
	if retries < 0 {
		retries = 0
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		retries: retries,
		log:     log,
	}
}

// Health checks the liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/healthz", nil, &body); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if body.Status != "ok" {
		return fmt.Errorf("%w: status %q", ErrUnhealthy, body.Status)
	}
	return nil
}

// Views fetches one full recomputation pass.
func (c *Client) Views(ctx context.Context, q url.Values) (service.Views, error) {
	var v service.Views
	err := c.get(ctx, "/views", q, &v)
	return v, err
}

// get performs a GET with retries on transport errors and 5xx responses and
// decodes the JSON body into out. 4xx responses fail at once.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			err := fmt.Errorf("%w: GET %s: status %d: %s", ErrRequest, path, resp.StatusCode, strings.TrimSpace(string(msg)))
			if resp.StatusCode < http.StatusInternalServerError {
				return backoff.Permanent(err)
			}
			return err
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: GET %s: decode: %w", ErrRequest, path, err))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.retries)), ctx)

	return backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		c.log.Warn(ctx, "request failed, retrying",
			logger.String("path", path),
			logger.Duration("wait", wait),
			logger.Error(err))
	})
}

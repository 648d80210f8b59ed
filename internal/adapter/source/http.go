package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
)

const (
	defaultMaxRetries = 3
	initialBackoff    = 200 * time.Millisecond
	maxBackoff        = 5 * time.Second
)

// errRetryable marks responses worth another attempt (5xx and 429).
var errRetryable = errors.New("retryable upstream status")

// HTTP fetches the accident file from a remote URL. Requests go through a
// circuit breaker and are retried with exponential backoff on 5xx and 429.
type HTTP struct {
	url        string
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// NewHTTP creates a remote source for rawURL with a per-request timeout.
func NewHTTP(rawURL string, timeout time.Duration, logger *slog.Logger) *HTTP {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "accident-source",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &HTTP{
		url:        rawURL,
		client:     &http.Client{Timeout: timeout},
		breaker:    cb,
		maxRetries: defaultMaxRetries,
		backoff:    initialBackoff,
		logger:     logger.With("component", "http_source"),
	}
}

// Key returns the URL. Remote content changes are picked up through the
// cache TTL or an explicit reload.
func (h *HTTP) Key(_ context.Context) (string, error) {
	return h.url, nil
}

// Open downloads the file. 404 and 410 map to domain.ErrFileNotFound, as do
// exhausted retries and an open breaker.
func (h *HTTP) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := h.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if resp.Header.Get("Content-Encoding") == "gzip" || h.gzipped(resp) {
		rc, err := newGzipReadCloser(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: decompress %s: %w", domain.ErrParse, h.url, err)
		}
		return rc, nil
	}
	return resp.Body, nil
}

func (h *HTTP) String() string { return h.url }

func (h *HTTP) fetch(ctx context.Context) (*http.Response, error) {
	backoff := h.backoff
	var lastErr error

	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			h.logger.Warn("retrying source download", "url", h.url, "attempt", attempt, "error", lastErr)
			if !retry.SleepWithContext(ctx, backoff) {
				return nil, fmt.Errorf("%w: %s: %w", domain.ErrFileNotFound, h.url, ctx.Err())
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
		}

		resp, err := h.breaker.Execute(func() (*http.Response, error) {
			return h.do(ctx)
		})
		if err == nil {
			return h.checkStatus(resp)
		}

		lastErr = err
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("%w: %s: %w", domain.ErrFileNotFound, h.url, lastErr)
}

// do performs one GET. Retryable statuses are returned as errors so they
// count as breaker failures.
func (h *HTTP) do(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", errRetryable, resp.StatusCode)
	}
	return resp, nil
}

func (h *HTTP) checkStatus(resp *http.Response) (*http.Response, error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()
	return nil, fmt.Errorf("%w: %s: status %d: %s", domain.ErrFileNotFound, h.url, resp.StatusCode, strings.TrimSpace(string(body)))
}

func (h *HTTP) gzipped(resp *http.Response) bool {
	if ct := resp.Header.Get("Content-Type"); ct == "application/gzip" || ct == "application/x-gzip" {
		return true
	}
	u, err := url.Parse(h.url)
	if err != nil {
		return false
	}
	return isGzipName(path.Base(u.Path))
}

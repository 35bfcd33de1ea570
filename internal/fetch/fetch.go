// Package fetch performs outbound HTTP calls with bounded retry and
// exponential backoff. It knows nothing about record semantics and is
// shared by document ingestion and the remote adapter.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// Config bounds the retry behavior. A request is attempted at most
// MaxRetries+1 times.
type Config struct {
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// RetriesExhaustedError is returned once the retry budget is spent. It
// carries the last delay hint the server supplied so callers can surface
// actionable guidance.
type RetriesExhaustedError struct {
	Attempts   int
	LastStatus int
	RetryAfter time.Duration // 0 when the server gave no hint
	Err        error
}

func (e *RetriesExhaustedError) Error() string {
	msg := fmt.Sprintf("retries exhausted after %d attempts", e.Attempts)
	if e.LastStatus != 0 {
		msg += fmt.Sprintf(" (last status %d)", e.LastStatus)
	}
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(", server suggests retrying in %s", e.RetryAfter.Round(time.Second))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Err }

type Client struct {
	http        *http.Client
	maxRetries  int
	backoffBase time.Duration
	backoffCap  time.Duration
	logger      *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		http:        &http.Client{Timeout: cfg.Timeout},
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
		backoffCap:  cfg.BackoffCap,
		logger:      logger.With("component", "fetch"),
	}
}

// Do executes the request, retrying on 429, 5xx and transient transport
// errors. Other 4xx responses are returned to the caller as-is, as are
// successful responses; the caller owns the body either way. Requests
// with a body must set GetBody (http.NewRequest does this for common
// body types) so retries can replay it.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	totalAttempts := c.maxRetries + 1

	var (
		lastStatus int
		lastHint   time.Duration
		lastErr    error
	)

	for attempt := 0; attempt < totalAttempts; attempt++ {
		attemptReq := req
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("replay request body: %w", err)
			}
			attemptReq = req.Clone(ctx)
			attemptReq.Body = body
		}

		resp, err := c.http.Do(attemptReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			lastStatus = 0
			lastHint = 0
			if attempt == c.maxRetries {
				break
			}
			delay := c.delay(attempt)
			c.logger.Warn("request failed, retrying",
				"method", req.Method,
				"url", req.URL.String(),
				"attempt", attempt+1,
				"of", totalAttempts,
				"backoff", delay,
				"error", err,
			)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if !retryableStatus(resp.StatusCode) {
			return resp, nil
		}

		lastStatus = resp.StatusCode
		lastErr = fmt.Errorf("unexpected status: %d", resp.StatusCode)
		hint, hasHint := parseRetryAfter(resp.Header.Get("Retry-After"))
		if hasHint {
			lastHint = hint
		} else {
			lastHint = 0
		}
		drain(resp)

		if attempt == c.maxRetries {
			break
		}

		// A server-provided delay takes precedence over computed backoff.
		delay := c.delay(attempt)
		if hasHint {
			delay = hint
		}
		c.logger.Warn("retryable status, retrying",
			"method", req.Method,
			"url", req.URL.String(),
			"status", resp.StatusCode,
			"attempt", attempt+1,
			"of", totalAttempts,
			"backoff", delay,
		)
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, &RetriesExhaustedError{
		Attempts:   totalAttempts,
		LastStatus: lastStatus,
		RetryAfter: lastHint,
		Err:        lastErr,
	}
}

// backoff computes the pre-jitter delay for a 0-indexed attempt:
// min(cap, base * 2^n).
func (c *Client) backoff(attempt int) time.Duration {
	d := float64(c.backoffBase) * math.Pow(2, float64(attempt))
	if capF := float64(c.backoffCap); d > capF {
		d = capF
	}
	return time.Duration(d)
}

// delay adds up to 25% uniform jitter so concurrent callers do not retry
// in lockstep.
func (c *Client) delay(attempt int) time.Duration {
	base := c.backoff(attempt)
	jitter := time.Duration(rand.Float64() * 0.25 * float64(base))
	return base + jitter
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// parseRetryAfter handles both forms of the header: delay seconds and an
// HTTP date.
func parseRetryAfter(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	if at, err := http.ParseTime(value); err == nil {
		d := time.Until(at)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

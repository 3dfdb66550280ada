// Package retryx wraps outbound HTTP calls with per-attempt timeouts, failure
// classification, and exponential backoff with jitter.
package retryx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// jitterFraction spreads retries over [0, 30%] extra delay to avoid
// synchronized retry storms across concurrent callers.
const jitterFraction = 0.3

// Options configures the executor. Zero fields take the DefaultOptions
// values; set MaxRetries negative to disable retrying.
type Options struct {
	MaxRetries        int
	InitialDelay      time.Duration
	BackoffMultiplier float64
	MaxDelay          time.Duration
	Timeout           time.Duration
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		BackoffMultiplier: 2.0,
		MaxDelay:          10 * time.Second,
		Timeout:           30 * time.Second,
	}
}

// withDefaults fills unset (zero) fields. A negative MaxRetries disables
// retrying entirely and a BackoffMultiplier of 1 keeps the delay flat.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxRetries == 0 {
		o.MaxRetries = d.MaxRetries
	} else if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = d.InitialDelay
	}
	if o.BackoffMultiplier == 0 {
		o.BackoffMultiplier = d.BackoffMultiplier
	} else if o.BackoffMultiplier < 1 {
		o.BackoffMultiplier = 1
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = d.MaxDelay
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	return o
}

// BackoffDelay computes the sleep before retrying after the given 0-indexed
// failed attempt: min(initial * multiplier^attempt * (1 + jitter), max).
func (o Options) BackoffDelay(attempt int) time.Duration {
	o = o.withDefaults()
	delay := float64(o.InitialDelay) * math.Pow(o.BackoffMultiplier, float64(attempt))
	delay *= 1 + rand.Float64()*jitterFraction
	if delay > float64(o.MaxDelay) {
		return o.MaxDelay
	}
	return time.Duration(delay)
}

// Result is the outcome of an Execute call. RetryCount is the number of failed
// attempts that preceded the final one. Data is the response body decoded by
// content type: a JSON value for JSON responses, the body string otherwise.
type Result struct {
	Status     int
	Body       []byte
	Data       interface{}
	RetryCount int
}

// StatusError reports a non-2xx response after classification.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// AttemptFunc performs one outbound call. The passed context carries the
// per-attempt timeout; exceeding it aborts the in-flight call.
type AttemptFunc func(ctx context.Context) (*http.Response, error)

// Executor retries an AttemptFunc according to its Options.
type Executor struct {
	opts Options
}

// New creates an Executor, filling unset options with defaults.
func New(opts Options) *Executor {
	return &Executor{opts: opts.withDefaults()}
}

// Execute runs attempt until it succeeds, fails terminally, or the retry
// budget is exhausted. At most MaxRetries+1 attempts are made. On success the
// returned error is nil and Result carries the decoded body; on failure Result
// carries the last status, decoded error payload, and final retry count.
func (e *Executor) Execute(ctx context.Context, attempt AttemptFunc) (*Result, error) {
	var (
		last       *Result
		lastErr    error
		retryAfter time.Duration
	)

	for n := 0; n <= e.opts.MaxRetries; n++ {
		if n > 0 {
			delay := e.opts.BackoffDelay(n - 1)
			// A server-supplied Retry-After overrides the computed backoff.
			if retryAfter > 0 {
				delay = retryAfter
				if delay > e.opts.MaxDelay {
					delay = e.opts.MaxDelay
				}
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				if last == nil {
					last = &Result{}
				}
				last.RetryCount = n - 1
				return last, ctx.Err()
			}
		}

		res, nextRetryAfter, err := e.attemptOnce(ctx, attempt)
		if res != nil {
			res.RetryCount = n
		}
		if err == nil {
			return res, nil
		}

		terminal := res != nil && !retryableStatus(res.Status) ||
			res == nil && !retryableNetworkError(err)
		if terminal {
			if res == nil {
				res = &Result{RetryCount: n}
			}
			return res, err
		}

		last, lastErr, retryAfter = res, err, nextRetryAfter
	}

	if last == nil {
		last = &Result{}
	}
	last.RetryCount = e.opts.MaxRetries
	return last, lastErr
}

// attemptOnce runs one attempt under its own timeout and decodes the response.
// The returned Result is nil on transport-level failure.
func (e *Executor) attemptOnce(ctx context.Context, attempt AttemptFunc) (*Result, time.Duration, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	resp, err := attempt(attemptCtx)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response body: %w", err)
	}

	res := &Result{
		Status: resp.StatusCode,
		Body:   body,
		Data:   decodeBody(body, resp.Header.Get("Content-Type")),
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return res, 0, nil
	}
	return res, parseRetryAfter(resp.Header.Get("Retry-After")), &StatusError{Status: resp.StatusCode}
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryableNetworkError classifies transport-level failures. Per-attempt
// timeouts and transient network errors are retryable; anything else
// (including cancellation of the whole call) is terminal.
func retryableNetworkError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func decodeBody(body []byte, contentType string) interface{} {
	if len(body) == 0 {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && (mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")) {
		var data interface{}
		if json.Unmarshal(body, &data) == nil {
			return data
		}
	}
	return string(body)
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

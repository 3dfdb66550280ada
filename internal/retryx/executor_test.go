package retryx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions() Options {
	return Options{
		MaxRetries:        3,
		InitialDelay:      time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxDelay:          10 * time.Millisecond,
		Timeout:           time.Second,
	}
}

func get(server *httptest.Server) AttemptFunc {
	return func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		if err != nil {
			return nil, err
		}
		return http.DefaultClient.Do(req)
	}
}

func TestExecute_SucceedsAfterTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"DONE"}`))
	}))
	defer server.Close()

	executor := New(fastOptions())
	res, err := executor.Execute(context.Background(), get(server))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, 3, res.RetryCount)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))

	data, ok := res.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "DONE", data["status"])
}

func TestExecute_ExhaustsRetryBudget(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	executor := New(fastOptions())
	res, err := executor.Execute(context.Background(), get(server))

	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Status)
	assert.Equal(t, 3, res.RetryCount)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls)) // MaxRetries + 1 attempts
}

func TestExecute_NonRetryableStatusFailsImmediately(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"INVALID_CARD_NUMBER","message":"invalid card"}`))
	}))
	defer server.Close()

	executor := New(fastOptions())
	res, err := executor.Execute(context.Background(), get(server))

	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, 0, res.RetryCount)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	data, ok := res.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "INVALID_CARD_NUMBER", data["code"])
}

func TestExecute_RetryAfterHeaderOverridesBackoff(t *testing.T) {
	var calls int32
	var betweenAttempts time.Duration
	var firstDone time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			firstDone = time.Now()
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			betweenAttempts = time.Since(firstDone)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	opts := fastOptions()
	opts.MaxDelay = 50 * time.Millisecond
	executor := New(opts)

	res, err := executor.Execute(context.Background(), get(server))

	require.NoError(t, err)
	assert.Equal(t, 1, res.RetryCount)
	// Retry-After of 1s is capped at MaxDelay, and still dominates the
	// 1ms computed backoff.
	assert.GreaterOrEqual(t, betweenAttempts, 50*time.Millisecond)
	assert.Less(t, betweenAttempts, time.Second)
}

func TestExecute_PerAttemptTimeoutIsRetryable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			time.Sleep(100 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	opts := fastOptions()
	opts.Timeout = 20 * time.Millisecond
	executor := New(opts)

	res, err := executor.Execute(context.Background(), get(server))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, 1, res.RetryCount)
}

func TestExecute_CancellationIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	executor := New(fastOptions())
	_, err := executor.Execute(ctx, get(server))

	require.Error(t, err)
}

func TestExecute_NegativeMaxRetriesDisablesRetrying(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	opts := fastOptions()
	opts.MaxRetries = -1
	executor := New(opts)

	res, err := executor.Execute(context.Background(), get(server))

	require.Error(t, err)
	assert.Equal(t, 0, res.RetryCount)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestBackoffDelay_FlatMultiplier(t *testing.T) {
	opts := Options{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		BackoffMultiplier: 1.0,
		MaxDelay:          10 * time.Second,
		Timeout:           time.Second,
	}

	maxWithJitter := time.Duration(float64(time.Second) * (1 + jitterFraction))
	for attempt := 0; attempt < 4; attempt++ {
		delay := opts.BackoffDelay(attempt)
		assert.GreaterOrEqual(t, delay, time.Second, "attempt %d", attempt)
		assert.LessOrEqual(t, delay, maxWithJitter, "attempt %d", attempt)
	}
}

func TestBackoffDelay(t *testing.T) {
	opts := Options{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		BackoffMultiplier: 2.0,
		MaxDelay:          10 * time.Second,
		Timeout:           time.Second,
	}

	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		delay := opts.BackoffDelay(attempt)
		assert.GreaterOrEqual(t, delay, base, "attempt %d", attempt)
		maxWithJitter := time.Duration(float64(base) * (1 + jitterFraction))
		assert.LessOrEqual(t, delay, maxWithJitter, "attempt %d", attempt)
	}

	// Deep attempts are capped at MaxDelay
	assert.Equal(t, 10*time.Second, opts.BackoffDelay(10))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseRetryAfter("5"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-3"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("garbage"))

	future := time.Now().Add(30 * time.Second).UTC().Format(http.TimeFormat)
	parsed := parseRetryAfter(future)
	assert.Greater(t, parsed, 25*time.Second)
	assert.LessOrEqual(t, parsed, 30*time.Second)
}

func TestDecodeBody(t *testing.T) {
	data := decodeBody([]byte(`{"ok":true}`), "application/json; charset=utf-8")
	m, ok := data.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, true, m["ok"])

	assert.Equal(t, "plain text", decodeBody([]byte("plain text"), "text/plain"))
	assert.Nil(t, decodeBody(nil, "application/json"))
}

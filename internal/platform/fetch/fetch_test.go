package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "deepsearch/pkg/domain-errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGet(t *testing.T) {
	t.Run("sends params and headers", func(t *testing.T) {
		var gotQuery url.Values
		var gotHeader string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			gotHeader = r.Header.Get("X-API-Key")
			_, _ = w.Write([]byte(`{"ok": true}`))
		}))
		defer server.Close()

		client := New(testLogger())
		headers := http.Header{}
		headers.Set("X-API-Key", "secret")
		params := url.Values{}
		params.Set("q", "jane doe")

		resp, err := client.Get(context.Background(), server.URL, params, WithHeaders(headers))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "jane doe", gotQuery.Get("q"))
		assert.Equal(t, "secret", gotHeader)

		var body struct {
			OK bool `json:"ok"`
		}
		require.NoError(t, resp.DecodeJSON(&body))
		assert.True(t, body.OK)
	})

	t.Run("non-2xx statuses are returned, not errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		resp, err := New(testLogger()).Get(context.Background(), server.URL, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	})

	t.Run("invalid url fails", func(t *testing.T) {
		_, err := New(testLogger()).Get(context.Background(), "://nope", nil)
		assert.Error(t, err)
	})
}

func TestHostCircuit(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(testLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		resp, err := client.Get(ctx, server.URL, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	}

	_, err := client.Get(ctx, server.URL, nil)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnavailable))
	assert.Equal(t, 5, calls, "an open circuit never reaches the upstream")
}

func TestHostRateGate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	host := server.Listener.Addr().String()
	client := New(testLogger(), WithHostRate(host, 10)) // one call per 100ms

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Get(ctx, server.URL, nil)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond,
		"third call waits out two full intervals")

	t.Run("cancellation interrupts the wait", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := client.Get(ctx, server.URL, nil)
		assert.Error(t, err)
	})

	t.Run("unconfigured hosts are not throttled", func(t *testing.T) {
		other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))
		defer other.Close()

		start := time.Now()
		for i := 0; i < 5; i++ {
			_, err := client.Get(context.Background(), other.URL, nil)
			require.NoError(t, err)
		}
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})
}

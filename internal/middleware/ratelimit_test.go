package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestTokenBucketRefill(t *testing.T) {
	start := time.Unix(0, 0)
	bucket := NewTokenBucket(2, 1, start)

	require.True(t, bucket.Allow(start))
	require.True(t, bucket.Allow(start))
	require.False(t, bucket.Allow(start))
	require.True(t, bucket.Allow(start.Add(1500*time.Millisecond)))
	require.False(t, bucket.Allow(start.Add(1500*time.Millisecond)))
	require.True(t, bucket.Allow(start.Add(time.Hour)))
}

func TestRateLimiterMiddleware(t *testing.T) {
	defer goleak.VerifyNone(t)

	limiter := NewRateLimiter(1, 1)
	defer limiter.Stop()
	frozen := time.Unix(100, 0)
	limiter.now = func() time.Time { return frozen }

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/acme/analyses", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusNoContent, call("10.0.0.1:1234").Code)
	limited := call("10.0.0.1:5678")
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	require.Equal(t, "1", limited.Header().Get("Retry-After"))
	require.Equal(t, http.StatusNoContent, call("10.0.0.2:1234").Code)
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	defer limiter.Stop()
	now := time.Unix(100, 0)
	limiter.now = func() time.Time { return now }

	limiter.Allow("acme:10.0.0.1")
	now = now.Add(11 * time.Minute)
	limiter.sweep(10 * time.Minute)

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	require.Empty(t, limiter.buckets)
}

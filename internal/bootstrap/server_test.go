package bootstrap_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bryanwahyu/automaton-tod/internal/bootstrap"
	"github.com/bryanwahyu/automaton-tod/internal/config"
)

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	cfg := config.Default()
	cfg.AI.APIKey = "sk-test"
	cfg.Server.Port = 0
	cfg.Server.APIKeys = map[string]string{"acme": "key-acme"}

	app, err := bootstrap.New(context.Background(), cfg, nil, bootstrap.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestHandlerServesHealth(t *testing.T) {
	defer goleak.VerifyNone(t)

	handler, limiter := newTestApp(t).Handler()
	defer limiter.Stop()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/acme/analyses", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServeRequiresAPIKeys(t *testing.T) {
	app := newTestApp(t)
	app.Config.Server.APIKeys = nil
	require.ErrorContains(t, app.Serve(context.Background()), "apiKeys")
}

func TestServeStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

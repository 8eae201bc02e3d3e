package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-tod/internal/infra/httpserver"
	"github.com/bryanwahyu/automaton-tod/internal/middleware"
)

// Handler builds the HTTP API for the app and returns it with the rate limiter,
// which the caller must Stop.
func (a *App) Handler() (http.Handler, *middleware.RateLimiter) {
	srv := a.Config.Server
	limiter := middleware.NewRateLimiter(srv.RateLimit.Capacity, srv.RateLimit.RefillRate)

	checks := map[string]middleware.HealthChecker{}
	if a.DB != nil {
		checks["database"] = &middleware.DatabaseHealthChecker{DB: a.DB}
	}
	if a.Store != nil {
		checks["storage"] = middleware.CheckFunc(a.Store.Ping)
	}

	opts := httpserver.Options{
		Analyzer:       a.Analysis,
		Metrics:        middleware.NewMetrics(),
		Limiter:        limiter,
		Logger:         a.Logger.Named("http"),
		APIKeys:        srv.APIKeys,
		CORSOrigins:    srv.CORSOrigins,
		MaxUploadBytes: srv.MaxUploadBytes,
		HealthChecks:   checks,
		Sheet:          a.Config.Input.Sheet,
	}
	if a.Repo != nil {
		opts.Repo = a.Repo
	}
	return httpserver.NewRouter(opts), limiter
}

// Serve listens on the configured port until ctx is canceled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	if len(a.Config.Server.APIKeys) == 0 {
		return errors.New("server.apiKeys must list at least one tenant key")
	}
	handler, limiter := a.Handler()
	defer limiter.Stop()

	addr := fmt.Sprintf(":%d", a.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Minute, // one request runs a whole batch
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

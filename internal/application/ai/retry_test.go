package ai_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appai "github.com/bryanwahyu/automaton-tod/internal/application/ai"
	domain "github.com/bryanwahyu/automaton-tod/internal/domain/ai"
)

// scriptedClient fails the first failures calls with err and then answers "ok".
type scriptedClient struct {
	failures int
	err      error
	calls    int
}

func (c *scriptedClient) Complete(context.Context, domain.Request) (string, error) {
	c.calls++
	if c.calls <= c.failures {
		return "", c.err
	}
	return "ok", nil
}

type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func testRetryConfig() appai.RetryConfig {
	return appai.RetryConfig{MaxRetries: 3, InitialBackoff: time.Second, MaxBackoff: 5 * time.Second}
}

func TestRetryingClientTransientFailures(t *testing.T) {
	transient := &domain.TransientError{StatusCode: 503, Err: errors.New("unavailable")}

	testCases := []struct {
		name          string
		failures      int
		expectErr     bool
		expectedCalls int
		expectedWaits []time.Duration
	}{
		{"no failures", 0, false, 1, nil},
		{"recovers after one", 1, false, 2, []time.Duration{time.Second}},
		{"recovers on last attempt", 3, false, 4, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}},
		{"exhausted", 4, true, 4, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}},
		{"exhausted well past budget", 10, true, 4, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			stub := &scriptedClient{failures: testCase.failures, err: transient}
			sleeper := &recordingSleeper{}
			client := appai.NewRetryingClient(stub, testRetryConfig(), zap.NewNop()).WithSleeper(sleeper.sleep)

			out, err := client.Complete(context.Background(), domain.Request{User: "hi"})
			require.Equal(t, testCase.expectedCalls, stub.calls)
			require.Equal(t, testCase.expectedWaits, sleeper.waits)
			if testCase.expectErr {
				require.ErrorIs(t, err, domain.ErrRetriesExhausted)
				require.ErrorIs(t, err, transient)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "ok", out)
		})
	}
}

func TestRetryingClientFatalIsNotRetried(t *testing.T) {
	fatal := &domain.FatalError{StatusCode: 401, Err: errors.New("invalid api key")}
	stub := &scriptedClient{failures: 5, err: fatal}
	sleeper := &recordingSleeper{}
	client := appai.NewRetryingClient(stub, testRetryConfig(), nil).WithSleeper(sleeper.sleep)

	_, err := client.Complete(context.Background(), domain.Request{})
	require.ErrorIs(t, err, fatal)
	require.True(t, domain.IsFatal(err))
	require.NotErrorIs(t, err, domain.ErrRetriesExhausted)
	require.Equal(t, 1, stub.calls)
	require.Empty(t, sleeper.waits)
}

func TestRetryingClientStopsOnCanceledContext(t *testing.T) {
	stub := &scriptedClient{failures: 5, err: errors.New("connection reset")}
	ctx, cancel := context.WithCancel(context.Background())
	client := appai.NewRetryingClient(stub, testRetryConfig(), nil).WithSleeper(func(context.Context, time.Duration) error {
		cancel()
		return ctx.Err()
	})

	_, err := client.Complete(ctx, domain.Request{})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, stub.calls)
}

func TestRetryingClientLogsAttempts(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	stub := &scriptedClient{failures: 2, err: domain.ErrQuotaExceeded}
	client := appai.NewRetryingClient(stub, testRetryConfig(), zap.New(core)).WithSleeper((&recordingSleeper{}).sleep)

	_, err := client.Complete(context.Background(), domain.Request{})
	require.NoError(t, err)
	require.Equal(t, 2, logs.FilterMessage("llm call attempt failed").Len())
	require.Equal(t, 2, logs.FilterMessage("retrying llm call").Len())
	require.Equal(t, 1, logs.FilterMessage("llm call succeeded after retry").Len())
}

func TestBackoffIsCapped(t *testing.T) {
	cfg := appai.RetryConfig{InitialBackoff: time.Second, MaxBackoff: 60 * time.Second}
	require.Equal(t, time.Second, cfg.Backoff(0))
	require.Equal(t, 8*time.Second, cfg.Backoff(3))
	require.Equal(t, 60*time.Second, cfg.Backoff(6))
	require.Equal(t, 60*time.Second, cfg.Backoff(40))
}

func TestServicePing(t *testing.T) {
	stub := &scriptedClient{}
	svc := appai.NewService(stub, "gpt-4o", testRetryConfig(), nil)
	require.NoError(t, svc.Ping(context.Background(), "system", "ping"))
	require.Equal(t, "gpt-4o", svc.Model())

	fatal := &domain.FatalError{StatusCode: 404, Err: errors.New("model not found")}
	failing := appai.NewService(&scriptedClient{failures: 1, err: fatal}, "nope", testRetryConfig(), nil)
	err := failing.Ping(context.Background(), "system", "ping")
	require.ErrorIs(t, err, fatal)
}

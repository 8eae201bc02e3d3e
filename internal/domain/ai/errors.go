package ai

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded = errors.New("ai quota exceeded")
	// ErrRetriesExhausted is returned once every attempt for a prompt failed transiently.
	ErrRetriesExhausted = errors.New("ai retries exhausted")
	// ErrEmptyResponse is returned when the provider answered without any choice.
	ErrEmptyResponse = errors.New("ai empty response")
)

// TransientError is a failure worth retrying: rate limit, timeout, 5xx, network.
type TransientError struct {
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transient ai error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transient ai error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError is a failure retries cannot fix: bad credentials, unknown model, malformed request.
type FatalError struct {
	StatusCode int
	Err        error
}

func (e *FatalError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fatal ai error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fatal ai error: %v", e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried. Unclassified errors count as transient,
// matching how the provider SDK surfaces dropped connections.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return false
	}
	return true
}

// IsFatal reports whether err carries a *FatalError.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

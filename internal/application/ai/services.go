package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domain "github.com/bryanwahyu/automaton-tod/internal/domain/ai"
)

// Service is the LLM entrypoint used by the analysis pipeline.
type Service struct {
	client domain.Client
	model  string
	logger *zap.Logger
}

// NewService wraps client with retries. model is only used for logging.
func NewService(client domain.Client, model string, cfg RetryConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client: NewRetryingClient(client, cfg, logger),
		model:  model,
		logger: logger,
	}
}

func (s *Service) Complete(ctx context.Context, req domain.Request) (string, error) {
	return s.client.Complete(ctx, req)
}

// Model returns the configured model name.
func (s *Service) Model() string { return s.model }

// Ping sends a tiny request to check credentials and model access before a batch.
func (s *Service) Ping(ctx context.Context, system, user string) error {
	s.logger.Info("testing llm connection", zap.String("model", s.model))
	out, err := s.client.Complete(ctx, domain.Request{System: system, User: user, MaxTokens: 10})
	if err != nil {
		return fmt.Errorf("llm connection test: %w", err)
	}
	if out == "" {
		return fmt.Errorf("llm connection test: %w", domain.ErrEmptyResponse)
	}
	s.logger.Info("llm connection test successful", zap.String("model", s.model))
	return nil
}

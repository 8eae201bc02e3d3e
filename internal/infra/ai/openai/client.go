package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/automaton-tod/internal/domain/ai"
)

const (
	defaultModel     = "gpt-4o"
	defaultMaxTokens = 2048
	defaultTimeout   = 120 * time.Second
)

var statusRE = regexp.MustCompile(`status code: (\d{3})`)

// SupportedModels are the models the prompts were tuned against. Others may still work.
var SupportedModels = []string{"gpt-4", "gpt-4-turbo", "gpt-3.5-turbo", "gpt-4o", "gpt-4o-mini"}

// Options configure the adapter; zero values fall back to defaults.
type Options struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Client adapts go-openai chat completions to ai.Client.
type Client struct {
	*openai.Client
	Model     string
	maxTokens int
	timeout   time.Duration
}

func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		Client:    openai.NewClientWithConfig(cfg),
		Model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

// IsSupportedModel reports whether model is in SupportedModels.
func IsSupportedModel(model string) bool {
	for _, m := range SupportedModels {
		if m == model {
			return true
		}
	}
	return false
}

// isReasoningModel covers o1/o3/o4/gpt-5*, which take MaxCompletionTokens instead of MaxTokens.
func isReasoningModel(model string) bool {
	return strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") ||
		strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5")
}

func (c *Client) Complete(ctx context.Context, r ai.Request) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: r.System},
			{Role: openai.ChatMessageRoleUser, Content: r.User},
		},
	}
	maxTokens := c.maxTokens
	if r.MaxTokens > 0 {
		maxTokens = r.MaxTokens
	}
	if isReasoningModel(c.Model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(fmt.Errorf("failed to create chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", &ai.FatalError{Err: ai.ErrEmptyResponse}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// classify sorts SDK errors into the transient/fatal taxonomy by HTTP status.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		// Non-JSON error bodies only surface the status inside the message.
		if m := statusRE.FindStringSubmatch(err.Error()); m != nil {
			status, _ = strconv.Atoi(m[1])
		}
	}

	switch {
	case status == http.StatusTooManyRequests:
		return &ai.TransientError{StatusCode: status, Err: fmt.Errorf("%w: %w", ai.ErrQuotaExceeded, err)}
	case status == http.StatusRequestTimeout, status == http.StatusConflict, status >= 500:
		return &ai.TransientError{StatusCode: status, Err: err}
	case status >= 400:
		return &ai.FatalError{StatusCode: status, Err: err}
	}

	// No status: timeout, reset connection, DNS. All worth another attempt.
	return &ai.TransientError{Err: err}
}

package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIGenerator implements Generator on the OpenAI chat completion
// API. Transient failures (rate limits, 5xx, timeouts) are retried with
// linear backoff before the error is surfaced to the caller.
//
// OpenAIGenerator is safe for concurrent use; the underlying SDK client
// carries no per-request state.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	maxRetries  int
	retryDelay  time.Duration
}

// OpenAIConfig configures the OpenAI generator.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string

	// Model is the completion model, e.g. "gpt-4o-mini".
	Model string

	// Temperature is the sampling temperature.
	Temperature float32

	// MaxTokens caps the completion length. 0 uses the API default.
	MaxTokens int

	// MaxRetries bounds retry attempts for transient errors. Defaults
	// to 3.
	MaxRetries int

	// RetryDelay is the base backoff delay. Defaults to 1s; attempt n
	// waits n * RetryDelay.
	RetryDelay time.Duration
}

// NewOpenAIGenerator creates an OpenAI-backed generator.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai generator: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &OpenAIGenerator{
		client:      openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
	}, nil
}

// Name implements Generator.
func (g *OpenAIGenerator) Name() string { return "openai" }

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		resp, err := g.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", errors.New("openai: completion returned no choices")
			}
			return strings.TrimSpace(resp.Choices[0].Message.Content), nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !openAIRetryable(err) {
			break
		}
		select {
		case <-time.After(time.Duration(attempt) * g.retryDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("openai completion: %w", lastErr)
}

// openAIRetryable reports whether the error is worth another attempt:
// rate limits, server errors, and transport timeouts. Auth and invalid
// request errors are permanent.
func openAIRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return true
		case apiErr.HTTPStatusCode >= 500:
			return true
		default:
			return false
		}
	}
	// Transport-level failures (connection reset, timeout) arrive as
	// plain errors from the HTTP client.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "temporarily unavailable")
}

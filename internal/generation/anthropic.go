package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicGenerator implements Generator on the Anthropic Messages API.
// The SDK handles transient retries internally, so this provider stays
// thin: one request, one text extraction.
type AnthropicGenerator struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int
}

// AnthropicConfig configures the Anthropic generator.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key.
	APIKey string

	// Model is the completion model, e.g. "claude-sonnet-4-20250514".
	Model string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens caps the completion length. Anthropic requires a value;
	// 0 falls back to a conservative default.
	MaxTokens int
}

// NewAnthropicGenerator creates an Anthropic-backed generator.
func NewAnthropicGenerator(cfg AnthropicConfig) (*AnthropicGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("anthropic generator: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = string(anthropic.ModelClaudeSonnet4_20250514)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicGenerator{
		client:      anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Name implements Generator.
func (g *AnthropicGenerator) Name() string { return "anthropic" }

// Generate implements Generator.
func (g *AnthropicGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   int64(g.maxTokens),
		Temperature: anthropic.Float(g.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", errors.New("anthropic: completion returned no text")
	}
	return out, nil
}

package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/genai"

	"github.com/fintrack-dev/fintrack/internal/config"
)

const (
	defaultAnthropicModel = "claude-sonnet-4-5"
	defaultGeminiModel    = "gemini-2.5-flash"
	maxReplyTokens        = 4096
)

// NewCompleter builds the completer selected by cfg.Provider.
func NewCompleter(ctx context.Context, cfg config.AIConfig) (Completer, error) {
	key := cfg.APIKey()
	if key == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrUnavailable, cfg.APIKeyEnv)
	}
	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		return NewAnthropicCompleter(key, cfg.Model), nil
	case "gemini":
		return NewGeminiCompleter(ctx, key, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

// AnthropicCompleter calls the Claude Messages API.
type AnthropicCompleter struct {
	client anthropic.Client
	model  string
}

// NewAnthropicCompleter returns a completer for model, defaulting to a
// current Sonnet model when empty.
func NewAnthropicCompleter(apiKey, model string) *AnthropicCompleter {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicCompleter{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Complete sends prompt as a single user message and concatenates the text
// blocks of the reply.
func (c *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxReplyTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("calling claude API: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("empty response from claude API")
	}
	return sb.String(), nil
}

// GeminiCompleter calls the Gemini API through google.golang.org/genai.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter returns a completer for model.
func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

// Complete sends prompt as a single user turn.
func (c *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("empty response from model")
	}
	return text, nil
}

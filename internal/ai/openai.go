package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/starford/curator/internal/apperr"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 1024
	defaultTimeout   = 60 * time.Second
)

// Config configures the OpenAI-compatible generator.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	System      string
	HTTPClient  *http.Client
}

type chatCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI generates text through a chat-completions endpoint.
type OpenAI struct {
	completions chatCompletions
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	system      string
}

// NewOpenAI returns a generator for cfg, or apperr.ErrNoGenerator when no API
// key is configured.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, apperr.ErrNoGenerator
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	client := openai.NewClient(opts...)

	g := &OpenAI{
		completions: &client.Chat.Completions,
		model:       strings.TrimSpace(cfg.Model),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		system:      strings.TrimSpace(cfg.System),
	}
	if g.model == "" {
		g.model = defaultModel
	}
	if g.maxTokens <= 0 {
		g.maxTokens = defaultMaxTokens
	}
	if g.timeout <= 0 {
		g.timeout = defaultTimeout
	}
	return g, nil
}

// Model returns the configured model name.
func (g *OpenAI) Model() string { return g.model }

// Generate sends prompt as a single user message and returns the reply text.
func (g *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var messages []openai.ChatCompletionMessageParamUnion
	if g.system != "" {
		messages = append(messages, openai.SystemMessage(g.system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	completion, err := g.completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(g.model),
		MaxCompletionTokens: openai.Int(int64(g.maxTokens)),
		Temperature:         openai.Float(g.temperature),
		Messages:            messages,
	})
	if err != nil {
		return "", fmt.Errorf("ai: chat completion: %w", err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", errors.New("ai: empty completion")
	}
	return completion.Choices[0].Message.Content, nil
}

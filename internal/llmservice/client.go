package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"survey-categorizer/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyResponse is returned when the model reply carries no choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// Client sends single-message chat requests to a langchaingo model.
type Client struct {
	llm         llms.Model
	temperature float64
}

// NewClient builds the provider named in llmConfig. model is the default model identifier;
// every Chat call names its model explicitly as well.
func NewClient(llmConfig *config.LLMConfig, model string) (*Client, error) {
	log.Debug().
		Str("provider", llmConfig.Provider).
		Str("base_url", llmConfig.BaseURL).
		Str("model", model).
		Msg("Initializing LLM client")

	var (
		llm llms.Model
		err error
	)
	switch llmConfig.Provider {
	case config.ProviderOllama:
		opts := []ollama.Option{
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(model),
		}
		if llmConfig.JSONFormat {
			opts = append(opts, ollama.WithFormat("json"))
		}
		llm, err = ollama.New(opts...)
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", llmConfig.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s client: %w", llmConfig.Provider, err)
	}
	return NewClientWithModel(llm, llmConfig.Temperature), nil
}

// NewClientWithModel wraps an existing langchaingo model.
func NewClientWithModel(llm llms.Model, temperature float64) *Client {
	return &Client{llm: llm, temperature: temperature}
}

// Chat sends prompt as one user message and returns the text of the first choice.
func (c *Client) Chat(ctx context.Context, model, prompt string) (string, error) {
	msgContent := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	res, err := c.llm.GenerateContent(ctx, msgContent,
		llms.WithModel(model),
		llms.WithTemperature(c.temperature),
	)
	if err != nil {
		return "", err
	}
	if res == nil || len(res.Choices) == 0 || res.Choices[0] == nil {
		return "", ErrEmptyResponse
	}
	return res.Choices[0].Content, nil
}

package llmservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"survey-categorizer/internal/config"
)

type fakeModel struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestChat(t *testing.T) {
	fake := &fakeModel{resp: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "[]"}},
	}}
	client := NewClientWithModel(fake, 0.2)

	got, err := client.Chat(context.Background(), "phi4-mini:latest", "categorize this")
	require.NoError(t, err)
	assert.Equal(t, "[]", got)

	require.Len(t, fake.messages, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, fake.messages[0].Role)
	require.Len(t, fake.messages[0].Parts, 1)
	assert.Equal(t, llms.TextContent{Text: "categorize this"}, fake.messages[0].Parts[0])
	assert.Equal(t, "phi4-mini:latest", fake.opts.Model)
	assert.InDelta(t, 0.2, fake.opts.Temperature, 1e-9)
}

func TestChatEmptyResponse(t *testing.T) {
	for name, resp := range map[string]*llms.ContentResponse{
		"nil":        nil,
		"no choices": {},
		"nil choice": {Choices: []*llms.ContentChoice{nil}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewClientWithModel(&fakeModel{resp: resp}, 0).Chat(context.Background(), "m", "p")
			assert.ErrorIs(t, err, ErrEmptyResponse)
		})
	}
}

func TestChatError(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := NewClientWithModel(&fakeModel{err: boom}, 0).Chat(context.Background(), "m", "p")
	assert.ErrorIs(t, err, boom)
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LLMConfig
		wantErr bool
	}{
		{name: "ollama", cfg: config.LLMConfig{Provider: config.ProviderOllama, BaseURL: "http://localhost:11434"}},
		{name: "ollama json", cfg: config.LLMConfig{Provider: config.ProviderOllama, BaseURL: "http://localhost:11434", JSONFormat: true}},
		{name: "openai compatible", cfg: config.LLMConfig{Provider: config.ProviderOpenAI, BaseURL: "https://openrouter.ai/api/v1", Key: "Bearer sk-test"}},
		{name: "unknown", cfg: config.LLMConfig{Provider: "bard"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(&tt.cfg, "phi4-mini:latest")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

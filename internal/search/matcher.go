package search

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Matcher asks an external ranking service which moments of a rendered
// transcript match a query. The response is free-form text.
type Matcher interface {
	Match(ctx context.Context, query, rendered string) (string, error)
}

type ChatMatcherConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	TopN    int
}

// ChatMatcher implements Matcher with an OpenAI-compatible chat completion.
type ChatMatcher struct {
	client *openai.Client
	model  string
	topN   int
}

func NewChatMatcher(cfg ChatMatcherConfig) *ChatMatcher {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	return &ChatMatcher{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		topN:   cfg.TopN,
	}
}

func (m *ChatMatcher) Match(ctx context.Context, query, rendered string) (string, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(query, rendered, m.topN)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

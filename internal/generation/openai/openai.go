// Package openai implements the generation service on top of the OpenAI chat completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"rag-agent/internal/domain"
	embedding "rag-agent/internal/embedding/openai"
)

var _ domain.Generator = (*Client)(nil)

// Config shares the connection settings of the embeddings client.
type Config = embedding.Config

// Client is a chat completions client implementing domain.Generator.
type Client struct {
	api openai.Client
}

// NewClient creates a new chat client. It fails when the API key env var is unset.
func NewClient(cfg Config) (*Client, error) {
	opts, err := embedding.ClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{api: openai.NewClient(opts...)}, nil
}

// Complete sends a single chat completion request and returns the text of every choice.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) ([]string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case domain.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		default:
			return nil, fmt.Errorf("openai chat: unsupported role %q", m.Role)
		}
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}

	choices := make([]string, len(resp.Choices))
	for i, ch := range resp.Choices {
		choices[i] = ch.Message.Content
	}
	return choices, nil
}

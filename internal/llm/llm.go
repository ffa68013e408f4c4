package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Role identifies the author of a prompt message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one element of a compiled prompt.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Completer produces a completion for a compiled prompt.
type Completer interface {
	Complete(ctx context.Context, msgs []Message, maxTokens int64) (string, error)
}

// Client wraps the Anthropic Messages API.
type Client struct {
	api         *anthropic.Client
	model       anthropic.Model
	temperature *float64
}

// NewClient creates a completion client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// WithTemperature returns a copy of the client pinned to a sampling
// temperature instead of the API default.
func (c *Client) WithTemperature(t float64) *Client {
	clone := *c
	clone.temperature = &t
	return &clone
}

// buildParams maps prompt messages onto Anthropic request params. System
// messages become system blocks; everything else becomes a user turn.
func (c *Client) buildParams(msgs []Message, maxTokens int64) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
	}
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if c.temperature != nil {
		params.Temperature = anthropic.Float(*c.temperature)
	}
	return params
}

// Complete sends the prompt and returns the first text block of the
// response verbatim.
func (c *Client) Complete(ctx context.Context, msgs []Message, maxTokens int64) (string, error) {
	msg, err := c.api.Messages.New(ctx, c.buildParams(msgs, maxTokens))
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}
	return text, nil
}

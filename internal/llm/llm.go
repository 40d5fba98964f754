package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Terminal failures from the text-generation service. These are surfaced to
// the user with distinct messages and are never retried automatically.
var (
	ErrRateLimited    = errors.New("text generation rate limited")
	ErrQuotaExhausted = errors.New("text generation quota exhausted")
	ErrMalformed      = errors.New("text generation returned malformed payload")
)

// Client wraps an OpenAI-compatible API used for subjective grading and
// question drafting.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a client against an OpenAI-compatible endpoint. An empty
// baseURL keeps the library default.
func New(baseURL, apiKey, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{api: openai.NewClientWithConfig(cfg), model: model}
}

// CompleteJSON sends one system+user prompt pair and returns the raw JSON
// object the model produced. API-level rate-limit and quota errors are mapped
// to the terminal sentinels above.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrMalformed)
	}
	raw := []byte(resp.Choices[0].Message.Content)
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrMalformed)
	}
	return raw, nil
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429 && apiErr.Type == "insufficient_quota":
			return fmt.Errorf("%w: %v", ErrQuotaExhausted, err)
		case apiErr.HTTPStatusCode == 429:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}
	return fmt.Errorf("text generation call: %w", err)
}

// Terminal reports whether err is a rate-limit or quota failure that the
// caller should surface to the user rather than continue with.
func Terminal(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrQuotaExhausted)
}

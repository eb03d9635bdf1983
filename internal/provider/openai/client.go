package openai

import (
	"context"
	"fmt"
	"os"

	cerrors "github.com/cookchat-oss/cookchat/internal/errors"
	"github.com/cookchat-oss/cookchat/internal/provider"
	openai "github.com/sashabaranov/go-openai"
)

const defaultModel = "gpt-4o-mini"

// Client implements an OpenAI-compatible provider. Any endpoint speaking the
// chat completions API works through base_url.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new OpenAI-compatible client.
func NewClient(apiKey, baseURL, model string) *Client {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if model == "" {
		model = defaultModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "openai"
}

// Complete sends a chat completion request.
func (c *Client) Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		Messages:  msgs,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, cerrors.Wrap(cerrors.CodeProviderError, "failed to create chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return nil, cerrors.New(cerrors.CodeProviderError, fmt.Sprintf("no choices in response for model %s", model))
	}

	return &provider.Response{
		Content: resp.Choices[0].Message.Content,
		Usage: provider.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

package provider

import "context"

// Message is a role-tagged message sent to the inference endpoint.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// CompletionRequest carries the full ordered message list and the token
// budget for one inference call.
type CompletionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

// Response is the provider's reply.
type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Usage tracks token usage when the provider reports it.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Provider is the opaque inference capability: given an ordered role-tagged
// message list, it returns one reply string or fails. Failures are not
// retried; the caller decides how to recover.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// Complete sends a completion request.
	Complete(ctx context.Context, req *CompletionRequest) (*Response, error)
}

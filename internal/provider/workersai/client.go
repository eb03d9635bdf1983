package workersai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	cerrors "github.com/cookchat-oss/cookchat/internal/errors"
	"github.com/cookchat-oss/cookchat/internal/provider"
)

const (
	defaultBaseURL = "https://api.cloudflare.com/client/v4/accounts"
	defaultModel   = "@cf/meta/llama-3.3-70b-instruct-fp8-fast"
)

// Client implements the Cloudflare Workers AI provider over its REST API.
type Client struct {
	apiToken   string
	accountID  string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a new Workers AI client.
func NewClient(apiToken, accountID, model string) *Client {
	if apiToken == "" {
		apiToken = os.Getenv("CLOUDFLARE_API_TOKEN")
	}
	if accountID == "" {
		accountID = os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	}
	if model == "" {
		model = defaultModel
	}

	return &Client{
		apiToken:  apiToken,
		accountID: accountID,
		baseURL:   defaultBaseURL,
		model:     model,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "workers-ai"
}

type apiRequest struct {
	Messages  []provider.Message `json:"messages"`
	MaxTokens int                `json:"max_tokens,omitempty"`
}

type apiResponse struct {
	Result struct {
		Response string `json:"response"`
		Usage    struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	} `json:"result"`
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Complete sends a completion request to Workers AI.
func (c *Client) Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.Response, error) {
	if c.apiToken == "" {
		return nil, cerrors.New(cerrors.CodeAPIKeyMissing, "CLOUDFLARE_API_TOKEN not set").
			WithSuggestion("Set the CLOUDFLARE_API_TOKEN environment variable or add api_key to your cookchat.yaml provider config")
	}
	if c.accountID == "" {
		return nil, cerrors.New(cerrors.CodeAPIKeyMissing, "CLOUDFLARE_ACCOUNT_ID not set").
			WithSuggestion("Set the CLOUDFLARE_ACCOUNT_ID environment variable or add account_id to your cookchat.yaml provider config")
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	body, err := json.Marshal(apiRequest{
		Messages:  req.Messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/ai/run/%s", c.baseURL, c.accountID, model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.CodeProviderError, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, cerrors.New(cerrors.CodeProviderError,
			fmt.Sprintf("API error (status %d): %s", resp.StatusCode, string(respBody)))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !apiResp.Success {
		msg := "inference call failed"
		if len(apiResp.Errors) > 0 {
			msg = apiResp.Errors[0].Message
		}
		return nil, cerrors.New(cerrors.CodeProviderError, msg)
	}

	return &provider.Response{
		Content: apiResp.Result.Response,
		Usage: provider.Usage{
			InputTokens:  apiResp.Result.Usage.PromptTokens,
			OutputTokens: apiResp.Result.Usage.CompletionTokens,
		},
	}, nil
}

// SetBaseURL overrides the API base URL (used in tests).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

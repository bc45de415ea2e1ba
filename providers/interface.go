package providers

import (
	"context"
	"errors"
	"time"

	"supportdesk/models"
)

// ErrEmptyResponse is returned when a provider answers without any usable text
var ErrEmptyResponse = errors.New("provider returned no text")

// Provider interface for all LLM providers
type Provider interface {
	// List the provider's model catalog
	ListModels(ctx context.Context) ([]*models.Model, error)

	// Single-shot completion of a prompt
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)

	// Get provider info
	GetInfo() ProviderInfo

	// Release client resources
	Close() error
}

// GenerateRequest is one completion call
type GenerateRequest struct {
	Model           string  `json:"model"`
	Prompt          string  `json:"prompt"`
	Temperature     float64 `json:"temperature,omitempty"`       // 0 keeps the provider default
	MaxOutputTokens int     `json:"max_output_tokens,omitempty"` // 0 keeps the provider default
}

// GenerateResult is the provider's answer to a GenerateRequest. A call either
// yields a result with text or an error, never both.
type GenerateResult struct {
	Text         string `json:"text"`
	Model        string `json:"model"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        Usage  `json:"usage"`
}

// Message represents a chat message on OpenAI-compatible wires
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// Choice represents a response choice
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage tracks token usage
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ProviderInfo contains provider metadata
type ProviderInfo struct {
	Name         string
	BaseURL      string
	RequiresAuth bool
	Timeout      time.Duration
}

// Options configures a provider client
type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return 30 * time.Second
	}
	return o.Timeout
}

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"supportdesk/models"
)

// OpenAICompatibleProvider handles OpenAI-compatible APIs (OpenAI, one-api,
// Ollama, vLLM). BaseURL is the server root; /v1/... paths are appended.
type OpenAICompatibleProvider struct {
	client *http.Client
	opts   Options
}

// NewOpenAICompatibleProvider creates a new OpenAI-compatible provider
func NewOpenAICompatibleProvider(opts Options) *OpenAICompatibleProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com"
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	return &OpenAICompatibleProvider{
		client: &http.Client{
			Timeout: opts.timeout(),
		},
		opts: opts,
	}
}

type listModelsResponse struct {
	Data []struct {
		ID      string `json:"id"`
		OwnedBy string `json:"owned_by"`
	} `json:"data"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// ListModels lists /v1/models. The wire format carries no capability data, so
// every model is reported as supporting generateContent.
func (o *OpenAICompatibleProvider) ListModels(ctx context.Context) ([]*models.Model, error) {
	var resp listModelsResponse
	if err := o.do(ctx, http.MethodGet, "/v1/models", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	list := make([]*models.Model, 0, len(resp.Data))
	for _, m := range resp.Data {
		list = append(list, &models.Model{
			Name:             m.ID,
			DisplayName:      m.ID,
			Family:           models.DetectFamily(m.ID),
			SupportedActions: []string{models.ActionGenerateContent},
		})
	}
	return list, nil
}

// Generate sends the prompt as a single user message
func (o *OpenAICompatibleProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	body := chatRequest{
		Model:       req.Model,
		Messages:    []Message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxOutputTokens,
	}

	var resp chatResponse
	if err := o.do(ctx, http.MethodPost, "/v1/chat/completions", body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return &GenerateResult{
		Text:         resp.Choices[0].Message.Content,
		Model:        model,
		FinishReason: resp.Choices[0].FinishReason,
		Usage:        resp.Usage,
	}, nil
}

func (o *OpenAICompatibleProvider) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, o.opts.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if o.opts.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.opts.APIKey)
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetInfo returns provider metadata
func (o *OpenAICompatibleProvider) GetInfo() ProviderInfo {
	return ProviderInfo{
		Name:         "openai",
		BaseURL:      o.opts.BaseURL,
		RequiresAuth: true,
		Timeout:      o.opts.timeout(),
	}
}

// Close releases idle connections
func (o *OpenAICompatibleProvider) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

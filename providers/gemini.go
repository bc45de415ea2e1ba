package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"supportdesk/models"
)

// GeminiProvider talks to the Gemini API through the genai SDK
type GeminiProvider struct {
	client *genai.Client
	opts   Options
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, opts Options) (*GeminiProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: opts.timeout()},
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiProvider{client: client, opts: opts}, nil
}

// ListModels returns the catalog in the order the API pages it out
func (g *GeminiProvider) ListModels(ctx context.Context) ([]*models.Model, error) {
	var list []*models.Model
	for m, err := range g.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
		list = append(list, &models.Model{
			Name:             m.Name,
			DisplayName:      m.DisplayName,
			Version:          m.Version,
			Family:           models.DetectFamily(m.Name),
			SupportedActions: m.SupportedActions,
			Capabilities: models.ModelCapabilities{
				MaxTokens:     int(m.OutputTokenLimit),
				ContextWindow: int(m.InputTokenLimit),
			},
		})
	}
	return list, nil
}

// Generate runs a single-shot generateContent call
func (g *GeminiProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxOutputTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, ErrEmptyResponse
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w (finish reason: %s)", ErrEmptyResponse, resp.Candidates[0].FinishReason)
	}

	result := &GenerateResult{
		Text:         text,
		Model:        req.Model,
		FinishReason: string(resp.Candidates[0].FinishReason),
	}
	if resp.UsageMetadata != nil {
		result.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return result, nil
}

// GetInfo returns provider metadata
func (g *GeminiProvider) GetInfo() ProviderInfo {
	return ProviderInfo{
		Name:         "gemini",
		BaseURL:      g.opts.BaseURL,
		RequiresAuth: true,
		Timeout:      g.opts.timeout(),
	}
}

// Close is a no-op; the genai client holds no resources beyond its http.Client
func (g *GeminiProvider) Close() error {
	return nil
}

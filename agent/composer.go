package agent

import (
	"context"
	"errors"
	"strings"

	"supportdesk/providers"
)

// ModelHandle identifies the model picked at startup; it never changes afterwards
type ModelHandle string

func (m ModelHandle) String() string { return string(m) }

// Params are optional per-surface generation settings; zero values keep
// the provider defaults.
type Params struct {
	Temperature     float64
	MaxOutputTokens int
}

// Completer is the slice of providers.Provider the composer needs
type Completer interface {
	Generate(ctx context.Context, req *providers.GenerateRequest) (*providers.GenerateResult, error)
}

// Composer wraps a user message in the support prompt and asks the model for a reply
type Composer struct {
	provider Completer
	model    ModelHandle
}

// NewComposer creates a composer bound to one model
func NewComposer(provider Completer, model ModelHandle) *Composer {
	return &Composer{provider: provider, model: model}
}

// Model returns the handle every call is made with
func (c *Composer) Model() ModelHandle { return c.model }

// Generate returns the trimmed reply text, or a *GenerationError
func (c *Composer) Generate(ctx context.Context, userText string) (string, error) {
	res, err := c.Complete(ctx, userText, Params{})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Complete is Generate with explicit params; the result keeps usage data.
// res.Text is already trimmed.
func (c *Composer) Complete(ctx context.Context, userText string, p Params) (*providers.GenerateResult, error) {
	res, err := c.provider.Generate(ctx, &providers.GenerateRequest{
		Model:           string(c.model),
		Prompt:          ComposePrompt(userText),
		Temperature:     p.Temperature,
		MaxOutputTokens: p.MaxOutputTokens,
	})
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	if res == nil {
		return nil, &GenerationError{Err: errors.New("provider returned no result")}
	}

	out := *res
	out.Text = strings.TrimSpace(res.Text)
	return &out, nil
}

package models

import (
	"strings"
	"sync"
)

// ActionGenerateContent is the capability a model must advertise to be usable
// for free-form completions.
const ActionGenerateContent = "generateContent"

// Model describes one entry of a provider's model catalog
type Model struct {
	// Identification
	Name        string `json:"name" yaml:"name"`                 // e.g., "models/gemini-pro"
	DisplayName string `json:"display_name" yaml:"display_name"` // Human readable name
	Family      string `json:"family" yaml:"family"`             // Model family: gemini, gpt, llama
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`

	// Capabilities
	SupportedActions []string          `json:"supported_actions" yaml:"supported_actions"`
	Capabilities     ModelCapabilities `json:"capabilities" yaml:"capabilities"`
}

// ModelCapabilities holds the token limits a provider reports for a model
type ModelCapabilities struct {
	MaxTokens     int `json:"max_tokens" yaml:"max_tokens"`
	ContextWindow int `json:"context_window" yaml:"context_window"`
}

// Supports reports whether the model advertises the given action
func (m *Model) Supports(action string) bool {
	for _, a := range m.SupportedActions {
		if a == action {
			return true
		}
	}
	return false
}

// SupportsGeneration reports whether the model can serve free-form completions
func (m *Model) SupportsGeneration() bool {
	return m.Supports(ActionGenerateContent)
}

// Catalog keeps the models returned by a provider listing in provider order
type Catalog struct {
	mu     sync.RWMutex
	order  []string
	models map[string]*Model
}

// NewCatalog creates a catalog from a provider listing
func NewCatalog(list []*Model) *Catalog {
	c := &Catalog{
		models: make(map[string]*Model),
	}
	for _, m := range list {
		c.Register(m)
	}
	return c
}

// Register adds a model; re-registering a name replaces the entry but keeps its position
func (c *Catalog) Register(model *Model) {
	if model == nil || model.Name == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if model.Family == "" {
		model.Family = DetectFamily(model.Name)
	}
	if _, exists := c.models[model.Name]; !exists {
		c.order = append(c.order, model.Name)
	}
	c.models[model.Name] = model
}

// Get retrieves a model by name
func (c *Catalog) Get(name string) (*Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	model, exists := c.models[name]
	return model, exists
}

// List returns all registered models in provider order
func (c *Catalog) List() []*Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := make([]*Model, 0, len(c.order))
	for _, name := range c.order {
		list = append(list, c.models[name])
	}
	return list
}

// Generative returns the models supporting generateContent, in provider order
func (c *Catalog) Generative() []*Model {
	var list []*Model
	for _, m := range c.List() {
		if m.SupportsGeneration() {
			list = append(list, m)
		}
	}
	return list
}

// GenerativeNames is Generative reduced to model names
func (c *Catalog) GenerativeNames() []string {
	gen := c.Generative()
	names := make([]string, 0, len(gen))
	for _, m := range gen {
		names = append(names, m.Name)
	}
	return names
}

// GetByFamily returns all models in a family
func (c *Catalog) GetByFamily(family string) []*Model {
	var list []*Model
	for _, m := range c.List() {
		if m.Family == family {
			list = append(list, m)
		}
	}
	return list
}

// DetectFamily guesses the model family from its name
func DetectFamily(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "gemini"):
		return "gemini"
	case strings.Contains(lower, "gemma"):
		return "gemma"
	case strings.Contains(lower, "gpt"):
		return "gpt"
	case strings.Contains(lower, "claude"):
		return "claude"
	case strings.Contains(lower, "llama"):
		return "llama"
	case strings.Contains(lower, "mistral"):
		return "mistral"
	default:
		return "unknown"
	}
}

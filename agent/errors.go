package agent

import "errors"

var (
	// ErrMissingCredential means no API key was configured
	ErrMissingCredential = errors.New("missing credential")
	// ErrNoCompatibleModels means the provider catalog has no generateContent model
	ErrNoCompatibleModels = errors.New("no compatible models")
)

// ConfigurationError is fatal: startup halts and no chat input is offered.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	switch {
	case errors.Is(e.Err, ErrMissingCredential):
		return "Error: API Key not found. Please check your .env file."
	case errors.Is(e.Err, ErrNoCompatibleModels):
		return "Error: No compatible AI models found."
	default:
		return "Configuration Error: " + e.Err.Error()
	}
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// GenerationError fails a single turn. Its message is shown in place of the reply.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "Generation Error: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

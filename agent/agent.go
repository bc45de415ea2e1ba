// Package agent holds the support-agent turn logic: model selection, prompt
// composition and escalation detection. It keeps no conversation state.
package agent

import (
	"context"

	"supportdesk/providers"
)

// Reply is the assistant side of one turn
type Reply struct {
	Classification
	// Result is nil when generation failed
	Result *providers.GenerateResult
	// Err is the *GenerationError behind a failed turn; Text then holds its message
	Err error
}

// Agent answers one user message at a time
type Agent struct {
	composer   *Composer
	classifier *Classifier
}

// New creates an agent
func New(composer *Composer, classifier *Classifier) *Agent {
	if classifier == nil {
		classifier = NewClassifier()
	}
	return &Agent{composer: composer, classifier: classifier}
}

// Model returns the session model handle
func (a *Agent) Model() ModelHandle { return a.composer.Model() }

// Respond runs one synchronous round trip. A generation failure is not
// returned as an error: the reply carries the failure text instead, so the
// caller shows it like any other answer.
func (a *Agent) Respond(ctx context.Context, userText string, p Params) Reply {
	res, err := a.composer.Complete(ctx, userText, p)
	if err != nil {
		return Reply{
			Classification: Classification{Text: err.Error()},
			Err:            err,
		}
	}
	return Reply{
		Classification: a.classifier.Classify(res.Text),
		Result:         res,
	}
}

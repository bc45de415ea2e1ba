package session

import (
	"errors"
	"sync"
)

// ErrTicketMismatch rejects an assistant turn whose ticket id and escalation
// flag disagree
var ErrTicketMismatch = errors.New("ticket id must be set exactly when the turn is escalated")

// Role of a turn's author
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the conversation
type Turn struct {
	Role        Role   `json:"role"`
	Content     string `json:"content"`
	IsEscalated bool   `json:"is_escalated"`
	TicketID    *int   `json:"ticket_id,omitempty"`
}

// Transcript is the append-only, display-ordered list of turns
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewTranscript creates an empty transcript
func NewTranscript() *Transcript {
	return &Transcript{}
}

// AppendUser records the user's message
func (t *Transcript) AppendUser(text string) Turn {
	turn := Turn{Role: RoleUser, Content: text}
	t.mu.Lock()
	t.turns = append(t.turns, turn)
	t.mu.Unlock()
	return turn
}

// AppendAssistant records a reply. ticketID must be non-nil iff escalated.
func (t *Transcript) AppendAssistant(text string, escalated bool, ticketID *int) (Turn, error) {
	if escalated != (ticketID != nil) {
		return Turn{}, ErrTicketMismatch
	}

	turn := Turn{Role: RoleAssistant, Content: text, IsEscalated: escalated}
	if ticketID != nil {
		id := *ticketID
		turn.TicketID = &id
	}

	t.mu.Lock()
	t.turns = append(t.turns, turn)
	t.mu.Unlock()
	return turn, nil
}

// All returns a copy of every turn in insertion order. Callers cannot reach
// the stored records through it.
func (t *Transcript) All() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Turn, len(t.turns))
	for i, turn := range t.turns {
		if turn.TicketID != nil {
			id := *turn.TicketID
			turn.TicketID = &id
		}
		out[i] = turn
	}
	return out
}

// Len returns the number of turns
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

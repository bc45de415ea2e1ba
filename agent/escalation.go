package agent

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// EscalationMarker is the literal token the model emits to hand off to a human
const EscalationMarker = "[ESCALATE]"

// Ticket ids are drawn uniformly from this inclusive range. Duplicates within a
// session are possible and accepted.
const (
	MinTicketID = 10000
	MaxTicketID = 99999
)

// Classification is a reply after escalation post-processing
type Classification struct {
	Text      string
	Escalated bool
	TicketID  *int // set iff Escalated
}

// Classifier detects the escalation marker in raw model output
type Classifier struct {
	intn func(n int) int
}

// NewClassifier creates a classifier drawing ticket ids from math/rand/v2
func NewClassifier() *Classifier {
	return &Classifier{intn: rand.IntN}
}

// NewClassifierWithSource uses intn (which must return [0, n)) for ticket ids
func NewClassifierWithSource(intn func(n int) int) *Classifier {
	return &Classifier{intn: intn}
}

// Classify strips every marker occurrence and assigns a ticket when at least
// one was present. Text without the marker is returned untouched.
func (c *Classifier) Classify(raw string) Classification {
	if !strings.Contains(raw, EscalationMarker) {
		return Classification{Text: raw}
	}

	id := MinTicketID + c.intn(MaxTicketID-MinTicketID+1)
	return Classification{
		Text:      strings.TrimSpace(strings.ReplaceAll(raw, EscalationMarker, "")),
		Escalated: true,
		TicketID:  &id,
	}
}

// TicketBanner is the fixed notice shown under an escalated reply
func TicketBanner(ticketID int) string {
	return fmt.Sprintf("System: Ticket #%d created. Transferred to Human Agent.", ticketID)
}

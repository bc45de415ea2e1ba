package main

import (
	"context"
	"log"
	"time"

	"supportdesk/agent"
	"supportdesk/audit"
	"supportdesk/session"
)

// Front-end names used for generation settings, logs and audit rows
const (
	surfaceWeb = "web"
	surfaceSSH = "ssh"
	surfaceDNS = "dns"
)

// turnResult is what a front end shows after one round trip
type turnResult struct {
	User      session.Turn
	Assistant session.Turn
	Err       error // generation failure, already reflected in Assistant.Content
}

// handleTurn runs one user message through the agent and records both sides
// in the session transcript. The user turn is appended before the model is
// called; the assistant turn only once the round trip finished.
func (app *supportApp) handleTurn(ctx context.Context, surface string, sess *session.Session, text string) turnResult {
	done := sess.BeginTurn()
	defer done()

	requestID := generateRequestID()
	start := time.Now()
	beacon("llm_request_start", map[string]interface{}{
		"request_id": requestID,
		"surface":    surface,
		"session":    generateSignature(sess.ID),
		"input_hash": generateSignature(text),
	})

	userTurn := sess.Transcript.AppendUser(text)
	reply := app.agent.Respond(ctx, text, app.params(surface))

	assistantTurn, err := sess.Transcript.AppendAssistant(reply.Text, reply.Escalated, reply.TicketID)
	if err != nil {
		// Classification guarantees the pairing; reaching this is a bug
		log.Printf("[handleTurn] Failed to append assistant turn: %v", err)
		assistantTurn, _ = sess.Transcript.AppendAssistant(reply.Text, false, nil)
	}

	fields := map[string]interface{}{
		"request_id":  requestID,
		"surface":     surface,
		"model":       app.agent.Model().String(),
		"duration_ms": time.Since(start).Milliseconds(),
		"escalated":   reply.Escalated,
		"output_hash": generateSignature(reply.Text),
	}
	if reply.Result != nil {
		fields["input_tokens"] = reply.Result.Usage.PromptTokens
		fields["output_tokens"] = reply.Result.Usage.CompletionTokens
		fields["finish_reason"] = reply.Result.FinishReason
	}

	if reply.Err != nil {
		log.Printf("[handleTurn] %s turn failed: %v", surface, reply.Err)
		fields["error"] = reply.Err.Error()
		beacon("llm_request_error", fields)
	} else {
		beacon("llm_request_complete", fields)
	}

	if reply.Escalated {
		log.Printf("[handleTurn] Escalation on %s: ticket #%d", surface, *reply.TicketID)
		beacon("escalation_created", map[string]interface{}{
			"request_id": requestID,
			"surface":    surface,
			"ticket_id":  *reply.TicketID,
			"session":    generateSignature(sess.ID),
		})
	}

	app.recordAudit(ctx, surface, sess.ID, text, reply)

	return turnResult{User: userTurn, Assistant: assistantTurn, Err: reply.Err}
}

// recordAudit writes one audit row when auditing is enabled. Failures are
// logged and never surface to the user.
func (app *supportApp) recordAudit(ctx context.Context, surface, sessionID, input string, reply agent.Reply) {
	if app.audit == nil {
		return
	}

	entry := audit.Entry{
		ConversationID: sessionID,
		Timestamp:      time.Now().UTC(),
		Surface:        surface,
		Model:          app.agent.Model().String(),
		Provider:       app.provider.GetInfo().Name,
		Input:          input,
		Output:         reply.Text,
		Escalated:      reply.Escalated,
		TicketID:       reply.TicketID,
	}
	if reply.Result != nil {
		entry.InputTokens = reply.Result.Usage.PromptTokens
		entry.OutputTokens = reply.Result.Usage.CompletionTokens
	}
	if reply.Err != nil {
		entry.Error = reply.Err.Error()
	}

	// The request context may already be cancelled; the row still belongs in the log
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := app.audit.Record(auditCtx, entry); err != nil {
		log.Printf("[Audit] Failed to record %s turn: %v", surface, err)
	}
}

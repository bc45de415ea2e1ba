package agent

import "strings"

// systemPrompt is sent verbatim ahead of every user query. Its wording is what
// makes the model emit EscalationMarker, so edits change escalation behavior.
// Lines are listed one by one because the trailing whitespace is part of it.
var systemPrompt = strings.Join([]string{
	"",
	"        You are a Customer Support Agent.",
	"        ",
	"        Knowledge Base:",
	"        - Rate Limits: 1000 requests per minute.",
	"        - Billing: Invoices generated on the 1st of the month.",
	"        - Service Status: US-East-1 is currently experiencing outages.",
	"        ",
	"        Instructions:",
	"        1. Analyze the user's Persona (Technical, Frustrated, or Executive).",
	"        2. Adapt your tone accordingly.",
	"        3. ESCALATION RULE: ",
	"           If the user is angry, rude, or asks for a human, you must escalate.",
	"           Output the response in this exact format:",
	"           ",
	"           [ESCALATE] <A polite, reassuring message confirming you are transferring them to a supervisor.>",
	"           ",
	"           Example: [ESCALATE] I apologize for the trouble. I am opening a priority ticket for you right now.",
	"        ",
}, "\n")

// SystemPrompt returns the fixed instruction block
func SystemPrompt() string {
	return systemPrompt
}

// ComposePrompt joins the instruction block and the latest user message.
// Earlier turns are never included.
func ComposePrompt(userText string) string {
	return systemPrompt + "\n\nUser Query: " + userText
}

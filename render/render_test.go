package render

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportdesk/session"
)

func sampleTranscript(t *testing.T) *session.Transcript {
	t.Helper()
	tr := session.NewTranscript()
	tr.AppendUser("I want to speak to a human NOW")
	id := 48213
	_, err := tr.AppendAssistant("Connecting you to a supervisor.", true, &id)
	require.NoError(t, err)
	tr.AppendUser("What are your rate limits?")
	_, err = tr.AppendAssistant("Our rate limit is **1000** requests per minute.", false, nil)
	require.NoError(t, err)
	return tr
}

func TestPageRendersTranscript(t *testing.T) {
	h := NewHTML()
	tr := sampleTranscript(t)

	var buf bytes.Buffer
	require.NoError(t, h.Page(&buf, PageData{Turns: tr.All()}))
	out := buf.String()

	assert.Contains(t, out, "<title>Persona-Adaptive Support Agent</title>")
	assert.Contains(t, out, StatusLine)
	assert.Contains(t, out, `placeholder="Type your support request here..."`)
	assert.Contains(t, out, "Connecting you to a supervisor.")
	assert.Contains(t, out, "System: Ticket #48213 created. Transferred to Human Agent.")
	assert.Contains(t, out, "<strong>1000</strong>")
	assert.Equal(t, 1, strings.Count(out, `class="banner"`))
}

func TestPageRenderIsIdempotent(t *testing.T) {
	h := NewHTML()
	tr := sampleTranscript(t)

	var first, second bytes.Buffer
	require.NoError(t, h.Page(&first, PageData{Turns: tr.All()}))
	require.NoError(t, h.Page(&second, PageData{Turns: tr.All()}))
	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, 4, tr.Len())
}

func TestPageErrorHidesInput(t *testing.T) {
	h := NewHTML()
	var buf bytes.Buffer
	require.NoError(t, h.Page(&buf, PageData{Error: "Error: API Key not found. Please check your .env file."}))

	out := buf.String()
	assert.Contains(t, out, "API Key not found")
	assert.NotContains(t, out, "<form")
	assert.NotContains(t, out, `name="q"`)
}

func TestMarkdownIsSanitized(t *testing.T) {
	h := NewHTML()
	out := string(h.Markdown(`hello <script>alert(1)</script> [x](javascript:alert(1))`))
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, "hello")
}

func TestTerminalTranscript(t *testing.T) {
	term, err := NewTerminal(io.Discard, "notty", 80)
	require.NoError(t, err)
	tr := sampleTranscript(t)

	first := term.Transcript(tr.All())
	second := term.Transcript(tr.All())
	assert.Equal(t, first, second)

	assert.Contains(t, first, "I want to speak to a human NOW")
	assert.Contains(t, first, "Connecting you to a supervisor.")
	assert.Contains(t, first, "System: Ticket #48213 created. Transferred to Human Agent.")
	assert.Equal(t, 1, strings.Count(first, "Ticket #"))
}

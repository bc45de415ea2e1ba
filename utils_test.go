package main

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportdesk/audit"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hello w...", truncate("hello world!", 10))

	got := truncate("héllo wörld ünïcode", 10)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 10)
}

func TestGenerateRequestID(t *testing.T) {
	id := generateRequestID()
	assert.Regexp(t, regexp.MustCompile(`^req_[0-9a-f]{16}$`), id)
	assert.NotEqual(t, id, generateRequestID())
}

func TestGenerateSignature(t *testing.T) {
	sig := generateSignature("hello")
	assert.Len(t, sig, 16)
	assert.Equal(t, sig, generateSignature("hello"))
	assert.NotEqual(t, sig, generateSignature("hello!"))
}

func TestBeaconFieldsAreStructured(t *testing.T) {
	logs := observeBeacons(t)

	beacon("session_reset", map[string]interface{}{"session": "abc", "count": 3})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "session_reset", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "session_reset", fields["event"])
	assert.Equal(t, "abc", fields["session"])
	assert.EqualValues(t, 3, fields["count"])
}

func TestHandleTurnWritesAudit(t *testing.T) {
	observeBeacons(t)
	fp := &fakeProvider{replies: []string{"[ESCALATE] Escalating now."}}
	app := newTestApp(t, fp)

	store, err := audit.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	app.audit = store
	defer store.Close()

	sess := app.sessions.Create()
	result := app.handleTurn(context.Background(), surfaceWeb, sess, "I want a refund")
	require.NoError(t, result.Err)
	assert.True(t, result.Assistant.IsEscalated)

	history, err := store.ConversationHistory(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "I want a refund", history[0].Input)
	assert.Equal(t, "Escalating now.", history[0].Output)
	assert.Equal(t, surfaceWeb, history[0].Surface)
	assert.Equal(t, 42, history[0].InputTokens)
	assert.True(t, history[0].Escalated)
	require.NotNil(t, history[0].TicketID)
	assert.Equal(t, testTicket, *history[0].TicketID)

	count, err := store.EscalationCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

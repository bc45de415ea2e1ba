package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportdesk/agent"
	"supportdesk/audit"
	"supportdesk/render"
	"supportdesk/session"
)

// browser keeps cookies between requests against one handler
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, h http.Handler) *browser {
	return &browser{t: t, handler: h, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
		} else {
			b.cookies[c.Name] = c
		}
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) submit(text string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(url.Values{"q": {text}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) postJSON(path string, v interface{}) *httptest.ResponseRecorder {
	body, err := json.Marshal(v)
	require.NoError(b.t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return b.do(req)
}

func TestChatPageInitialState(t *testing.T) {
	observeBeacons(t)
	app := newTestApp(t, &fakeProvider{})
	b := newBrowser(t, newHTTPHandler(app))

	rec := b.get("/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Persona-Adaptive Support Agent")
	assert.Contains(t, body, "System Status: Online | Model: Adaptive")
	assert.Contains(t, body, "Type your support request here...")
	assert.NotContains(t, body, `class="msg`)

	require.Contains(t, b.cookies, app.cfg.Sessions.CookieName)
	assert.True(t, b.cookies[app.cfg.Sessions.CookieName].HttpOnly)
}

func TestChatSubmitRendersTranscript(t *testing.T) {
	observeBeacons(t)
	fp := &fakeProvider{replies: []string{"Our rate limit is **1000** requests per minute."}}
	app := newTestApp(t, fp)
	b := newBrowser(t, newHTTPHandler(app))

	b.get("/")
	rec := b.submit("  What is the rate limit?  ")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	body := b.get("/").Body.String()
	userAt := strings.Index(body, "What is the rate limit?")
	replyAt := strings.Index(body, "<strong>1000</strong>")
	require.NotEqual(t, -1, userAt)
	require.NotEqual(t, -1, replyAt)
	assert.Less(t, userAt, replyAt)
	assert.NotContains(t, body, "Ticket #")

	require.Len(t, fp.prompts(), 1)
	assert.True(t, strings.HasSuffix(fp.prompts()[0], "\n\nUser Query: What is the rate limit?"))
}

func TestChatSubmitIgnoresBlankInput(t *testing.T) {
	observeBeacons(t)
	fp := &fakeProvider{}
	b := newBrowser(t, newHTTPHandler(newTestApp(t, fp)))

	rec := b.submit("   ")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, fp.prompts())
}

func TestEscalationThroughAPI(t *testing.T) {
	logs := observeBeacons(t)
	fp := &fakeProvider{replies: []string{"[ESCALATE] I completely understand. I'm connecting you with a senior engineer now."}}
	b := newBrowser(t, newHTTPHandler(newTestApp(t, fp)))

	rec := b.postJSON("/api/chat", ChatRequest{Message: "This is the third outage this week, I want a human NOW"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Escalated)
	require.NotNil(t, resp.TicketID)
	assert.Equal(t, testTicket, *resp.TicketID)
	assert.Equal(t, "I completely understand. I'm connecting you with a senior engineer now.", resp.Reply)
	assert.Equal(t, "System: Ticket #48213 created. Transferred to Human Agent.", resp.Banner)
	assert.Empty(t, resp.Error)
	assert.NotEmpty(t, resp.SessionID)

	assert.Equal(t, 1, logs.FilterMessage("escalation_created").Len())
	assert.Equal(t, 1, logs.FilterMessage("llm_request_complete").Len())

	// The banner stays on every later render of the page
	for i := 0; i < 2; i++ {
		body := b.get("/").Body.String()
		assert.Equal(t, 1, strings.Count(body, "System: Ticket #48213 created. Transferred to Human Agent."))
		assert.NotContains(t, body, agent.EscalationMarker)
	}
}

func TestGenerationErrorKeepsSessionUsable(t *testing.T) {
	logs := observeBeacons(t)
	fp := &fakeProvider{
		errs:    []error{errors.New("quota exceeded")},
		replies: []string{"", "Invoices are generated on the 1st of the month."},
	}
	b := newBrowser(t, newHTTPHandler(newTestApp(t, fp)))

	rec := b.postJSON("/api/chat", ChatRequest{Message: "When do invoices go out?"})
	require.Equal(t, http.StatusOK, rec.Code)
	var first ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, "Generation Error: quota exceeded", first.Reply)
	assert.Equal(t, first.Reply, first.Error)
	assert.False(t, first.Escalated)
	assert.Nil(t, first.TicketID)
	assert.Equal(t, 1, logs.FilterMessage("llm_request_error").Len())

	rec = b.postJSON("/api/chat", ChatRequest{Message: "When do invoices go out?"})
	var second ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, "Invoices are generated on the 1st of the month.", second.Reply)
	assert.Equal(t, first.SessionID, second.SessionID)
}

func TestTranscriptAPI(t *testing.T) {
	observeBeacons(t)
	fp := &fakeProvider{replies: []string{"Hello!", "[ESCALATE] Transferring you."}}
	b := newBrowser(t, newHTTPHandler(newTestApp(t, fp)))

	b.submit("hi")
	b.submit("human please")

	rec := b.get("/api/transcript")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TranscriptResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "models/gemini-1.5-flash", resp.Model)

	ticket := testTicket
	want := []session.Turn{
		{Role: session.RoleUser, Content: "hi"},
		{Role: session.RoleAssistant, Content: "Hello!"},
		{Role: session.RoleUser, Content: "human please"},
		{Role: session.RoleAssistant, Content: "Transferring you.", IsEscalated: true, TicketID: &ticket},
	}
	if diff := cmp.Diff(want, resp.Turns); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestAPIChatRejectsBadInput(t *testing.T) {
	observeBeacons(t)
	fp := &fakeProvider{}
	b := newBrowser(t, newHTTPHandler(newTestApp(t, fp)))

	rec := b.do(httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = b.postJSON("/api/chat", ChatRequest{Message: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, fp.prompts())
}

func TestResetStartsNewConversation(t *testing.T) {
	observeBeacons(t)
	app := newTestApp(t, &fakeProvider{})
	b := newBrowser(t, newHTTPHandler(app))

	b.submit("first question")
	oldID := b.cookies[app.cfg.Sessions.CookieName].Value
	require.Equal(t, 1, app.sessions.Len())

	rec := b.do(httptest.NewRequest(http.MethodPost, "/reset", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	_, err := app.sessions.Get(oldID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	body := b.get("/").Body.String()
	assert.NotContains(t, body, "first question")
	assert.NotEqual(t, oldID, b.cookies[app.cfg.Sessions.CookieName].Value)
}

func TestConfigErrorPage(t *testing.T) {
	observeBeacons(t)
	cfgErr := &agent.ConfigurationError{Err: agent.ErrMissingCredential}
	h := newConfigErrorHandler(cfgErr, render.NewHTML())

	for _, path := range []string{"/", "/api/chat", "/anything"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Error: API Key not found. Please check your .env file.")
		assert.NotContains(t, body, "<form")
		assert.NotContains(t, body, `name="q"`)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unavailable"`)
}

func TestListModels(t *testing.T) {
	observeBeacons(t)
	b := newBrowser(t, newHTTPHandler(newTestApp(t, &fakeProvider{})))

	rec := b.get("/v1/models")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Selected string          `json:"selected"`
		Data     []ModelResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "models/gemini-1.5-flash", resp.Selected)

	var ids []string
	for _, m := range resp.Data {
		ids = append(ids, m.ID)
		assert.Equal(t, m.ID == resp.Selected, m.Selected)
		assert.Equal(t, "google", m.OwnedBy)
	}
	assert.Equal(t, []string{"models/gemini-pro", "models/gemini-1.5-flash"}, ids)
}

func TestGetModel(t *testing.T) {
	observeBeacons(t)
	b := newBrowser(t, newHTTPHandler(newTestApp(t, &fakeProvider{})))

	for _, path := range []string{"/v1/models/models/gemini-pro", "/v1/models/gemini-pro"} {
		rec := b.get(path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		var m ModelResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
		assert.Equal(t, "models/gemini-pro", m.ID)
		assert.False(t, m.Selected)
	}

	assert.Equal(t, http.StatusNotFound, b.get("/v1/models/gpt-9").Code)
}

func TestHealth(t *testing.T) {
	logs := observeBeacons(t)
	b := newBrowser(t, newHTTPHandler(newTestApp(t, &fakeProvider{})))

	rec := b.get("/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "models/gemini-1.5-flash", health["model"])
	assert.Equal(t, "fake", health["provider"])
	assert.Equal(t, float64(2), health["available_models"])

	assert.Equal(t, 1, logs.FilterMessage("request_start").Len())
	done := logs.FilterMessage("request_done").All()
	require.Len(t, done, 1)
	assert.EqualValues(t, http.StatusOK, done[0].ContextMap()["status"])
}

func TestHTTPServerWriteTimeout(t *testing.T) {
	tests := []struct {
		name     string
		provider time.Duration
		want     time.Duration
	}{
		{"unset", 0, 2 * time.Minute},
		{"default provider timeout", 30 * time.Second, 2 * time.Minute},
		{"slow provider", 5 * time.Minute, 5*time.Minute + writeMargin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newHTTPServer(8080, http.NotFoundHandler(), tt.provider)
			assert.Equal(t, tt.want, srv.WriteTimeout)
			assert.Equal(t, ":8080", srv.Addr)
		})
	}
}

func TestListModelsByFamily(t *testing.T) {
	observeBeacons(t)
	fp := &fakeProvider{list: generativeModels("models/gemini-pro", "gpt-4o", "gpt-4o-mini")}
	b := newBrowser(t, newHTTPHandler(newTestApp(t, fp)))

	ids := func(path string) []string {
		rec := b.get(path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		var resp struct {
			Data []ModelResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		out := []string{}
		for _, m := range resp.Data {
			out = append(out, m.ID)
		}
		return out
	}

	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, ids("/v1/models?family=gpt"))
	assert.Equal(t, []string{"models/gemini-pro"}, ids("/v1/models?family=GEMINI"))
	assert.Empty(t, ids("/v1/models?family=claude"))
}

func TestAuditAPI(t *testing.T) {
	observeBeacons(t)
	fp := &fakeProvider{replies: []string{"Invoices go out on the 1st.", "[ESCALATE] Transferring you now."}}
	app := newTestApp(t, fp)
	b := newBrowser(t, newHTTPHandler(app))

	assert.Equal(t, http.StatusNotFound, b.get("/api/audit?session_id=abc").Code)

	store, err := audit.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer store.Close()
	app.audit = store

	assert.Equal(t, http.StatusBadRequest, b.get("/api/audit").Code)

	require.Equal(t, http.StatusOK, b.postJSON("/api/chat", ChatRequest{Message: "when is billing?"}).Code)
	require.Equal(t, http.StatusOK, b.postJSON("/api/chat", ChatRequest{Message: "get me a human"}).Code)

	rec := b.get("/api/audit")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp AuditResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "when is billing?", resp.Entries[0].Input)
	assert.False(t, resp.Entries[0].Escalated)
	assert.True(t, resp.Entries[1].Escalated)
	require.NotNil(t, resp.Entries[1].TicketID)
	assert.Equal(t, testTicket, *resp.Entries[1].TicketID)

	// Unknown sessions have no history and are not created
	rec = b.get("/api/audit?session_id=nobody")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"session_id":"nobody","entries":[]}`, rec.Body.String())

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(b.get("/health").Body.Bytes(), &health))
	assert.Equal(t, float64(1), health["escalations"])
	assert.Equal(t, 1, app.sessions.Len())
}

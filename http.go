package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"supportdesk/agent"
	"supportdesk/audit"
	"supportdesk/render"
	"supportdesk/session"
)

// maxMessageBytes bounds a single submitted message
const maxMessageBytes = 65536

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is the answer to POST /api/chat
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Escalated bool   `json:"escalated"`
	TicketID  *int   `json:"ticket_id,omitempty"`
	Banner    string `json:"banner,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TranscriptResponse is the answer to GET /api/transcript
type TranscriptResponse struct {
	SessionID string         `json:"session_id"`
	Model     string         `json:"model"`
	Turns     []session.Turn `json:"turns"`
}

// AuditResponse is the answer to GET /api/audit
type AuditResponse struct {
	SessionID string        `json:"session_id"`
	Entries   []audit.Entry `json:"entries"`
}

// newHTTPHandler wires every HTTP route of the chat service
func newHTTPHandler(app *supportApp) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", app.handleChatPage)
	mux.HandleFunc("POST /{$}", app.handleChatSubmit)
	mux.HandleFunc("POST /reset", app.handleReset)
	mux.HandleFunc("POST /api/chat", app.handleAPIChat)
	mux.HandleFunc("GET /api/transcript", app.handleAPITranscript)
	mux.HandleFunc("GET /api/audit", app.handleAPIAudit)
	mux.HandleFunc("GET /v1/models", app.handleListModels)
	mux.HandleFunc("GET /v1/models/{model...}", app.handleGetModel)
	mux.HandleFunc("GET /health", app.handleHealth)
	return withRequestBeacon(mux)
}

// newConfigErrorHandler serves nothing but the blocking error page
func newConfigErrorHandler(cfgErr error, html *render.HTML) http.Handler {
	return withRequestBeacon(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "unavailable",
				"error":  cfgErr.Error(),
			})
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		if err := html.Page(w, render.PageData{Error: cfgErr.Error()}); err != nil {
			log.Printf("[HTTP] Failed to render error page: %v", err)
		}
	}))
}

// withRequestBeacon emits request_start for every request and request_done
// with the status once the handler returned
func withRequestBeacon(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := generateRequestID()
		start := time.Now()
		beacon("request_start", map[string]interface{}{
			"request_id":  requestID,
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.Header.Get("User-Agent"),
		})

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		beacon("request_done", map[string]interface{}{
			"request_id":  requestID,
			"status":      sw.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// webSession resolves the visitor's session from its cookie, starting a new
// one (and setting the cookie) when it is missing or expired
func (app *supportApp) webSession(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(app.cfg.Sessions.CookieName); err == nil {
		id = c.Value
	}

	sess, created := app.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     app.cfg.Sessions.CookieName,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
		if debugMode {
			log.Printf("[HTTP] New web session %s", generateSignature(sess.ID))
		}
	}
	return sess
}

func (app *supportApp) handleChatPage(w http.ResponseWriter, r *http.Request) {
	sess := app.webSession(w, r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := app.html.Page(w, render.PageData{Turns: sess.Transcript.All()}); err != nil {
		log.Printf("[HTTP] Failed to render chat page: %v", err)
	}
}

func (app *supportApp) handleChatSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	sess := app.webSession(w, r)
	if text := strings.TrimSpace(r.FormValue("q")); text != "" {
		app.handleTurn(r.Context(), surfaceWeb, sess, text)
	}

	// Post/Redirect/Get keeps a reload from resubmitting the message
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (app *supportApp) handleReset(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(app.cfg.Sessions.CookieName); err == nil {
		app.sessions.End(c.Value)
		beacon("session_reset", map[string]interface{}{
			"session": generateSignature(c.Value),
		})
	}
	http.SetCookie(w, &http.Cookie{
		Name:     app.cfg.Sessions.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// apiSession resolves the session for JSON clients: an explicit id wins over
// the cookie. Unknown ids start a fresh session.
func (app *supportApp) apiSession(w http.ResponseWriter, r *http.Request, id string) *session.Session {
	if id == "" {
		return app.webSession(w, r)
	}
	sess, _ := app.sessions.GetOrCreate(id)
	return sess
}

func (app *supportApp) handleAPIChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes+1))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(body) > maxMessageBytes {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "Message too large")
		return
	}

	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Printf("[handleAPIChat] Failed to decode JSON: %v", err)
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		writeJSONError(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	sess := app.apiSession(w, r, req.SessionID)
	result := app.handleTurn(r.Context(), surfaceWeb, sess, text)

	resp := ChatResponse{
		SessionID: sess.ID,
		Reply:     result.Assistant.Content,
		Escalated: result.Assistant.IsEscalated,
		TicketID:  result.Assistant.TicketID,
	}
	if result.Assistant.TicketID != nil {
		resp.Banner = agent.TicketBanner(*result.Assistant.TicketID)
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (app *supportApp) handleAPITranscript(w http.ResponseWriter, r *http.Request) {
	sess := app.apiSession(w, r, r.URL.Query().Get("session_id"))
	writeJSON(w, http.StatusOK, TranscriptResponse{
		SessionID: sess.ID,
		Model:     app.agent.Model().String(),
		Turns:     sess.Transcript.All(),
	})
}

// handleAPIAudit returns the recorded turns of a session, including turns
// from before a restart. It never creates a session.
func (app *supportApp) handleAPIAudit(w http.ResponseWriter, r *http.Request) {
	if app.audit == nil {
		writeJSONError(w, http.StatusNotFound, "Audit logging is disabled")
		return
	}

	id := r.URL.Query().Get("session_id")
	if id == "" {
		if c, err := r.Cookie(app.cfg.Sessions.CookieName); err == nil {
			id = c.Value
		}
	}
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "session_id required")
		return
	}

	entries, err := app.audit.ConversationHistory(r.Context(), id)
	if err != nil {
		log.Printf("[handleAPIAudit] Failed to load history: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to load audit history")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, AuditResponse{SessionID: id, Entries: entries})
}

// handleHealth provides a health check endpoint
func (app *supportApp) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status": "healthy",
		"model":  app.agent.Model().String(),
		"services": map[string]bool{
			"http":  HTTP_PORT > 0,
			"https": HTTPS_PORT > 0,
			"ssh":   SSH_PORT > 0,
			"dns":   DNS_PORT > 0,
		},
		"ports": map[string]int{
			"http":  HTTP_PORT,
			"https": HTTPS_PORT,
			"ssh":   SSH_PORT,
			"dns":   DNS_PORT,
		},
		"mode":             "production",
		"provider":         app.provider.GetInfo().Name,
		"available_models": len(app.catalog.Generative()),
		"active_sessions":  app.sessions.Len(),
		"audit_logging":    app.audit != nil,
	}

	if os.Getenv("HIGH_PORT_MODE") == "true" {
		health["mode"] = "development"
	}

	if app.audit != nil {
		if n, err := app.audit.EscalationCount(r.Context()); err == nil {
			health["escalations"] = n
		} else {
			log.Printf("[handleHealth] Failed to count escalations: %v", err)
		}
	}

	if HTTPS_PORT > 0 {
		_, _, found := findSSLCertificates()
		health["ssl_certificates"] = found
	}

	writeJSON(w, http.StatusOK, health)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeMargin is added to the provider timeout so a slow reply can still be
// written out
const writeMargin = 30 * time.Second

// httpWriteTimeout covers one full generation plus rendering, never less than
// two minutes
func httpWriteTimeout(providerTimeout time.Duration) time.Duration {
	return max(2*time.Minute, providerTimeout+writeMargin)
}

// newHTTPServer builds a server for port whose writes outlast providerTimeout
func newHTTPServer(port int, handler http.Handler, providerTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      httpWriteTimeout(providerTimeout),
		IdleTimeout:       2 * time.Minute,
	}
}

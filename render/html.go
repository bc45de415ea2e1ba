// Package render turns a transcript into HTML for the web page and into
// styled text for terminal sessions. Rendering never mutates the turns it is
// given, so replaying the same transcript yields the same output.
package render

import (
	"bytes"
	"html/template"
	"io"
	"log"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"supportdesk/agent"
	"supportdesk/session"
)

// Page titles and copy shown on the chat page
const (
	PageTitle        = "Persona-Adaptive Support Agent"
	StatusLine       = "System Status: Online | Model: Adaptive"
	InputPlaceholder = "Type your support request here..."
)

// PageData feeds the chat page template
type PageData struct {
	Title       string
	Status      string
	Placeholder string
	Turns       []session.Turn
	// Error replaces the whole conversation and input form when set
	Error string
}

// HTML renders chat pages. Message bodies are treated as markdown and
// sanitized, since model output is untrusted.
type HTML struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	page   *template.Template
}

// NewHTML creates an HTML renderer
func NewHTML() *HTML {
	h := &HTML{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
	}
	h.page = template.Must(template.New("page").Funcs(template.FuncMap{
		"markdown": h.Markdown,
		"banner":   bannerFor,
	}).Parse(pageTemplate))
	return h
}

// Markdown converts one message body to sanitized HTML
func (h *HTML) Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(src), &buf); err != nil {
		log.Printf("[render] markdown conversion failed, falling back to escaped text: %v", err)
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(h.policy.SanitizeBytes(buf.Bytes()))
}

// Page writes the full chat page
func (h *HTML) Page(w io.Writer, data PageData) error {
	if data.Title == "" {
		data.Title = PageTitle
	}
	if data.Status == "" {
		data.Status = StatusLine
	}
	if data.Placeholder == "" {
		data.Placeholder = InputPlaceholder
	}
	return h.page.Execute(w, data)
}

func bannerFor(ticketID *int) string {
	if ticketID == nil {
		return ""
	}
	return agent.TicketBanner(*ticketID)
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { margin: 2.5rem auto; max-width: 760px; font-family: system-ui, -apple-system, sans-serif; background: #FFF8F0; color: #2C1F3D; }
        h1 { text-align: center; }
        .status { text-align: center; color: #6B4C8A; font-size: .9rem; }
        .msg { padding: 1rem 1.25rem; margin: 1rem 0; border-radius: 8px; border: 1px solid #E8DCC4; }
        .msg.user { background: #E8DCC4; border-left: 4px solid #6B4C8A; }
        .msg.assistant { background: #FFFBF5; }
        .role { font-weight: 600; font-size: .85rem; margin-bottom: .5rem; }
        .banner { margin-top: .75rem; padding: .75rem 1rem; background: #FFF3CD; border: 1px solid #E0B84C; border-radius: 6px; color: #6B4E00; }
        .error { padding: 1.25rem; background: #F8D7DA; border: 1px solid #E4A1A8; border-radius: 8px; color: #721C24; }
        form { display: flex; gap: .5rem; margin-top: 1.5rem; }
        input[type="text"] { flex: 1; padding: 1rem 1.25rem; font-size: 1.1rem; border: 3px solid #6B4C8A; border-radius: 12px; background: #FFFBF5; outline: none; }
        button { padding: 1rem 1.5rem; font-size: 1rem; font-weight: 600; background: #6B4C8A; color: white; border: none; border-radius: 10px; cursor: pointer; }
        button.secondary { background: transparent; color: #6B4C8A; border: 1px solid #6B4C8A; padding: .4rem .9rem; font-size: .85rem; }
        .processing { display: none; text-align: center; color: #6B4C8A; margin-top: .5rem; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
    <p class="status">{{.Status}}</p>
{{if .Error}}
    <div class="error" role="alert">{{.Error}}</div>
{{else}}
    <div class="chat">
{{range .Turns}}
        <div class="msg {{.Role}}">
            <div class="role">{{if eq .Role "user"}}You{{else}}Support Agent{{end}}</div>
            <div class="content">{{markdown .Content}}</div>
{{if .IsEscalated}}
            <div class="banner">{{banner .TicketID}}</div>
{{end}}
        </div>
{{end}}
    </div>
    <form method="POST" action="/" onsubmit="this.querySelector('button').disabled=true;document.getElementById('processing').style.display='block'">
        <input type="text" name="q" placeholder="{{.Placeholder}}" autocomplete="off" autofocus required>
        <button type="submit">Send</button>
    </form>
    <p class="processing" id="processing">Processing...</p>
    <form method="POST" action="/reset">
        <button type="submit" class="secondary">New conversation</button>
    </form>
{{end}}
</body>
</html>`

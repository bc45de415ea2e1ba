package render

import (
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"supportdesk/agent"
	"supportdesk/session"
)

// Terminal renders turns for line-oriented clients (SSH)
type Terminal struct {
	md *glamour.TermRenderer

	userLabel      lipgloss.Style
	assistantLabel lipgloss.Style
	banner         lipgloss.Style
}

// NewTerminal creates a terminal renderer writing to w. style is a glamour
// standard style ("dark", "light", "notty"); width wraps message bodies.
func NewTerminal(w io.Writer, style string, width int) (*Terminal, error) {
	if style == "" {
		style = "dark"
	}
	if width <= 0 {
		width = 80
	}

	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}

	r := lipgloss.NewRenderer(w)
	return &Terminal{
		md:             md,
		userLabel:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("#6B4C8A")),
		assistantLabel: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575")),
		banner: r.NewStyle().
			Foreground(lipgloss.Color("#E0B84C")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#E0B84C")).
			Padding(0, 1),
	}, nil
}

// Turn renders a single turn, including the ticket banner of escalated replies
func (t *Terminal) Turn(turn session.Turn) string {
	var b strings.Builder

	if turn.Role == session.RoleUser {
		b.WriteString(t.userLabel.Render("You"))
		b.WriteString("\n")
		b.WriteString(turn.Content)
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(t.assistantLabel.Render("Support Agent"))
	b.WriteString("\n")
	body, err := t.md.Render(turn.Content)
	if err != nil {
		body = turn.Content + "\n"
	}
	b.WriteString(body)
	if turn.IsEscalated && turn.TicketID != nil {
		b.WriteString(t.banner.Render(agent.TicketBanner(*turn.TicketID)))
		b.WriteString("\n")
	}
	return b.String()
}

// Transcript renders every turn in order
func (t *Terminal) Transcript(turns []session.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		b.WriteString(t.Turn(turn))
		b.WriteString("\n")
	}
	return b.String()
}

// Package audit records completed LLM turns in SQLite. It is a log of
// provider traffic, not conversation storage: transcripts are never
// reloaded from it.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry represents one provider round trip
type Entry struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
	Surface        string    `json:"surface"` // web, ssh, dns
	Model          string    `json:"model"`
	Provider       string    `json:"provider"`
	Input          string    `json:"input"` // the user's message, not the composed prompt
	Output         string    `json:"output"`
	InputTokens    int       `json:"input_tokens"`
	OutputTokens   int       `json:"output_tokens"`
	Escalated      bool      `json:"escalated"`
	TicketID       *int      `json:"ticket_id,omitempty"`
	Error          string    `json:"error,omitempty"`
}

const schema = `
CREATE TABLE IF NOT EXISTS llm_audit (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
	surface TEXT,
	model TEXT NOT NULL,
	provider TEXT,
	full_input TEXT NOT NULL,
	full_output TEXT NOT NULL,
	input_tokens INTEGER,
	output_tokens INTEGER,
	escalated INTEGER NOT NULL DEFAULT 0,
	ticket_id INTEGER,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_conversation_id ON llm_audit(conversation_id);
CREATE INDEX IF NOT EXISTS idx_timestamp ON llm_audit(timestamp);
CREATE INDEX IF NOT EXISTS idx_escalated ON llm_audit(escalated);
`

// Store writes audit entries
type Store struct {
	db          *sql.DB
	countTokens func(string) int
}

// Open opens (creating if needed) the audit database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	// one connection keeps ":memory:" databases coherent and serializes writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}

	log.Printf("[AUDIT] LLM audit database initialized at %s", path)
	return &Store{db: db, countTokens: CountTokens}, nil
}

// SetTokenCounter replaces the tokenizer used when a provider reports no usage
func (s *Store) SetTokenCounter(count func(string) int) {
	s.countTokens = count
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores one interaction and returns its row id. Missing token counts
// are estimated locally.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if e.InputTokens == 0 && e.Input != "" {
		e.InputTokens = s.countTokens(e.Input)
	}
	if e.OutputTokens == 0 && e.Output != "" {
		e.OutputTokens = s.countTokens(e.Output)
	}

	var ticket sql.NullInt64
	if e.TicketID != nil {
		ticket = sql.NullInt64{Int64: int64(*e.TicketID), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO llm_audit (
			conversation_id, surface, model, provider,
			full_input, full_output, input_tokens, output_tokens,
			escalated, ticket_id, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ConversationID, e.Surface, e.Model, e.Provider,
		e.Input, e.Output, e.InputTokens, e.OutputTokens,
		e.Escalated, ticket, e.Error)
	if err != nil {
		return 0, fmt.Errorf("failed to log LLM interaction: %w", err)
	}

	id, _ := result.LastInsertId()
	log.Printf("[AUDIT] Logged LLM interaction ID=%d, ConvID=%s, Model=%s, Escalated=%v",
		id, e.ConversationID, e.Model, e.Escalated)
	return id, nil
}

// ConversationHistory retrieves all interactions for a conversation
func (s *Store) ConversationHistory(ctx context.Context, conversationID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, timestamp, surface, model, provider,
		       full_input, full_output, input_tokens, output_tokens,
		       escalated, ticket_id, error
		FROM llm_audit
		WHERE conversation_id = ?
		ORDER BY id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e      Entry
			ticket sql.NullInt64
			errStr sql.NullString
		)
		if err := rows.Scan(
			&e.ID, &e.ConversationID, &e.Timestamp, &e.Surface,
			&e.Model, &e.Provider, &e.Input, &e.Output,
			&e.InputTokens, &e.OutputTokens, &e.Escalated, &ticket, &errStr,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		if ticket.Valid {
			id := int(ticket.Int64)
			e.TicketID = &id
		}
		e.Error = errStr.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// EscalationCount returns how many escalated turns have been recorded
func (s *Store) EscalationCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM llm_audit WHERE escalated = 1`).Scan(&n)
	return n, err
}

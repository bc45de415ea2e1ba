// Package session keeps per-visitor transcripts in memory. Nothing survives a
// restart.
package session

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown or expired sessions
var ErrNotFound = errors.New("session not found")

// Session is one visitor's conversation
type Session struct {
	ID         string
	Transcript *Transcript
	CreatedAt  time.Time

	mu       sync.Mutex
	lastSeen time.Time

	// turn serializes round trips so a transcript never interleaves two turns
	turn sync.Mutex
}

// BeginTurn blocks until no other turn is in flight on this session. Call
// the returned func when the assistant turn has been appended.
func (s *Session) BeginTurn() (done func()) {
	s.turn.Lock()
	return s.turn.Unlock
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Store owns all live sessions. Expiry is checked lazily on access; no
// goroutine sweeps in the background.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	now         func() time.Time
}

// NewStore creates a store. idleTimeout <= 0 keeps sessions until End.
func NewStore(idleTimeout time.Duration) *Store {
	return &Store{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Create starts a new session with an empty transcript
func (st *Store) Create() *Session {
	now := st.now()
	s := &Session{
		ID:         uuid.NewString(),
		Transcript: NewTranscript(),
		CreatedAt:  now,
		lastSeen:   now,
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.evictExpiredLocked(now)
	st.sessions[s.ID] = s
	return s
}

// Get returns a live session and refreshes its idle clock
func (st *Store) Get(id string) (*Session, error) {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if st.expired(s, now) {
		delete(st.sessions, id)
		return nil, ErrNotFound
	}
	s.touch(now)
	return s, nil
}

// GetOrCreate returns the session for id, or a fresh one when id is unknown
func (st *Store) GetOrCreate(id string) (s *Session, created bool) {
	if id != "" {
		if s, err := st.Get(id); err == nil {
			return s, false
		}
	}
	return st.Create(), true
}

// End destroys a session and its transcript
func (st *Store) End(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of sessions currently held, expired ones included
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *Store) expired(s *Session, now time.Time) bool {
	return st.idleTimeout > 0 && s.idleSince(now) > st.idleTimeout
}

func (st *Store) evictExpiredLocked(now time.Time) {
	evicted := 0
	for id, s := range st.sessions {
		if st.expired(s, now) {
			delete(st.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		log.Printf("[SessionStore] Evicted %d idle sessions", evicted)
	}
}

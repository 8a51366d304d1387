package agent

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/pkg/llm"
	"github.com/papercomputeco/tabula/pkg/sheets"
)

// ConversationState is everything a session carries between turns, plus
// the selection and data of its most recent turn.
type ConversationState struct {
	SessionID string
	Messages  []llm.Message
	Selection sheets.Selection
	Data      sheets.Data
}

// Session is one conversation. Turns on a session run one at a time.
type Session struct {
	ID      string
	Created time.Time

	turn sync.Mutex

	mu      sync.RWMutex
	state   ConversationState
	head    string
	updated time.Time
}

func newSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:      id,
		Created: now,
		updated: now,
		state:   ConversationState{SessionID: id},
	}
}

// State returns a copy of the session's state.
func (s *Session) State() ConversationState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	st.Messages = append([]llm.Message(nil), s.state.Messages...)
	return st
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []llm.Message {
	return s.State().Messages
}

// Head is the hash of the session's last transcript node, empty when the
// session has none.
func (s *Session) Head() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head
}

// commit appends a finished turn.
func (s *Session) commit(msgs []llm.Message, sel sheets.Selection, data sheets.Data, head string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Messages = append(s.state.Messages, msgs...)
	s.state.Selection = sel
	s.state.Data = data
	if head != "" {
		s.head = head
	}
	s.updated = time.Now().UTC()
}

// Summary describes a session for listings.
type Summary struct {
	ID       string    `json:"id"`
	Messages int       `json:"message_count"`
	Head     string    `json:"head_hash,omitempty"`
	Created  time.Time `json:"created_at"`
	Updated  time.Time `json:"updated_at"`
}

// Summary returns the session's listing entry.
func (s *Session) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Summary{
		ID:       s.ID,
		Messages: len(s.state.Messages),
		Head:     s.head,
		Created:  s.Created,
		Updated:  s.updated,
	}
}

// idleSince returns when the session last finished a turn, and whether it
// is idle right now.
func (s *Session) idleSince() (time.Time, bool) {
	if !s.turn.TryLock() {
		return time.Time{}, false
	}
	s.turn.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated, true
}

// Sessions is the registry of live sessions. Callers that don't name a
// session share the process-wide default one.
type Sessions struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	defaultID string

	// limit caps len(sessions); zero means no cap.
	limit int
}

// SessionsOption customizes a Sessions registry.
type SessionsOption func(*Sessions)

// WithSessionLimit caps the number of live sessions. When a new session
// would exceed it, the least recently used idle session other than the
// default one is evicted.
func WithSessionLimit(n int) SessionsOption {
	return func(s *Sessions) { s.limit = n }
}

// NewSessions creates a registry with a freshly generated default id.
func NewSessions(opts ...SessionsOption) *Sessions {
	s := &Sessions{
		sessions:  make(map[string]*Session),
		defaultID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultID is the id used when a caller names no session.
func (s *Sessions) DefaultID() string {
	return s.defaultID
}

// Get returns an existing session.
func (s *Sessions) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Open returns the session for id, creating it if needed. An empty id means
// the default session.
func (s *Sessions) Open(id string) *Session {
	if id == "" {
		id = s.defaultID
	}
	if sess, ok := s.Get(id); ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	if s.limit > 0 && len(s.sessions) >= s.limit {
		s.evictLocked()
	}
	sess := newSession(id)
	s.sessions[id] = sess
	return sess
}

// evictLocked drops the least recently used idle session. Busy sessions and
// the default one are never evicted, so the cap can be exceeded while every
// other session is mid-turn.
func (s *Sessions) evictLocked() {
	var (
		victim string
		oldest time.Time
	)
	for id, sess := range s.sessions {
		if id == s.defaultID {
			continue
		}
		since, idle := sess.idleSince()
		if !idle {
			continue
		}
		if victim == "" || since.Before(oldest) {
			victim, oldest = id, since
		}
	}
	if victim != "" {
		delete(s.sessions, victim)
	}
}

// Prune removes sessions idle for longer than maxIdle and returns their ids.
// The default session is kept.
func (s *Sessions) Prune(maxIdle time.Duration) []string {
	cutoff := time.Now().UTC().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	var pruned []string
	for id, sess := range s.sessions {
		if id == s.defaultID {
			continue
		}
		if since, idle := sess.idleSince(); idle && since.Before(cutoff) {
			delete(s.sessions, id)
			pruned = append(pruned, id)
		}
	}
	sort.Strings(pruned)
	return pruned
}

// Sweep calls Prune every interval until ctx is done.
func (s *Sessions) Sweep(ctx context.Context, maxIdle, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := s.Prune(maxIdle); len(pruned) > 0 {
				logger.Info("pruned idle sessions", zap.Int("count", len(pruned)))
			}
		}
	}
}

// Create starts a session with a new random id.
func (s *Sessions) Create() *Session {
	return s.Open(uuid.NewString())
}

// List returns a summary of every session, oldest first.
func (s *Sessions) List() []Summary {
	s.mu.RLock()
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()

	out := make([]Summary, 0, len(all))
	for _, sess := range all {
		out = append(out, sess.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out
}

// Package session keeps per-user chat transcripts in process memory.
//
// Sessions are keyed independently: the table lock guards only membership,
// and each session carries its own lock for its transcript, so appends to
// different sessions never contend.
package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"eco-assistant/internal/domain"
)

// DefaultTTL is how long a session may sit idle before Reap removes it.
const DefaultTTL = 24 * time.Hour

type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

type entry struct {
	turn sync.Mutex

	mu      sync.Mutex
	session domain.Session
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		sessions: make(map[string]*entry),
		logger:   opts.Logger,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = func() string { return uuid.NewString() }
	}
	return m
}

// Create starts an empty session for userID.
func (m *Manager) Create(userID string) domain.Session {
	now := m.now()
	e := &entry{session: domain.Session{
		ID:           m.newID(),
		UserID:       userID,
		Messages:     []domain.Message{},
		CreatedAt:    now,
		LastActivity: now,
	}}

	m.mu.Lock()
	m.sessions[e.session.ID] = e
	m.mu.Unlock()

	m.logger.Info("session created", "session_id", e.session.ID, "user_id", userID)
	return e.session
}

// GetOrCreate returns the named session when it exists and belongs to userID,
// touching its last-activity time. Otherwise it creates a new one.
func (m *Manager) GetOrCreate(userID, sessionID string) (domain.Session, bool) {
	if sessionID != "" {
		if e := m.lookup(sessionID); e != nil {
			e.mu.Lock()
			if e.session.UserID == userID {
				e.session.LastActivity = m.now()
				s := e.snapshot()
				e.mu.Unlock()
				return s, false
			}
			e.mu.Unlock()
		}
	}
	return m.Create(userID), true
}

// Get returns a copy of the session.
func (m *Manager) Get(sessionID string) (domain.Session, bool) {
	e := m.lookup(sessionID)
	if e == nil {
		return domain.Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(), true
}

// Append adds msg to the end of the transcript and touches the session. The
// parameter bag is copied. Bot messages without a valid action are stored as
// ActionUnknown, and always carry a bag. An unknown session is logged and
// reported as false.
func (m *Manager) Append(sessionID string, msg domain.Message) bool {
	e := m.lookup(sessionID)
	if e == nil {
		m.logger.Warn("append to unknown session", "session_id", sessionID, "message_id", msg.ID)
		return false
	}
	if msg.Sender == domain.SenderBot {
		if !msg.Action.Valid() {
			msg.Action = domain.ActionUnknown
		}
		msg.Parameters = msg.Parameters.Clone()
	} else if msg.Parameters != nil {
		msg.Parameters = msg.Parameters.Clone()
	}
	e.mu.Lock()
	e.session.Messages = append(e.session.Messages, msg)
	e.session.LastActivity = m.now()
	e.mu.Unlock()
	return true
}

// Transcript returns a copy of the session's messages, or nil when unknown.
func (m *Manager) Transcript(sessionID string) []domain.Message {
	s, ok := m.Get(sessionID)
	if !ok {
		return nil
	}
	return s.Messages
}

// Clear removes the session. It reports whether the session existed.
func (m *Manager) Clear(sessionID string) bool {
	m.mu.Lock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if ok {
		m.logger.Info("session cleared", "session_id", sessionID)
	}
	return ok
}

// UserSessions returns copies of every session owned by userID, oldest first.
func (m *Manager) UserSessions(userID string) []domain.Session {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	var out []domain.Session
	for _, e := range entries {
		e.mu.Lock()
		if e.session.UserID == userID {
			out = append(out, e.snapshot())
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LockTurn serializes turns on one session. The returned func releases the
// lock. ok is false when the session does not exist.
func (m *Manager) LockTurn(sessionID string) (unlock func(), ok bool) {
	e := m.lookup(sessionID)
	if e == nil {
		return nil, false
	}
	e.turn.Lock()
	return e.turn.Unlock, true
}

// Reap removes every session idle for longer than ttl and returns how many
// were removed.
func (m *Manager) Reap(ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	var removed []string
	for id, e := range m.sessions {
		e.mu.Lock()
		stale := e.session.LastActivity.Before(cutoff)
		e.mu.Unlock()
		if stale {
			delete(m.sessions, id)
			removed = append(removed, id)
		}
	}
	m.mu.Unlock()

	for _, id := range removed {
		m.logger.Info("session reaped", "session_id", id)
	}
	return len(removed)
}

func (m *Manager) lookup(sessionID string) *entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID]
}

// snapshot copies the session; e.mu must be held.
func (e *entry) snapshot() domain.Session {
	s := e.session
	s.Messages = make([]domain.Message, len(e.session.Messages))
	for i, msg := range e.session.Messages {
		if msg.Parameters != nil {
			msg.Parameters = msg.Parameters.Clone()
		}
		s.Messages[i] = msg
	}
	return s
}

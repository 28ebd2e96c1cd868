package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
)

// DefaultMaxTurns is the history window used when GetHistory gets no limit.
const DefaultMaxTurns = 20

var _ driven.SessionStore = (*SessionStore)(nil)

type sessionEntry struct {
	session  domain.Session
	messages []domain.Message
}

// SessionStore is an in-memory implementation of driven.SessionStore.
// A single mutex serialises appends, so per-session ordering is exact.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	now      func() time.Time
	maxTurns int
}

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxTurns sets the default history window.
func WithMaxTurns(n int) SessionOption {
	return func(s *SessionStore) {
		if n > 0 {
			s.maxTurns = n
		}
	}
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore(opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*sessionEntry),
		now:      time.Now,
		maxTurns: DefaultMaxTurns,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession starts a new session.
func (s *SessionStore) CreateSession(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := uuid.New().String()
	s.sessions[id] = &sessionEntry{session: domain.Session{
		ID:           id,
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
	}}
	return id, nil
}

// AddMessage appends a message and bumps last activity.
func (s *SessionStore) AddMessage(_ context.Context, sessionID string, role domain.Role, content string) (bool, error) {
	if !role.IsValid() {
		return false, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return false, nil
	}
	now := s.now()
	if now.After(e.session.LastActivity) {
		e.session.LastActivity = now
	}
	e.messages = append(e.messages, domain.Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	return true, nil
}

// GetHistory returns up to 2*limit most recent messages, oldest first.
func (s *SessionStore) GetHistory(_ context.Context, sessionID string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = s.maxTurns
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return []domain.HistoryEntry{}, nil
	}
	msgs := e.messages
	if len(msgs) > limit*2 {
		msgs = msgs[len(msgs)-limit*2:]
	}
	history := make([]domain.HistoryEntry, len(msgs))
	for i, m := range msgs {
		history[i] = domain.HistoryEntry{Role: m.Role, Content: m.Content}
	}
	return history, nil
}

// SessionExists reports whether the session is present.
func (s *SessionStore) SessionExists(_ context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[sessionID]
	return ok, nil
}

// GetSession returns a copy of the session.
func (s *SessionStore) GetSession(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	sess := e.session
	return &sess, nil
}

// ListSessions returns sessions by most recent activity.
func (s *SessionStore) ListSessions(_ context.Context, userID string) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Session, 0, len(s.sessions))
	for _, e := range s.sessions {
		if userID != "" && e.session.UserID != userID {
			continue
		}
		out = append(out, e.session)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].LastActivity.After(out[j].LastActivity)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetSessionStats returns message and turn counts.
func (s *SessionStore) GetSessionStats(_ context.Context, sessionID string) (*domain.SessionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.SessionStats{
		SessionID:    e.session.ID,
		UserID:       e.session.UserID,
		CreatedAt:    e.session.CreatedAt,
		LastActivity: e.session.LastActivity,
		MessageCount: len(e.messages),
		TurnCount:    len(e.messages) / 2,
	}, nil
}

// CleanupOldSessions removes sessions inactive for longer than maxAge.
func (s *SessionStore) CleanupOldSessions(_ context.Context, maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	n := 0
	for id, e := range s.sessions {
		if e.session.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// DeleteSession removes a session and its messages.
func (s *SessionStore) DeleteSession(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return false, nil
	}
	delete(s.sessions, sessionID)
	return true, nil
}

// Close is a no-op.
func (s *SessionStore) Close() error {
	return nil
}

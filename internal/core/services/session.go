package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
	"github.com/custodia-labs/finrag/internal/core/ports/driving"
	"github.com/custodia-labs/finrag/internal/logger"
)

var _ driving.SessionService = (*SessionService)(nil)

// SessionService exposes conversation maintenance over a session store.
type SessionService struct {
	store driven.SessionStore
}

// NewSessionService creates a session service.
func NewSessionService(store driven.SessionStore) *SessionService {
	return &SessionService{store: store}
}

// Create starts a session for an optional user.
func (s *SessionService) Create(ctx context.Context, userID string) (string, error) {
	return s.store.CreateSession(ctx, userID)
}

// List returns sessions, optionally for one user, newest activity first.
func (s *SessionService) List(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.store.ListSessions(ctx, userID)
}

// History returns up to limit turns in chronological order. Unknown
// sessions are reported as domain.ErrSessionNotFound.
func (s *SessionService) History(ctx context.Context, sessionID string, limit int) ([]domain.HistoryEntry, error) {
	exists, err := s.store.SessionExists(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", sessionID, domain.ErrSessionNotFound)
	}
	return s.store.GetHistory(ctx, sessionID, limit)
}

// Stats returns message and turn counts.
func (s *SessionService) Stats(ctx context.Context, sessionID string) (*domain.SessionStats, error) {
	return s.store.GetSessionStats(ctx, sessionID)
}

// Delete removes a session.
func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	ok, err := s.store.DeleteSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	return nil
}

// Cleanup removes sessions inactive for more than days.
func (s *SessionService) Cleanup(ctx context.Context, days int) (int, error) {
	if days < 1 {
		return 0, fmt.Errorf("%w: days must be at least 1", domain.ErrInvalidInput)
	}
	n, err := s.store.CleanupOldSessions(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		return 0, err
	}
	logger.Info("Cleaned up %d sessions inactive for more than %d days", n, days)
	return n, nil
}

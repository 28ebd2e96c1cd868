package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

// SessionStore persists conversation sessions and their messages.
type SessionStore interface {
	// CreateSession starts a session, optionally bound to a user, and returns its id.
	CreateSession(ctx context.Context, userID string) (string, error)

	// AddMessage appends a message and bumps the session's last activity.
	// Returns domain.ErrInvalidRole for roles other than user/assistant and
	// false (with a nil error) when the session does not exist.
	AddMessage(ctx context.Context, sessionID string, role domain.Role, content string) (bool, error)

	// GetHistory returns up to 2*limit of the most recent messages in
	// chronological order. limit <= 0 uses the store's configured max turns.
	GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.HistoryEntry, error)

	// SessionExists reports whether the session is present.
	SessionExists(ctx context.Context, sessionID string) (bool, error)

	// GetSession returns the session or domain.ErrNotFound.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// ListSessions returns sessions ordered by most recent activity.
	// An empty userID lists all sessions.
	ListSessions(ctx context.Context, userID string) ([]domain.Session, error)

	// GetSessionStats returns counts for a session or domain.ErrNotFound.
	GetSessionStats(ctx context.Context, sessionID string) (*domain.SessionStats, error)

	// CleanupOldSessions deletes sessions inactive for longer than maxAge
	// together with their messages and returns how many were removed.
	CleanupOldSessions(ctx context.Context, maxAge time.Duration) (int, error)

	// DeleteSession removes a session and its messages. Returns false if it did not exist.
	DeleteSession(ctx context.Context, sessionID string) (bool, error)

	// Close releases resources.
	Close() error
}

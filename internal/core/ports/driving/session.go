package driving

import (
	"context"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

// SessionService exposes conversation history maintenance.
type SessionService interface {
	// Create starts a session for an optional user.
	Create(ctx context.Context, userID string) (string, error)

	// List returns sessions, optionally for one user, newest activity first.
	List(ctx context.Context, userID string) ([]domain.Session, error)

	// History returns up to limit turns in chronological order.
	History(ctx context.Context, sessionID string, limit int) ([]domain.HistoryEntry, error)

	// Stats returns message and turn counts.
	Stats(ctx context.Context, sessionID string) (*domain.SessionStats, error)

	// Delete removes a session. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes sessions inactive for more than days and returns the count.
	Cleanup(ctx context.Context, days int) (int, error)
}

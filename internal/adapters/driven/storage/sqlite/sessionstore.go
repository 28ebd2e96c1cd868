package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
)

// sessionStore implements driven.SessionStore.
type sessionStore struct {
	store *Store
}

var _ driven.SessionStore = (*sessionStore)(nil)

// CreateSession inserts a new session with created_at and last_activity set to now.
func (s *sessionStore) CreateSession(ctx context.Context, userID string) (string, error) {
	id := uuid.New().String()
	now := toNanos(s.store.now())

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, created_at, last_activity)
		VALUES (?, ?, ?, ?)
	`, id, userID, now, now)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return id, nil
}

// AddMessage bumps last_activity and inserts the message in one transaction.
// last_activity never moves backwards even if the clock does.
func (s *sessionStore) AddMessage(
	ctx context.Context, sessionID string, role domain.Role, content string,
) (bool, error) {
	if !role.IsValid() {
		return false, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}
	now := toNanos(s.store.now())

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		"UPDATE sessions SET last_activity = MAX(last_activity, ?) WHERE id = ?", now, sessionID)
	if err != nil {
		return false, fmt.Errorf("updating session activity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking session: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (session_id, role, content, timestamp)
		VALUES (?, ?, ?, ?)
	`, sessionID, string(role), content, now); err != nil {
		return false, fmt.Errorf("inserting message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}
	return true, nil
}

// GetHistory reads the newest 2*limit messages and returns them oldest first.
func (s *sessionStore) GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = s.store.maxTurns
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT role, content FROM messages
		WHERE session_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, sessionID, limit*2)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	history := make([]domain.HistoryEntry, 0, limit*2)
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		history = append(history, domain.HistoryEntry{Role: domain.Role(role), Content: content})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history, nil
}

// SessionExists reports whether a session row exists.
func (s *sessionStore) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	var one int
	err := s.store.db.QueryRowContext(ctx, "SELECT 1 FROM sessions WHERE id = ?", sessionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking session: %w", err)
	}
	return true, nil
}

// GetSession retrieves a session by ID.
func (s *sessionStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, user_id, created_at, last_activity FROM sessions WHERE id = ?
	`, sessionID)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return sess, nil
}

// ListSessions returns sessions by most recent activity.
func (s *sessionStore) ListSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	q := "SELECT id, user_id, created_at, last_activity FROM sessions"
	var args []any
	if userID != "" {
		q += " WHERE user_id = ?"
		args = append(args, userID)
	}
	q += " ORDER BY last_activity DESC, id"

	rows, err := s.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session //nolint:prealloc // size unknown from query
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// GetSessionStats returns message and turn counts for a session.
func (s *sessionStore) GetSessionStats(ctx context.Context, sessionID string) (*domain.SessionStats, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var count int
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE session_id = ?", sessionID).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting messages: %w", err)
	}

	return &domain.SessionStats{
		SessionID:    sess.ID,
		UserID:       sess.UserID,
		CreatedAt:    sess.CreatedAt,
		LastActivity: sess.LastActivity,
		MessageCount: count,
		TurnCount:    count / 2,
	}, nil
}

// CleanupOldSessions deletes sessions whose last activity is before now-maxAge.
func (s *sessionStore) CleanupOldSessions(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := toNanos(s.store.now().Add(-maxAge))

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM messages WHERE session_id IN (
			SELECT id FROM sessions WHERE last_activity < ?
		)
	`, cutoff); err != nil {
		return 0, fmt.Errorf("deleting old messages: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE last_activity < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting old sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted sessions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return int(n), nil
}

// DeleteSession removes a session and its messages.
func (s *sessionStore) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return false, fmt.Errorf("deleting messages: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return false, fmt.Errorf("deleting session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("counting deleted sessions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}
	return n > 0, nil
}

// Close is a no-op; the owning Store closes the database.
func (s *sessionStore) Close() error {
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		sess          domain.Session
		userID        sql.NullString
		created, last int64
	)
	if err := row.Scan(&sess.ID, &userID, &created, &last); err != nil {
		return nil, err
	}
	sess.UserID = userID.String
	sess.CreatedAt = fromNanos(created)
	sess.LastActivity = fromNanos(last)
	return &sess, nil
}

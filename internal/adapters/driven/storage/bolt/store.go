// Package bolt implements the session store on a bbolt key-value file.
//
// Sessions live in the "sessions" bucket as JSON keyed by id. Each session
// owns a nested bucket under "messages" whose keys are big-endian sequence
// numbers, so cursor order is append order.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	bbolt "go.etcd.io/bbolt"

	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
)

// fileName is the database file inside the data directory.
const fileName = "sessions.bolt"

// DefaultMaxTurns is the history window used when GetHistory gets no limit.
const DefaultMaxTurns = 20

var (
	sessionsBucket = []byte("sessions")
	messagesBucket = []byte("messages")
)

var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore is a bbolt-backed driven.SessionStore.
type SessionStore struct {
	db       *bbolt.DB
	path     string
	now      func() time.Time
	maxTurns int
}

// Option configures the store.
type Option func(*SessionStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *SessionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxTurns sets the default history window.
func WithMaxTurns(n int) Option {
	return func(s *SessionStore) {
		if n > 0 {
			s.maxTurns = n
		}
	}
}

type sessionRecord struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

type messageRecord struct {
	Role      domain.Role `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewSessionStore opens or creates the bolt file in dataDir.
// If dataDir is empty, defaults to ~/.finrag/data.
func NewSessionStore(dataDir string, opts ...Option) (*SessionStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".finrag", "data")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, fileName)
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(sessionsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(messagesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	s := &SessionStore{db: db, path: path, now: time.Now, maxTurns: DefaultMaxTurns}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SessionStore) Path() string {
	return s.path
}

// CreateSession stores a new session record.
func (s *SessionStore) CreateSession(_ context.Context, userID string) (string, error) {
	now := s.now().UTC()
	rec := sessionRecord{ID: uuid.New().String(), UserID: userID, CreatedAt: now, LastActivity: now}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return putSession(tx, rec)
	})
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return rec.ID, nil
}

// AddMessage appends a message and bumps last activity in one transaction.
func (s *SessionStore) AddMessage(_ context.Context, sessionID string, role domain.Role, content string) (bool, error) {
	if !role.IsValid() {
		return false, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	found := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		rec, ok, err := getSession(tx, sessionID)
		if err != nil || !ok {
			return err
		}
		found = true

		now := s.now().UTC()
		if now.After(rec.LastActivity) {
			rec.LastActivity = now
		}
		if err := putSession(tx, rec); err != nil {
			return err
		}

		b, err := tx.Bucket(messagesBucket).CreateBucketIfNotExists([]byte(sessionID))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		enc, err := json.Marshal(messageRecord{Role: role, Content: content, Timestamp: now})
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), enc)
	})
	if err != nil {
		return false, fmt.Errorf("adding message: %w", err)
	}
	return found, nil
}

// GetHistory walks the message cursor backwards for 2*limit entries.
func (s *SessionStore) GetHistory(_ context.Context, sessionID string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = s.maxTurns
	}
	want := limit * 2

	history := make([]domain.HistoryEntry, 0, want)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(messagesBucket).Bucket([]byte(sessionID))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil && len(history) < want; k, v = c.Prev() {
			var m messageRecord
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			history = append(history, domain.HistoryEntry{Role: m.Role, Content: m.Content})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history, nil
}

// SessionExists reports whether the session key is present.
func (s *SessionStore) SessionExists(_ context.Context, sessionID string) (bool, error) {
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		ok = tx.Bucket(sessionsBucket).Get([]byte(sessionID)) != nil
		return nil
	})
	return ok, err
}

// GetSession returns the session or domain.ErrNotFound.
func (s *SessionStore) GetSession(_ context.Context, sessionID string) (*domain.Session, error) {
	var (
		rec sessionRecord
		ok  bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		rec, ok, err = getSession(tx, sessionID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	sess := rec.toDomain()
	return &sess, nil
}

// ListSessions returns sessions by most recent activity.
func (s *SessionStore) ListSessions(_ context.Context, userID string) ([]domain.Session, error) {
	var out []domain.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).ForEach(func(_, v []byte) error {
			var rec sessionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				// Skip malformed entries instead of failing the whole listing
				return nil
			}
			if userID == "" || rec.UserID == userID {
				out = append(out, rec.toDomain())
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
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
	var (
		rec   sessionRecord
		ok    bool
		count int
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		rec, ok, err = getSession(tx, sessionID)
		if err != nil || !ok {
			return err
		}
		if b := tx.Bucket(messagesBucket).Bucket([]byte(sessionID)); b != nil {
			count = b.Stats().KeyN
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("getting session stats: %w", err)
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.SessionStats{
		SessionID:    rec.ID,
		UserID:       rec.UserID,
		CreatedAt:    rec.CreatedAt,
		LastActivity: rec.LastActivity,
		MessageCount: count,
		TurnCount:    count / 2,
	}, nil
}

// CleanupOldSessions removes sessions inactive for longer than maxAge.
func (s *SessionStore) CleanupOldSessions(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)
	n := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var stale []string
		err := tx.Bucket(sessionsBucket).ForEach(func(k, v []byte) error {
			var rec sessionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			if rec.LastActivity.Before(cutoff) {
				stale = append(stale, string(k))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, id := range stale {
			if err := deleteSession(tx, id); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cleaning up sessions: %w", err)
	}
	return n, nil
}

// DeleteSession removes a session and its message bucket.
func (s *SessionStore) DeleteSession(_ context.Context, sessionID string) (bool, error) {
	var existed bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		existed = tx.Bucket(sessionsBucket).Get([]byte(sessionID)) != nil
		if !existed {
			return nil
		}
		return deleteSession(tx, sessionID)
	})
	if err != nil {
		return false, fmt.Errorf("deleting session: %w", err)
	}
	return existed, nil
}

// Close closes the bolt file.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

func (r sessionRecord) toDomain() domain.Session {
	return domain.Session{
		ID:           r.ID,
		UserID:       r.UserID,
		CreatedAt:    r.CreatedAt,
		LastActivity: r.LastActivity,
	}
}

func getSession(tx *bbolt.Tx, id string) (sessionRecord, bool, error) {
	var rec sessionRecord
	v := tx.Bucket(sessionsBucket).Get([]byte(id))
	if v == nil {
		return rec, false, nil
	}
	if err := json.Unmarshal(v, &rec); err != nil {
		return rec, false, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return rec, true, nil
}

func putSession(tx *bbolt.Tx, rec sessionRecord) error {
	enc, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return tx.Bucket(sessionsBucket).Put([]byte(rec.ID), enc)
}

func deleteSession(tx *bbolt.Tx, id string) error {
	if err := tx.Bucket(sessionsBucket).Delete([]byte(id)); err != nil {
		return err
	}
	msgs := tx.Bucket(messagesBucket)
	if msgs.Bucket([]byte(id)) == nil {
		return nil
	}
	return msgs.DeleteBucket([]byte(id))
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

package domain

import "time"

// Role identifies the author of a message.
type Role string

// Message roles. The set is closed.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid returns true for user and assistant.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// Session is a persisted conversation context.
type Session struct {
	ID     string
	UserID string

	CreatedAt time.Time

	// LastActivity never decreases; every appended message bumps it.
	LastActivity time.Time
}

// Message is one append-only turn in a session.
type Message struct {
	SessionID string
	Role      Role
	Content   string
	Timestamp time.Time
}

// HistoryEntry is the role/content pair fed into prompts.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SessionStats summarises a session.
type SessionStats struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
	TurnCount    int       `json:"turn_count"`
}

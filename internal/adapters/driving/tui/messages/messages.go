// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/finrag/internal/core/domain"
)

// QuestionSubmitted is sent when the user submits a question.
type QuestionSubmitted struct {
	Query string
}

// AnswerReceived carries the engine's answer back to the model.
type AnswerReceived struct {
	Query  string
	Result *domain.QueryResult
	Err    error
}

// HistoryLoaded carries the turns of a resumed session.
type HistoryLoaded struct {
	SessionID string
	Entries   []domain.HistoryEntry
	Err       error
}

// StatsLoaded carries index totals for the status bar.
type StatsLoaded struct {
	Stats domain.IndexStats
	Err   error
}

// SessionReset is sent when the user starts a new conversation.
type SessionReset struct{}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// Package tui provides an interactive terminal chat interface for finrag.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/finrag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Chat answers questions.
	Chat driving.ChatService

	// Document supplies index totals for the status bar. Optional.
	Document driving.DocumentService

	// Session loads the history of a resumed session. Optional.
	Session driving.SessionService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(
	chat driving.ChatService,
	document driving.DocumentService,
	session driving.SessionService,
) *Ports {
	return &Ports{
		Chat:     chat,
		Document: document,
		Session:  session,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}

package mcp

import (
	"github.com/custodia-labs/finrag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Chat answers questions.
	Chat driving.ChatService

	// Ingest uploads documents. Optional.
	Ingest driving.IngestService

	// Document lists and deletes documents. Optional.
	Document driving.DocumentService

	// Session exposes conversation history. Optional.
	Session driving.SessionService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}

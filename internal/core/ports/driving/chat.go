package driving

import (
	"context"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

// ChatService answers questions grounded in indexed documents.
type ChatService interface {
	// Query resolves the session, retrieves context, generates an answer
	// and records both turns in the session.
	Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)
}

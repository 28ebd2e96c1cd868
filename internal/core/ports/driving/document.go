package driving

import (
	"context"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

// DocumentService manages indexed documents.
type DocumentService interface {
	// List returns every indexed document, newest first.
	List(ctx context.Context) ([]domain.DocumentSummary, error)

	// Get returns the stored metadata of a document.
	Get(ctx context.Context, documentID string) (*domain.ChunkMetadata, error)

	// Delete removes all chunks of a document and returns how many were
	// deleted. Returns domain.ErrNotFound when nothing matched.
	Delete(ctx context.Context, documentID string) (int, error)

	// Stats returns index totals.
	Stats(ctx context.Context) (domain.IndexStats, error)
}

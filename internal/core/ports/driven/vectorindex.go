package driven

import (
	"context"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

// VectorIndex stores chunk vectors with metadata and answers cosine
// similarity queries.
type VectorIndex interface {
	// Add appends one record per chunk. All four slices must have the same
	// length or domain.ErrInvalidInput is returned. Empty input is a no-op.
	Add(ctx context.Context, texts []string, embeddings [][]float32, metadatas []map[string]any, ids []string) error

	// SimilaritySearch returns up to topK records ordered by ascending cosine
	// distance. A nil filter searches everything. An empty index yields an
	// empty slice, not an error.
	SimilaritySearch(
		ctx context.Context, query []float32, topK int, filter domain.MetadataFilter,
	) ([]domain.RetrievalResult, error)

	// DeleteByDocumentID removes every chunk of the document and returns
	// how many were removed. Zero is not an error.
	DeleteByDocumentID(ctx context.Context, documentID string) (int, error)

	// Stats returns total chunks and distinct documents.
	Stats(ctx context.Context) (domain.IndexStats, error)

	// ListDocuments summarises every indexed document, newest first.
	ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error)

	// DocumentMetadata returns the metadata of a document's first chunk.
	// Returns domain.ErrNotFound if the document has no chunks.
	DocumentMetadata(ctx context.Context, documentID string) (map[string]any, error)

	// Close releases resources.
	Close() error
}

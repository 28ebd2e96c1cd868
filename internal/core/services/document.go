package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
	"github.com/custodia-labs/finrag/internal/core/ports/driving"
	"github.com/custodia-labs/finrag/internal/logger"
)

var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages indexed documents.
type DocumentService struct {
	index     driven.VectorIndex
	onChanged func()
}

// NewDocumentService creates a document service over index. onChanged,
// if not nil, runs after a successful delete.
func NewDocumentService(index driven.VectorIndex, onChanged func()) *DocumentService {
	return &DocumentService{index: index, onChanged: onChanged}
}

// List returns every indexed document, newest first.
func (s *DocumentService) List(ctx context.Context) ([]domain.DocumentSummary, error) {
	if s.index == nil {
		return nil, domain.ErrNotConfigured
	}
	return s.index.ListDocuments(ctx)
}

// Get returns the stored metadata of a document.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.ChunkMetadata, error) {
	if s.index == nil {
		return nil, domain.ErrNotConfigured
	}
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	bag, err := s.index.DocumentMetadata(ctx, documentID)
	if err != nil {
		return nil, err
	}
	meta := domain.ChunkMetadataFromMap(bag)
	return &meta, nil
}

// Delete removes all chunks of a document.
func (s *DocumentService) Delete(ctx context.Context, documentID string) (int, error) {
	if s.index == nil {
		return 0, domain.ErrNotConfigured
	}
	if documentID == "" {
		return 0, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	n, err := s.index.DeleteByDocumentID(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("deleting document %s: %w", documentID, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}

	logger.Info("Deleted document %s (%d chunks)", documentID, n)
	if s.onChanged != nil {
		s.onChanged()
	}
	return n, nil
}

// Stats returns index totals.
func (s *DocumentService) Stats(ctx context.Context) (domain.IndexStats, error) {
	if s.index == nil {
		return domain.IndexStats{}, domain.ErrNotConfigured
	}
	return s.index.Stats(ctx)
}

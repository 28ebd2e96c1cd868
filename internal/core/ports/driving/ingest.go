package driving

import (
	"context"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

// IngestService turns uploaded files into indexed chunks.
type IngestService interface {
	// Ingest runs extract, chunk, embed and store for one document.
	// Failures are returned as *domain.IngestError naming the stage.
	Ingest(ctx context.Context, upload domain.Upload) (*domain.IngestResult, error)

	// SupportedFileTypes lists accepted file extensions.
	SupportedFileTypes() []string

	// ValidateFileType reports whether the filename has a supported extension.
	ValidateFileType(filename string) bool
}

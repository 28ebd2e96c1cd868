package driven

import "context"

// TextExtractor converts raw file bytes to plain text.
type TextExtractor interface {
	// FileTypes returns the lower-case extensions this extractor handles.
	FileTypes() []string

	// Extract returns the document's text. Implementations return
	// domain.ErrInvalidInput for nil content.
	Extract(ctx context.Context, content []byte) (string, error)
}

// ExtractorRegistry selects an extractor by file type.
type ExtractorRegistry interface {
	// Get returns the extractor for a file type or domain.ErrUnsupportedFileType.
	Get(fileType string) (TextExtractor, error)

	// FileTypes returns every supported file type, sorted.
	FileTypes() []string
}

// Package plaintext extracts text files as-is.
package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor handles plain text and delimited text files.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// FileTypes returns the extensions this extractor handles.
func (e *Extractor) FileTypes() []string {
	return []string{"txt", "text", "csv", "tsv", "log"}
}

// Extract decodes the content as UTF-8. Invalid sequences are replaced
// and a byte order mark is dropped.
func (e *Extractor) Extract(_ context.Context, content []byte) (string, error) {
	if content == nil {
		return "", domain.ErrInvalidInput
	}

	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	return text, nil
}

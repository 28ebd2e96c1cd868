package extractors

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
	"github.com/custodia-labs/finrag/internal/extractors/docx"
	"github.com/custodia-labs/finrag/internal/extractors/html"
	"github.com/custodia-labs/finrag/internal/extractors/markdown"
	"github.com/custodia-labs/finrag/internal/extractors/pdf"
	"github.com/custodia-labs/finrag/internal/extractors/plaintext"
	"github.com/custodia-labs/finrag/internal/extractors/xlsx"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps file types to extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]driven.TextExtractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]driven.TextExtractor)}
}

// DefaultRegistry returns a registry with every built-in extractor.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(pdf.New())
	r.Register(xlsx.New())
	return r
}

// Register adds an extractor for each of its file types.
// A later registration for the same type replaces the earlier one.
func (r *Registry) Register(e driven.TextExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ft := range e.FileTypes() {
		r.extractors[NormaliseFileType(ft)] = e
	}
}

// Get returns the extractor for a file type.
func (r *Registry) Get(fileType string) (driven.TextExtractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[NormaliseFileType(fileType)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFileType, fileType)
	}
	return e, nil
}

// FileTypes returns every registered file type, sorted.
func (r *Registry) FileTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.extractors))
	for ft := range r.extractors {
		types = append(types, ft)
	}
	sort.Strings(types)
	return types
}

// NormaliseFileType lower-cases and strips a leading dot.
func NormaliseFileType(ft string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ft)), ".")
}

// FileTypeFromName returns the normalised extension of a filename.
func FileTypeFromName(filename string) string {
	return NormaliseFileType(filepath.Ext(filename))
}

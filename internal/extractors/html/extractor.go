// Package html extracts readable text from HTML documents such as saved
// filings and statements.
package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor handles HTML documents.
type Extractor struct{}

// New creates a new HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// FileTypes returns the extensions this extractor handles.
func (e *Extractor) FileTypes() []string {
	return []string{"html", "htm"}
}

// Extract returns the visible text with tags stripped.
func (e *Extractor) Extract(_ context.Context, content []byte) (string, error) {
	if content == nil {
		return "", domain.ErrInvalidInput
	}
	return stripHTML(string(content)), nil
}

// Pre-compiled regular expressions for HTML parsing performance.
var (
	scriptTag         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag       = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag           = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag            = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	cellEnd           = regexp.MustCompile(`(?i)</t[dh]>`)
	paragraphEnd      = regexp.MustCompile(`(?i)</(p|div|h[1-6]|blockquote|pre|table|section|article)>`)
	lineEnd           = regexp.MustCompile(`(?i)</(li|tr)>`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|h[1-6]|blockquote|pre|table|section|article)(\s[^>]*)?>`)
	brTags            = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags            = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags           = regexp.MustCompile(`<[^>]+>`)
	multiSpaces       = regexp.MustCompile(` {2,}`)
)

// stripHTML removes HTML tags and extracts readable text content.
// Paragraph-level elements end with a blank line so the chunker can
// split on them; table cells are tab separated.
func stripHTML(content string) string {
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = svgTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	content = cellEnd.ReplaceAllString(content, "\t")
	content = openBlockElements.ReplaceAllString(content, "\n")
	content = paragraphEnd.ReplaceAllString(content, "\n\n")
	content = lineEnd.ReplaceAllString(content, "\n")
	content = brTags.ReplaceAllString(content, "\n")
	content = hrTags.ReplaceAllString(content, "\n\n")

	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	// Trim each line and collapse runs of blank lines into one
	lines := strings.Split(content, "\n")
	var b strings.Builder
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				b.WriteString("\n")
				blank = true
			}
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
		blank = false
	}

	return strings.TrimSpace(b.String())
}

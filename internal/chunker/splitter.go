// Package chunker splits extracted document text into overlapping chunks.
//
// Text is split recursively on the coarsest boundary present (paragraph,
// line, sentence, word) and pieces are greedily merged back up to the
// chunk size, carrying a tail of up to overlap characters into the next
// chunk. Sizes are measured in runes.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 800

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 100

// DefaultSeparators are tried in order. The empty separator splits into
// single characters and always succeeds.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter splits text into overlapping chunks.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator priority list.
// An empty separator is appended if missing.
func WithSeparators(seps ...string) Option {
	return func(s *Splitter) {
		if len(seps) == 0 {
			return
		}
		s.separators = append([]string(nil), seps...)
		if s.separators[len(s.separators)-1] != "" {
			s.separators = append(s.separators, "")
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't exceed chunk size
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// ChunkSize returns the configured chunk size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the ordered chunks of text. Empty or whitespace-only text
// yields no chunks. No returned chunk is empty, and none is just the
// overlap tail of the chunk before it.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	raw := s.split(text, s.separators)
	chunks := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if n := len(chunks); n > 0 && s.isOverlapTail(chunks[n-1], c) {
			continue
		}
		chunks = append(chunks, c)
	}
	return chunks
}

// isOverlapTail reports whether c adds nothing beyond the overlap carried
// over from prev.
func (s *Splitter) isOverlapTail(prev, c string) bool {
	return utf8.RuneCountInString(c) <= s.overlap && strings.HasSuffix(prev, c)
}

func (s *Splitter) split(text string, seps []string) []string {
	sep := ""
	var next []string
	for i, candidate := range seps {
		if candidate == "" {
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			next = seps[i+1:]
			break
		}
	}

	var out, pending []string
	for _, piece := range splitKeep(text, sep) {
		if utf8.RuneCountInString(piece) < s.chunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			out = append(out, s.merge(pending)...)
			pending = nil
		}
		if len(next) == 0 {
			out = append(out, s.hardCut(piece)...)
		} else {
			out = append(out, s.split(piece, next)...)
		}
	}
	if len(pending) > 0 {
		out = append(out, s.merge(pending)...)
	}
	return out
}

// merge greedily packs pieces into chunks no longer than chunkSize,
// starting each new chunk with a suffix of the previous one no longer
// than overlap.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var window []string
	total := 0

	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		if total+n > s.chunkSize && len(window) > 0 {
			chunks = append(chunks, strings.Join(window, ""))
			for total > s.overlap || (total+n > s.chunkSize && total > 0) {
				total -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += n
	}
	if len(window) > 0 {
		chunks = append(chunks, strings.Join(window, ""))
	}
	return chunks
}

// hardCut splits text into character windows when no separator is left.
func (s *Splitter) hardCut(text string) []string {
	runes := []rune(text)
	pieces := make([]string, len(runes))
	for i, r := range runes {
		pieces[i] = string(r)
	}
	return s.merge(pieces)
}

// splitKeep splits on sep, keeping the separator at the end of each piece
// so that concatenating the pieces restores the input. An empty sep splits
// into single characters.
func splitKeep(text, sep string) []string {
	if sep == "" {
		runes := []rune(text)
		out := make([]string, len(runes))
		for i, r := range runes {
			out[i] = string(r)
		}
		return out
	}
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

// Section headers of the grounded prompt.
const (
	contextHeader  = "=== RELEVANT FINANCIAL DOCUMENTS ==="
	historyHeader  = "=== CONVERSATION HISTORY ==="
	questionHeader = "=== CURRENT QUESTION ==="
	answerTrailer  = "Please provide a helpful answer based on the context above."
)

// BuildGroundedPrompt lays out system instructions, numbered document
// excerpts, prior turns and the question, in that order. The history
// section is omitted when there is no history.
func BuildGroundedPrompt(
	system, query string, chunks []domain.RetrievalResult, history []domain.HistoryEntry,
) string {
	var b strings.Builder

	b.WriteString(strings.TrimRight(system, "\n"))
	b.WriteString("\n\n")

	b.WriteString("\n\n" + contextHeader + "\n")
	if len(chunks) == 0 {
		b.WriteString("\nNo relevant documents found.\n")
	}
	for i, c := range chunks {
		fmt.Fprintf(&b, "\n[Document %d: %s]\n%s\n", i+1, sourceFilename(c), c.Text)
	}
	b.WriteString("\n")

	if len(history) > 0 {
		b.WriteString("\n\n" + historyHeader + "\n")
		for _, h := range history {
			fmt.Fprintf(&b, "\n%s: %s\n", strings.ToUpper(h.Role.String()), h.Content)
		}
	}

	b.WriteString("\n\n" + questionHeader + "\n")
	b.WriteString(query)
	b.WriteString("\n\n" + answerTrailer)

	return b.String()
}

// BuildNoContextPrompt fills the question into the first %s of the
// no-context template. Templates without one get the question appended.
func BuildNoContextPrompt(template, query string) string {
	if !strings.Contains(template, "%s") {
		return strings.TrimRight(template, "\n") + "\n\nQuestion: " + query + "\n\nYour response:"
	}
	return strings.Replace(template, "%s", query, 1)
}

// sourceFilename returns the chunk's filename or "Unknown".
func sourceFilename(r domain.RetrievalResult) string {
	if name := r.Filename(); name != "" {
		return name
	}
	return "Unknown"
}

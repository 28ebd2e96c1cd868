// Package transcript renders the scrollable conversation of the chat TUI.
package transcript

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/finrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/finrag/internal/core/domain"
)

// Entry is one rendered turn.
type Entry struct {
	Role    domain.Role
	Content string
	Sources []domain.Source

	// Failed marks an assistant turn that reports an error.
	Failed bool
}

// Transcript holds the conversation and a viewport over it.
type Transcript struct {
	styles      *styles.Styles
	viewport    viewport.Model
	entries     []Entry
	showSources bool
}

// New creates an empty transcript.
func New(s *styles.Styles) *Transcript {
	if s == nil {
		s = styles.DefaultStyles()
	}
	t := &Transcript{
		styles:      s,
		viewport:    viewport.New(80, 20),
		showSources: true,
	}
	t.refresh()
	return t
}

// Update forwards scroll keys and mouse events to the viewport.
func (t *Transcript) Update(msg tea.Msg) (*Transcript, tea.Cmd) {
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return t, cmd
}

// View renders the visible part of the conversation.
func (t *Transcript) View() string {
	return t.viewport.View()
}

// SetSize resizes the viewport.
func (t *Transcript) SetSize(width, height int) {
	if height < 1 {
		height = 1
	}
	t.viewport.Width = width
	t.viewport.Height = height
	t.refresh()
}

// AddUser appends a user turn.
func (t *Transcript) AddUser(content string) {
	t.add(Entry{Role: domain.RoleUser, Content: content})
}

// AddAssistant appends an assistant turn with its sources.
func (t *Transcript) AddAssistant(content string, sources []domain.Source) {
	t.add(Entry{Role: domain.RoleAssistant, Content: content, Sources: sources})
}

// AddError appends a failed assistant turn.
func (t *Transcript) AddError(err error) {
	t.add(Entry{Role: domain.RoleAssistant, Content: err.Error(), Failed: true})
}

// Load replaces the conversation with stored history.
func (t *Transcript) Load(history []domain.HistoryEntry) {
	t.entries = t.entries[:0]
	for _, h := range history {
		t.entries = append(t.entries, Entry{Role: h.Role, Content: h.Content})
	}
	t.refresh()
}

// Clear removes every entry.
func (t *Transcript) Clear() {
	t.entries = nil
	t.refresh()
}

// ToggleSources shows or hides source attributions.
func (t *Transcript) ToggleSources() {
	t.showSources = !t.showSources
	t.refresh()
}

// ShowSources reports whether source attributions are rendered.
func (t *Transcript) ShowSources() bool {
	return t.showSources
}

// Entries returns the conversation so far.
func (t *Transcript) Entries() []Entry {
	return t.entries
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	return len(t.entries)
}

func (t *Transcript) add(e Entry) {
	t.entries = append(t.entries, e)
	t.refresh()
	t.viewport.GotoBottom()
}

func (t *Transcript) refresh() {
	t.viewport.SetContent(t.render())
}

func (t *Transcript) render() string {
	if len(t.entries) == 0 {
		return t.styles.Muted.Render("Upload documents with 'finrag upload', then ask a question below.")
	}

	width := t.viewport.Width
	if width < 20 {
		width = 20
	}
	body := t.styles.Normal.Width(width)

	var b strings.Builder
	for i, e := range t.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch {
		case e.Role == domain.RoleUser:
			b.WriteString(t.styles.UserLabel.Render("You"))
		default:
			b.WriteString(t.styles.AssistantLabel.Render("Assistant"))
		}
		b.WriteString("\n")
		if e.Failed {
			b.WriteString(t.styles.Error.Width(width).Render(e.Content))
		} else {
			b.WriteString(body.Render(e.Content))
		}
		if t.showSources {
			for j, src := range e.Sources {
				b.WriteString("\n")
				b.WriteString(t.styles.Source.Render(
					fmt.Sprintf("[%d] %s (%.2f)", j+1, src.Filename, src.RelevanceScore)))
			}
		}
	}
	return b.String()
}

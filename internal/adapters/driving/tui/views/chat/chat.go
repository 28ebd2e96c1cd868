// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/finrag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/finrag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/finrag/internal/adapters/driving/tui/components/transcript"
	"github.com/custodia-labs/finrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/finrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/finrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driving"
)

// historyLimit is how many turns are loaded when resuming a session.
const historyLimit = 50

// chromeHeight is the number of rows used by title, input and status bar.
const chromeHeight = 6

// View is the chat view with transcript, input and status bar.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.ChatInput
	transcript *transcript.Transcript
	statusbar  *status.Bar

	chat      driving.ChatService
	documents driving.DocumentService
	sessions  driving.SessionService
	ctx       context.Context

	sessionID  string
	userID     string
	documentID string

	width   int
	height  int
	pending bool
	err     error
}

// NewView creates a new chat view. documents and sessions may be nil.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	chat driving.ChatService,
	documents driving.DocumentService,
	sessions driving.SessionService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewChatInput(s),
		transcript: transcript.New(s),
		statusbar:  status.NewBar(s, km),
		chat:       chat,
		documents:  documents,
		sessions:   sessions,
		ctx:        context.Background(),
		width:      80,
		height:     24,
	}
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// WithSession resumes an existing session.
func (v *View) WithSession(id string) *View {
	v.sessionID = id
	v.statusbar.SetSessionID(id)
	return v
}

// WithUser binds new sessions to a user.
func (v *View) WithUser(id string) *View {
	v.userID = id
	return v
}

// WithDocument restricts retrieval to one document.
func (v *View) WithDocument(id string) *View {
	v.documentID = id
	return v
}

// Init loads index totals and the resumed session's history.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Init(), v.loadStats(), v.loadHistory())
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerReceived:
		return v, v.handleAnswer(msg)

	case messages.HistoryLoaded:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.transcript.Load(msg.Entries)
		return v, nil

	case messages.StatsLoaded:
		if msg.Err == nil {
			v.statusbar.SetDocumentCount(msg.Stats.TotalDocuments)
		}
		return v, nil

	case messages.SessionReset:
		return v, v.loadStats()

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	switch {
	case keymap.Matches(keyStr, v.keymap.Send):
		return v, v.submit()

	case keymap.Matches(keyStr, v.keymap.Clear):
		v.input.Reset()
		return v, nil

	case keymap.Matches(keyStr, v.keymap.NewSession):
		v.Reset()
		return v, func() tea.Msg { return messages.SessionReset{} }

	case keymap.Matches(keyStr, v.keymap.ToggleSources):
		v.transcript.ToggleSources()
		return v, nil

	case keymap.Matches(keyStr, v.keymap.ScrollUp), keymap.Matches(keyStr, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit sends the typed question unless one is already in flight.
func (v *View) submit() tea.Cmd {
	if v.pending {
		return nil
	}
	query := strings.TrimSpace(v.input.Value())
	if query == "" {
		return nil
	}

	v.input.Reset()
	v.transcript.AddUser(query)
	v.pending = true
	v.err = nil
	v.statusbar.SetState(status.StateThinking)

	return v.ask(query)
}

// ask queries the chat service off the update loop.
func (v *View) ask(query string) tea.Cmd {
	ctx := v.ctx
	req := domain.QueryRequest{
		Query:      query,
		SessionID:  v.sessionID,
		UserID:     v.userID,
		DocumentID: v.documentID,
	}
	chat := v.chat

	return func() tea.Msg {
		result, err := chat.Query(ctx, req)
		return messages.AnswerReceived{Query: query, Result: result, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerReceived) tea.Cmd {
	v.pending = false

	if msg.Err != nil {
		v.transcript.AddError(msg.Err)
		v.setError(msg.Err)
		return nil
	}

	v.sessionID = msg.Result.SessionID
	v.statusbar.SetSessionID(v.sessionID)
	v.statusbar.Clear()
	v.transcript.AddAssistant(msg.Result.Response, msg.Result.Sources)
	return nil
}

func (v *View) loadStats() tea.Cmd {
	if v.documents == nil {
		return nil
	}
	ctx := v.ctx
	documents := v.documents
	return func() tea.Msg {
		stats, err := documents.Stats(ctx)
		return messages.StatsLoaded{Stats: stats, Err: err}
	}
}

func (v *View) loadHistory() tea.Cmd {
	if v.sessions == nil || v.sessionID == "" {
		return nil
	}
	ctx := v.ctx
	sessions := v.sessions
	id := v.sessionID
	return func() tea.Msg {
		entries, err := sessions.History(ctx, id, historyLimit)
		return messages.HistoryLoaded{SessionID: id, Entries: entries, Err: err}
	}
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the chat view.
func (v *View) View() string {
	title := v.styles.Title.Render("finrag") + v.styles.Muted.Render(" · financial assistant")
	if v.documentID != "" {
		title += v.styles.Muted.Render(" · document " + v.documentID)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		v.transcript.View(),
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.transcript.SetSize(width, height-chromeHeight)
}

// Reset starts a new conversation.
func (v *View) Reset() {
	v.sessionID = ""
	v.pending = false
	v.err = nil
	v.input.Reset()
	v.transcript.Clear()
	v.statusbar.SetSessionID("")
	v.statusbar.Clear()
}

// SessionID returns the active session id.
func (v *View) SessionID() string {
	return v.sessionID
}

// Pending reports whether a question is awaiting an answer.
func (v *View) Pending() bool {
	return v.pending
}

// Transcript returns the conversation component.
func (v *View) Transcript() *transcript.Transcript {
	return v.transcript
}

// Input returns the input component.
func (v *View) Input() *input.ChatInput {
	return v.input
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

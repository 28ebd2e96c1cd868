package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
	"github.com/custodia-labs/finrag/internal/core/ports/driving"
	"github.com/custodia-labs/finrag/internal/logger"
)

var _ driving.ChatService = (*QueryEngine)(nil)

const (
	// promptHistoryTurns is how many turns of history go into a prompt.
	promptHistoryTurns = 5

	// sourcePreviewLen is the number of characters kept in a source preview.
	sourcePreviewLen = 200

	unknownDocumentID = "unknown"
)

// redirectPhrases mark a no-context reply that declined an off-topic question.
var redirectPhrases = []string{
	"only handle finance",
	"finance-related",
	"specialized in finance",
	"can't help with",
	"outside my expertise",
}

// QueryEngine answers questions from indexed documents and keeps the
// conversation in the session store.
type QueryEngine struct {
	retriever *Retriever
	llm       driven.LLMService
	sessions  driven.SessionStore
	prompts   driven.PromptStore
	settings  domain.RAGSettings
}

// QueryOption configures a QueryEngine.
type QueryOption func(*QueryEngine)

// WithClock overrides the time source of the empty-index cache.
func WithClock(now func() time.Time) QueryOption {
	return func(e *QueryEngine) {
		if now != nil {
			e.retriever.now = now
		}
	}
}

// WithEmptyIndexTTL overrides how long an empty-index check is reused.
func WithEmptyIndexTTL(ttl time.Duration) QueryOption {
	return func(e *QueryEngine) {
		e.retriever.ttl = ttl
	}
}

// NewQueryEngine creates a query engine. prompts may be nil, in which case
// the built-in templates are used.
func NewQueryEngine(
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	index driven.VectorIndex,
	sessions driven.SessionStore,
	prompts driven.PromptStore,
	settings domain.RAGSettings,
	opts ...QueryOption,
) *QueryEngine {
	e := &QueryEngine{
		retriever: NewRetriever(embedder, index, settings.TopK, settings.SimilarityThreshold),
		llm:       llm,
		sessions:  sessions,
		prompts:   prompts,
		settings:  settings,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InvalidateIndexCache drops the cached empty-index answer.
func (e *QueryEngine) InvalidateIndexCache() {
	e.retriever.Invalidate()
}

// Query answers a question. Retrieval problems and no-context generation
// failures degrade to a weaker answer; grounded generation failures are
// returned as *domain.GenerationError once retries are exhausted.
func (e *QueryEngine) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}

	logger.Section("Query")
	logger.Debug("session=%q user=%q document=%q", req.SessionID, req.UserID, req.DocumentID)

	sessionID, err := e.resolveSession(ctx, req.SessionID, req.UserID)
	if err != nil {
		return nil, err
	}

	var filter domain.MetadataFilter
	if req.DocumentID != "" {
		filter = domain.MetadataFilter{domain.MetaDocumentID: req.DocumentID}
	}
	retrieval := e.retriever.Retrieve(ctx, query, filter)

	history, err := e.sessions.GetHistory(ctx, sessionID, promptHistoryTurns)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}

	if len(retrieval.Chunks) == 0 {
		logger.Warn("No relevant context found for query (retrieval %s)", retrieval.Status)
		response := e.answerWithoutContext(ctx, query)
		if err := e.record(ctx, sessionID, query, response); err != nil {
			return nil, err
		}
		return &domain.QueryResult{
			Response:  response,
			Sources:   []domain.Source{},
			SessionID: sessionID,
		}, nil
	}

	prompt := BuildGroundedPrompt(e.loadPrompt(driven.PromptGroundedSystem), query, retrieval.Chunks, history)
	response, err := e.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	sources := extractSources(retrieval.Chunks)
	if err := e.record(ctx, sessionID, query, response); err != nil {
		return nil, err
	}

	logger.Info("Query processed successfully with %d sources", len(sources))
	return &domain.QueryResult{
		Response:  response,
		Sources:   sources,
		SessionID: sessionID,
	}, nil
}

// resolveSession returns sessionID if it exists, otherwise a new session.
func (e *QueryEngine) resolveSession(ctx context.Context, sessionID, userID string) (string, error) {
	if sessionID != "" {
		exists, err := e.sessions.SessionExists(ctx, sessionID)
		if err != nil {
			return "", fmt.Errorf("checking session: %w", err)
		}
		if exists {
			return sessionID, nil
		}
		logger.Warn("Session %s not found, creating new session", sessionID)
	}

	id, err := e.sessions.CreateSession(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	logger.Debug("Created session %s", id)
	return id, nil
}

// generate calls the LLM up to MaxRetries+1 times.
func (e *QueryEngine) generate(ctx context.Context, prompt string) (string, error) {
	attempts := e.settings.MaxRetries + 1
	opts := driven.GenerateOptions{
		MaxTokens:   e.settings.MaxTokens,
		Temperature: e.settings.Temperature,
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		logger.Debug("Generating response (attempt %d/%d)", attempt, attempts)
		text, err := e.llm.Generate(ctx, prompt, opts)
		if err == nil {
			return text, nil
		}

		lastErr = err
		logger.Warn("LLM generation attempt %d failed: %v", attempt, err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
	}

	logger.Error("All %d generation attempts failed", attempts)
	return "", &domain.GenerationError{Attempts: attempts, Err: lastErr}
}

// answerWithoutContext makes one classify-and-answer call. It never fails.
func (e *QueryEngine) answerWithoutContext(ctx context.Context, query string) string {
	fallback := e.loadPrompt(driven.PromptFallback)

	template := e.loadPrompt(driven.PromptNoContext)
	text, err := e.llm.Generate(ctx, BuildNoContextPrompt(template, query), driven.GenerateOptions{
		MaxTokens:   e.settings.MaxTokens,
		Temperature: e.settings.Temperature,
	})
	if err != nil {
		logger.Warn("No-context generation failed, using fallback: %v", err)
		return fallback
	}

	text = strings.TrimSpace(text)
	if text == "" {
		logger.Warn("No-context generation returned nothing, using fallback")
		return fallback
	}

	if isRedirect(text) {
		logger.Debug("Off-topic question redirected to finance scope")
	} else {
		logger.Debug("Answered from general knowledge")
	}
	return text
}

// loadPrompt returns the named template from the store, or the built-in
// default when the store is missing, fails or has nothing for name.
func (e *QueryEngine) loadPrompt(name string) string {
	if e.prompts != nil {
		p, err := e.prompts.Load(name)
		if err == nil && strings.TrimSpace(p) != "" {
			return p
		}
		if err != nil {
			logger.Warn("Loading prompt %q: %v", name, err)
		}
	}
	return defaultPrompt(name)
}

func defaultPrompt(name string) string {
	switch name {
	case driven.PromptGroundedSystem:
		return domain.GroundedSystemPrompt
	case driven.PromptNoContext:
		return domain.NoContextPrompt
	default:
		return domain.FallbackResponse
	}
}

// record appends the user question and the answer to the session.
func (e *QueryEngine) record(ctx context.Context, sessionID, query, response string) error {
	for _, m := range []struct {
		role    domain.Role
		content string
	}{
		{domain.RoleUser, query},
		{domain.RoleAssistant, response},
	} {
		ok, err := e.sessions.AddMessage(ctx, sessionID, m.role, m.content)
		if err != nil {
			return fmt.Errorf("saving %s message: %w", m.role, err)
		}
		if !ok {
			logger.Warn("Session %s disappeared before %s message was saved", sessionID, m.role)
		}
	}
	return nil
}

// extractSources keeps the first chunk of each document, in retrieval order.
func extractSources(chunks []domain.RetrievalResult) []domain.Source {
	sources := make([]domain.Source, 0, len(chunks))
	seen := make(map[string]bool, len(chunks))

	for _, c := range chunks {
		docID := c.DocumentID()
		if docID == "" {
			docID = unknownDocumentID
		}
		if seen[docID] {
			continue
		}
		seen[docID] = true

		sources = append(sources, domain.Source{
			DocumentID:     docID,
			Filename:       sourceFilename(c),
			ChunkText:      preview(c.Text, sourcePreviewLen),
			RelevanceScore: c.Relevance(),
		})
	}
	return sources
}

// preview returns the first n runes of s followed by "...".
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + "..."
}

func isRedirect(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range redirectPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

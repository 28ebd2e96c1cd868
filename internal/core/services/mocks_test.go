package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
)

// topicTerms are the axes of topicEmbedder's vectors.
var topicTerms = []string{"revenue", "dividend", "debt", "cash", "inflation", "tax"}

// topicEmbedder embeds text as term counts over topicTerms plus a small
// constant axis, so texts about the same topic are close.
type topicEmbedder struct {
	mu         sync.Mutex
	embedCalls int
	batchCalls int
	batchSizes []int
	tasks      []driven.EmbeddingTask
	embedErr   error
	batchErr   error
}

func topicVector(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(topicTerms)+1)
	for i, term := range topicTerms {
		vec[i] = float32(strings.Count(lower, term))
	}
	vec[len(topicTerms)] = 0.01
	return vec
}

func (m *topicEmbedder) Embed(_ context.Context, text string, task driven.EmbeddingTask) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++
	m.tasks = append(m.tasks, task)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return topicVector(text), nil
}

func (m *topicEmbedder) EmbedBatch(_ context.Context, texts []string, task driven.EmbeddingTask) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	m.batchSizes = append(m.batchSizes, len(texts))
	m.tasks = append(m.tasks, task)
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = topicVector(t)
	}
	return out, nil
}

func (m *topicEmbedder) Dimensions() int { return len(topicTerms) + 1 }
func (m *topicEmbedder) ModelName() string { return "mock-topic" }
func (m *topicEmbedder) Ping(context.Context) error { return nil }
func (m *topicEmbedder) Close() error { return nil }

func (m *topicEmbedder) calls() (embed, batch int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedCalls, m.batchCalls
}

// scriptedLLM fails the first failures calls, then answers with reply.
// Every prompt is recorded.
type scriptedLLM struct {
	mu       sync.Mutex
	failures int
	err      error
	reply    string
	replyFn  func(prompt string) string
	prompts  []string
	opts     []driven.GenerateOptions
}

var errLLMDown = errors.New("llm unavailable")

func (m *scriptedLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	if len(m.prompts) <= m.failures {
		if m.err != nil {
			return "", m.err
		}
		return "", errLLMDown
	}
	if m.replyFn != nil {
		return m.replyFn(prompt), nil
	}
	return m.reply, nil
}

func (m *scriptedLLM) ModelName() string { return "mock-llm" }
func (m *scriptedLLM) Ping(context.Context) error { return nil }
func (m *scriptedLLM) Close() error { return nil }

func (m *scriptedLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// mapPromptStore serves prompts from a map.
type mapPromptStore struct {
	prompts map[string]string
}

func (m *mapPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mapPromptStore) Reload() {}

func testPrompts() *mapPromptStore {
	return &mapPromptStore{prompts: map[string]string{
		driven.PromptGroundedSystem: "You are a helpful financial assistant.",
		driven.PromptNoContext:      "Classify and answer.\n\nQuestion: %s\n\nYour response:",
		driven.PromptFallback:       domain.FallbackResponse,
	}}
}

// statsFailingIndex wraps a VectorIndex and fails Stats.
type statsFailingIndex struct {
	driven.VectorIndex
	statsCalls int
}

func (s *statsFailingIndex) Stats(context.Context) (domain.IndexStats, error) {
	s.statsCalls++
	return domain.IndexStats{}, errors.New("stats unavailable")
}

// countingIndex wraps a VectorIndex and counts Stats and search calls.
type countingIndex struct {
	driven.VectorIndex
	statsCalls  int
	searchCalls int
	searchErr   error
}

func (c *countingIndex) Stats(ctx context.Context) (domain.IndexStats, error) {
	c.statsCalls++
	return c.VectorIndex.Stats(ctx)
}

func (c *countingIndex) SimilaritySearch(
	ctx context.Context, q []float32, k int, f domain.MetadataFilter,
) ([]domain.RetrievalResult, error) {
	c.searchCalls++
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	return c.VectorIndex.SimilaritySearch(ctx, q, k, f)
}

// mockAIConfigValidator returns fixed errors.
type mockAIConfigValidator struct {
	embedErr error
	llmErr   error
}

func (m *mockAIConfigValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	return m.embedErr
}

func (m *mockAIConfigValidator) ValidateLLM(_ *domain.LLMSettings) error {
	return m.llmErr
}

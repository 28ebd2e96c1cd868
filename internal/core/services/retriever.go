package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
	"github.com/custodia-labs/finrag/internal/logger"
)

// DefaultEmptyIndexTTL is how long an "index is empty" answer is reused.
const DefaultEmptyIndexTTL = 30 * time.Second

// RetrievalStatus says how a retrieval ended.
type RetrievalStatus int

const (
	// RetrievalOK means the index was searched. Chunks may still be empty
	// if nothing passed the threshold.
	RetrievalOK RetrievalStatus = iota

	// RetrievalSkipped means the index is empty and no embedding was made.
	RetrievalSkipped

	// RetrievalDegraded means embedding or search failed.
	RetrievalDegraded
)

func (s RetrievalStatus) String() string {
	switch s {
	case RetrievalOK:
		return "ok"
	case RetrievalSkipped:
		return "skipped"
	case RetrievalDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Retrieval is the outcome of a context lookup. Err is set only when
// Status is RetrievalDegraded.
type Retrieval struct {
	Status RetrievalStatus
	Chunks []domain.RetrievalResult

	// Dropped counts search hits discarded by the similarity threshold.
	Dropped int
	Err     error
}

// emptyIndexCache remembers whether the index was empty for a short TTL.
// Staleness costs at most one extra Stats call.
type emptyIndexCache struct {
	mu      sync.Mutex
	empty   bool
	checked time.Time
	valid   bool
}

func (c *emptyIndexCache) get(now time.Time, ttl time.Duration) (empty, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || now.Sub(c.checked) >= ttl {
		return false, false
	}
	return c.empty, true
}

func (c *emptyIndexCache) set(now time.Time, empty bool) {
	c.mu.Lock()
	c.empty = empty
	c.checked = now
	c.valid = true
	c.mu.Unlock()
}

func (c *emptyIndexCache) invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

// Retriever embeds a question and returns the chunks close enough to it.
type Retriever struct {
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	topK      int
	threshold float64
	ttl       time.Duration
	now       func() time.Time
	cache     emptyIndexCache
}

// NewRetriever creates a retriever over index using embedder for questions.
func NewRetriever(
	embedder driven.EmbeddingService, index driven.VectorIndex, topK int, threshold float64,
) *Retriever {
	return &Retriever{
		embedder:  embedder,
		index:     index,
		topK:      topK,
		threshold: threshold,
		ttl:       DefaultEmptyIndexTTL,
		now:       time.Now,
	}
}

// Invalidate forgets the cached empty-index answer. Ingestion calls it
// so a first upload is visible before the TTL runs out.
func (r *Retriever) Invalidate() {
	r.cache.invalidate()
}

// indexEmpty consults the cache, then Stats. A Stats failure counts as
// not empty so retrieval is still attempted.
func (r *Retriever) indexEmpty(ctx context.Context) bool {
	now := r.now()
	if empty, ok := r.cache.get(now, r.ttl); ok {
		return empty
	}

	stats, err := r.index.Stats(ctx)
	if err != nil {
		logger.Warn("Failed to check vector index status: %v", err)
		return false
	}
	empty := stats.TotalChunks == 0
	r.cache.set(now, empty)
	return empty
}

// Retrieve never returns an error; failures come back as RetrievalDegraded.
func (r *Retriever) Retrieve(ctx context.Context, query string, filter domain.MetadataFilter) Retrieval {
	if r.indexEmpty(ctx) {
		logger.Info("Vector index is empty, skipping retrieval")
		return Retrieval{Status: RetrievalSkipped}
	}

	embedding, err := r.embedder.Embed(ctx, query, driven.TaskRetrievalQuery)
	if err != nil {
		logger.Warn("Context retrieval failed: %v", err)
		return Retrieval{Status: RetrievalDegraded, Err: fmt.Errorf("embedding query: %w", err)}
	}

	results, err := r.index.SimilaritySearch(ctx, embedding, r.topK, filter)
	if err != nil {
		logger.Warn("Context retrieval failed: %v", err)
		return Retrieval{Status: RetrievalDegraded, Err: fmt.Errorf("searching index: %w", err)}
	}

	maxDistance := 1 - r.threshold
	kept := make([]domain.RetrievalResult, 0, len(results))
	for _, res := range results {
		if res.Distance <= maxDistance {
			kept = append(kept, res)
		}
	}

	dropped := len(results) - len(kept)
	if dropped > 0 {
		logger.Debug("Filtered %d low-quality results, keeping %d", dropped, len(kept))
	}
	logger.Info("Retrieved %d relevant chunks for query", len(kept))

	return Retrieval{Status: RetrievalOK, Chunks: kept, Dropped: dropped}
}

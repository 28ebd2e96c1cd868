// Package ratelimit wraps an embedding service with a token bucket and
// backs off when the provider answers 429.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/finrag/internal/adapters/driven/aihttp"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
	"github.com/custodia-labs/finrag/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64

	// BurstSize is the maximum burst size.
	BurstSize int

	// Backoff is used after a 429 without a Retry-After header.
	Backoff time.Duration

	// MaxRetries is how many times a rate-limited call is retried.
	MaxRetries int
}

// DefaultConfig is conservative enough for free-tier Gemini quotas.
var DefaultConfig = Config{
	RequestsPerSecond: 5.0,
	BurstSize:         10,
	Backoff:           30 * time.Second,
	MaxRetries:        2,
}

// ErrBackingOff is returned to query embeddings while a 429 backoff
// window is open.
var ErrBackingOff = errors.New("embedding provider rate limited, backing off")

// EmbeddingService delegates to another service under a rate limit.
type EmbeddingService struct {
	next    driven.EmbeddingService
	cfg     Config
	limiter *rate.Limiter

	mu      sync.Mutex
	retryAt time.Time
}

// Wrap returns next behind a limiter built from cfg.
func Wrap(next driven.EmbeddingService, cfg Config) *EmbeddingService {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultConfig.RequestsPerSecond
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = DefaultConfig.BurstSize
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultConfig.Backoff
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &EmbeddingService{
		next:    next,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
	}
}

// wait blocks for any backoff window and then for a token.
func (s *EmbeddingService) wait(ctx context.Context) error {
	s.mu.Lock()
	retryAt := s.retryAt
	s.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return s.limiter.Wait(ctx)
}

// recordRateLimit pushes the backoff window out.
func (s *EmbeddingService) recordRateLimit(after time.Duration) {
	if after <= 0 {
		after = s.cfg.Backoff
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if until := time.Now().Add(after); until.After(s.retryAt) {
		s.retryAt = until
	}
}

// backingOff reports whether a 429 backoff window is still open.
func (s *EmbeddingService) backingOff() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().Before(s.retryAt)
}

func (s *EmbeddingService) call(ctx context.Context, retries int, fn func() error) error {
	for attempt := 0; ; attempt++ {
		if err := s.wait(ctx); err != nil {
			return err
		}
		err := fn()
		apiErr, limited := aihttp.IsRateLimited(err)
		if limited {
			s.recordRateLimit(apiErr.RetryAfter)
		}
		if !limited || attempt >= retries {
			return err
		}
		logger.Debug("embedding provider rate limited, backing off (attempt %d)", attempt+1)
	}
}

// Embed waits for capacity and delegates. Query embeddings are on the
// interactive path: they are never retried and fail with ErrBackingOff
// instead of waiting out a backoff window.
func (s *EmbeddingService) Embed(ctx context.Context, text string, task driven.EmbeddingTask) ([]float32, error) {
	retries := s.cfg.MaxRetries
	if task == driven.TaskRetrievalQuery {
		if s.backingOff() {
			return nil, ErrBackingOff
		}
		retries = 0
	}

	var out []float32
	err := s.call(ctx, retries, func() error {
		var err error
		out, err = s.next.Embed(ctx, text, task)
		return err
	})
	return out, err
}

// EmbedBatch waits for capacity and delegates. A batch costs one token.
func (s *EmbeddingService) EmbedBatch(
	ctx context.Context, texts []string, task driven.EmbeddingTask,
) ([][]float32, error) {
	var out [][]float32
	err := s.call(ctx, s.cfg.MaxRetries, func() error {
		var err error
		out, err = s.next.EmbedBatch(ctx, texts, task)
		return err
	})
	return out, err
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.next.Dimensions()
}

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string {
	return s.next.ModelName()
}

// Ping is not rate limited.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close closes the wrapped service.
func (s *EmbeddingService) Close() error {
	return s.next.Close()
}

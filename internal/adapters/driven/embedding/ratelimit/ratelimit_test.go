package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finrag/internal/adapters/driven/aihttp"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
)

// mockEmbedder fails with the queued errors, then succeeds.
type mockEmbedder struct {
	errs  []error
	calls int
}

func (m *mockEmbedder) next() error {
	m.calls++
	if len(m.errs) == 0 {
		return nil
	}
	err := m.errs[0]
	m.errs = m.errs[1:]
	return err
}

func (m *mockEmbedder) Embed(_ context.Context, _ string, _ driven.EmbeddingTask) ([]float32, error) {
	if err := m.next(); err != nil {
		return nil, err
	}
	return []float32{1}, nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string, _ driven.EmbeddingTask) ([][]float32, error) {
	if err := m.next(); err != nil {
		return nil, err
	}
	return make([][]float32, len(texts)), nil
}

func (m *mockEmbedder) Dimensions() int              { return 3 }
func (m *mockEmbedder) ModelName() string            { return "mock" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

func tooMany() error {
	return &aihttp.APIError{Provider: "mock", StatusCode: http.StatusTooManyRequests}
}

func fastConfig() Config {
	return Config{RequestsPerSecond: 1000, BurstSize: 100, Backoff: time.Millisecond, MaxRetries: 2}
}

func TestWrap_Delegates(t *testing.T) {
	inner := &mockEmbedder{}
	svc := Wrap(inner, fastConfig())

	vec, err := svc.Embed(context.Background(), "x", driven.TaskRetrievalQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "b"}, driven.TaskRetrievalDocument)
	require.NoError(t, err)
	assert.Len(t, vecs, 2)

	assert.Equal(t, 3, svc.Dimensions())
	assert.Equal(t, "mock", svc.ModelName())
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}

func TestWrap_RetriesRateLimited(t *testing.T) {
	inner := &mockEmbedder{errs: []error{tooMany(), tooMany()}}
	svc := Wrap(inner, fastConfig())

	_, err := svc.Embed(context.Background(), "x", driven.TaskRetrievalDocument)

	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestWrap_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &mockEmbedder{errs: []error{tooMany(), tooMany(), tooMany()}}
	svc := Wrap(inner, fastConfig())

	_, err := svc.EmbedBatch(context.Background(), []string{"a"}, driven.TaskRetrievalDocument)

	_, limited := aihttp.IsRateLimited(err)
	assert.True(t, limited)
	assert.Equal(t, 3, inner.calls)
}

func TestWrap_OtherErrorsNotRetried(t *testing.T) {
	inner := &mockEmbedder{errs: []error{errors.New("boom")}}
	svc := Wrap(inner, fastConfig())

	_, err := svc.Embed(context.Background(), "x", driven.TaskRetrievalQuery)

	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, inner.calls)
}

func TestWrap_ContextCancelledDuringBackoff(t *testing.T) {
	cfg := fastConfig()
	cfg.Backoff = time.Hour
	inner := &mockEmbedder{errs: []error{tooMany()}}
	svc := Wrap(inner, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Embed(ctx, "x", driven.TaskRetrievalDocument)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWrap_Defaults(t *testing.T) {
	svc := Wrap(&mockEmbedder{}, Config{MaxRetries: -1})

	assert.Equal(t, DefaultConfig.BurstSize, svc.cfg.BurstSize)
	assert.Equal(t, DefaultConfig.Backoff, svc.cfg.Backoff)
	assert.Zero(t, svc.cfg.MaxRetries)
}

func TestWrap_QueryEmbeddingNotRetried(t *testing.T) {
	inner := &mockEmbedder{errs: []error{tooMany(), tooMany()}}
	svc := Wrap(inner, fastConfig())

	_, err := svc.Embed(context.Background(), "x", driven.TaskRetrievalQuery)

	_, limited := aihttp.IsRateLimited(err)
	assert.True(t, limited)
	assert.Equal(t, 1, inner.calls)
}

func TestWrap_QueryEmbeddingFailsFastDuringBackoff(t *testing.T) {
	inner := &mockEmbedder{}
	svc := Wrap(inner, fastConfig())
	svc.recordRateLimit(time.Hour)

	start := time.Now()
	_, err := svc.Embed(context.Background(), "x", driven.TaskRetrievalQuery)

	assert.ErrorIs(t, err, ErrBackingOff)
	assert.Zero(t, inner.calls)
	assert.Less(t, time.Since(start), time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = svc.Embed(ctx, "x", driven.TaskRetrievalDocument)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "document embeddings wait out the window")
}

func TestWrap_QueryRateLimitOpensWindowForIngest(t *testing.T) {
	cfg := fastConfig()
	cfg.Backoff = time.Hour
	inner := &mockEmbedder{errs: []error{tooMany()}}
	svc := Wrap(inner, cfg)

	_, err := svc.Embed(context.Background(), "x", driven.TaskRetrievalQuery)
	require.Error(t, err)

	assert.True(t, svc.backingOff())
}

// Package gemini provides an embedding service adapter using the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/finrag/internal/adapters/driven/aihttp"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel      = "models/text-embedding-004"
	DefaultTimeout    = 60 * time.Second
	DefaultDimensions = 768

	// maxBatch is the per-request limit of batchEmbedContents.
	maxBatch = 100
)

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// BaseURL is the API base URL (default: the v1beta endpoint).
	BaseURL string

	// Model is the embedding model, with or without the "models/" prefix.
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration
}

// EmbeddingService generates embeddings using the Gemini API.
type EmbeddingService struct {
	client *aihttp.Client
	model  string
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type embedRequest struct {
	Model    string  `json:"model"`
	Content  content `json:"content"`
	TaskType string  `json:"taskType,omitempty"`
}

type batchRequest struct {
	Requests []embedRequest `json:"requests"`
}

type batchResponse struct {
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
}

// NewEmbeddingService creates a new Gemini embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &EmbeddingService{
		client: aihttp.New("gemini", strings.TrimSuffix(cfg.BaseURL, "/"), cfg.Timeout,
			map[string]string{"x-goog-api-key": cfg.APIKey}),
		model: ModelPath(cfg.Model),
	}, nil
}

// ModelPath normalises a model name to the "models/<name>" form.
func ModelPath(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

// taskType maps the task to Gemini's enum.
func taskType(task driven.EmbeddingTask) string {
	switch task {
	case driven.TaskRetrievalDocument:
		return "RETRIEVAL_DOCUMENT"
	case driven.TaskRetrievalQuery:
		return "RETRIEVAL_QUERY"
	default:
		return ""
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string, task driven.EmbeddingTask) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text}, task)
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch uses batchEmbedContents, splitting into requests of at most 100 texts.
func (s *EmbeddingService) EmbedBatch(
	ctx context.Context, texts []string, task driven.EmbeddingTask,
) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))

		req := batchRequest{Requests: make([]embedRequest, 0, end-start)}
		for _, text := range texts[start:end] {
			req.Requests = append(req.Requests, embedRequest{
				Model:    s.model,
				Content:  content{Parts: []part{{Text: text}}},
				TaskType: taskType(task),
			})
		}

		var resp batchResponse
		if err := s.client.PostJSON(ctx, "/"+s.model+":batchEmbedContents", req, &resp); err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini: expected %d embeddings, got %d", end-start, len(resp.Embeddings))
		}
		for _, e := range resp.Embeddings {
			out = append(out, aihttp.ToFloat32(e.Values))
		}
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return DefaultDimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the API key by fetching the model description.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, "/"+s.model, nil)
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

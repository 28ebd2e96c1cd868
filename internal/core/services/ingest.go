package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
	"github.com/custodia-labs/finrag/internal/core/ports/driving"
	"github.com/custodia-labs/finrag/internal/logger"
)

var _ driving.IngestService = (*IngestService)(nil)

// DefaultEmbedBatchSize is how many chunks go into one EmbedBatch call.
const DefaultEmbedBatchSize = 32

// TextSplitter cuts document text into chunks.
type TextSplitter interface {
	Split(text string) []string
}

// IngestService runs the validate, extract, chunk, embed and store stages
// for one upload at a time.
type IngestService struct {
	extractors driven.ExtractorRegistry
	splitter   TextSplitter
	embedder   driven.EmbeddingService
	index      driven.VectorIndex

	maxFileSize int64
	batchSize   int
	now         func() time.Time
	onIndexed   func()
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithMaxFileSize sets the upload limit in bytes. Zero disables the check.
func WithMaxFileSize(n int64) IngestOption {
	return func(s *IngestService) {
		s.maxFileSize = n
	}
}

// WithEmbedBatchSize sets the EmbedBatch group size.
func WithEmbedBatchSize(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithIngestClock overrides the upload timestamp source.
func WithIngestClock(now func() time.Time) IngestOption {
	return func(s *IngestService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIndexListener registers a callback run after chunks are stored.
func WithIndexListener(fn func()) IngestOption {
	return func(s *IngestService) {
		s.onIndexed = fn
	}
}

// NewIngestService creates an ingestion pipeline.
func NewIngestService(
	extractors driven.ExtractorRegistry,
	splitter TextSplitter,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		extractors:  extractors,
		splitter:    splitter,
		embedder:    embedder,
		index:       index,
		maxFileSize: domain.DefaultRAGSettings().MaxFileSizeBytes(),
		batchSize:   DefaultEmbedBatchSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SupportedFileTypes lists accepted file extensions.
func (s *IngestService) SupportedFileTypes() []string {
	return s.extractors.FileTypes()
}

// ValidateFileType reports whether the filename has a supported extension.
func (s *IngestService) ValidateFileType(filename string) bool {
	_, err := s.extractors.Get(fileTypeOf(filename))
	return err == nil
}

// Ingest indexes one document. Nothing is written to the index unless
// every earlier stage succeeded.
func (s *IngestService) Ingest(ctx context.Context, upload domain.Upload) (*domain.IngestResult, error) {
	docID := upload.DocumentID
	replace := docID != ""
	if docID == "" {
		docID = uuid.New().String()
	}
	fileType := normaliseFileType(upload.FileType)
	if fileType == "" {
		fileType = fileTypeOf(upload.Filename)
	}
	uploadedAt := s.now().UTC()

	logger.Section("Ingest")
	logger.Info("Processing document: %s (ID: %s)", upload.Filename, docID)

	// validate
	logger.Debug("Stage %s", domain.StageValidate)
	extractor, err := s.extractors.Get(fileType)
	if err != nil {
		return nil, stageErr(domain.StageValidate, err)
	}
	if s.maxFileSize > 0 && int64(len(upload.Content)) > s.maxFileSize {
		return nil, stageErr(domain.StageValidate, fmt.Errorf("%w: %d bytes exceeds limit of %d",
			domain.ErrFileTooLarge, len(upload.Content), s.maxFileSize))
	}

	// extract
	logger.Debug("Stage %s", domain.StageExtract)
	text, err := extractor.Extract(ctx, upload.Content)
	if err != nil {
		return nil, stageErr(domain.StageExtract, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, stageErr(domain.StageExtract, domain.ErrEmptyContent)
	}

	// chunk
	logger.Debug("Stage %s", domain.StageChunk)
	chunks := s.splitter.Split(text)
	if len(chunks) == 0 {
		return nil, stageErr(domain.StageChunk, domain.ErrNoChunks)
	}

	// embed
	logger.Debug("Stage %s: %d chunks", domain.StageEmbed, len(chunks))
	embeddings, err := s.embed(ctx, chunks)
	if err != nil {
		return nil, stageErr(domain.StageEmbed, err)
	}

	// store
	logger.Debug("Stage %s", domain.StageStore)
	ids := make([]string, len(chunks))
	metadatas := make([]map[string]any, len(chunks))
	for i := range chunks {
		ids[i] = domain.ChunkID(docID, i)
		metadatas[i] = domain.ChunkMetadata{
			DocumentID:    docID,
			Filename:      upload.Filename,
			ChunkIndex:    i,
			UploadedAt:    uploadedAt,
			FileType:      fileType,
			UserID:        upload.UserID,
			Username:      upload.Username,
			FileSizeBytes: int64(len(upload.Content)),
		}.ToMap()
	}

	if replace {
		if n, err := s.index.DeleteByDocumentID(ctx, docID); err != nil {
			return nil, stageErr(domain.StageStore, fmt.Errorf("removing previous chunks: %w", err))
		} else if n > 0 {
			logger.Debug("Replaced %d existing chunks of %s", n, docID)
		}
	}
	if err := s.index.Add(ctx, chunks, embeddings, metadatas, ids); err != nil {
		return nil, stageErr(domain.StageStore, err)
	}

	if s.onIndexed != nil {
		s.onIndexed()
	}

	logger.Info("Successfully processed document %s: %d chunks created", upload.Filename, len(chunks))
	return &domain.IngestResult{
		DocumentID:    docID,
		Filename:      upload.Filename,
		ChunksCreated: len(chunks),
		UploadedAt:    uploadedAt,
	}, nil
}

// embed calls EmbedBatch in groups, preserving chunk order.
func (s *IngestService) embed(ctx context.Context, chunks []string) ([][]float32, error) {
	out := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))

		vecs, err := s.embedder.EmbedBatch(ctx, chunks[start:end], driven.TaskRetrievalDocument)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingGeneration, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("%w: got %d embeddings for %d chunks",
				domain.ErrEmbeddingGeneration, len(vecs), end-start)
		}
		out = append(out, vecs...)
		logger.Debug("Generated embeddings for %d/%d chunks", end, len(chunks))
	}
	return out, nil
}

func stageErr(stage domain.IngestStage, err error) error {
	var ie *domain.IngestError
	if errors.As(err, &ie) {
		return err
	}
	logger.Error("Ingest failed at %s: %v", stage, err)
	return &domain.IngestError{Stage: stage, Err: err}
}

// fileTypeOf returns the lower-case extension of filename without the dot.
func fileTypeOf(filename string) string {
	return normaliseFileType(filepath.Ext(filename))
}

func normaliseFileType(ft string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ft)), ".")
}

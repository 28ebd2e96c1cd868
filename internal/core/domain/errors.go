package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotConfigured indicates a required service is not configured.
	ErrNotConfigured = errors.New("not configured")

	// ErrInvalidSettings indicates a settings value is out of range.
	ErrInvalidSettings = errors.New("invalid settings")

	// Ingestion Errors.

	// ErrUnsupportedFileType indicates no extractor handles the declared file type.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrFileTooLarge indicates the upload exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrEmptyContent indicates extraction produced no usable text.
	ErrEmptyContent = errors.New("no text content extracted from document")

	// ErrNoChunks indicates chunking produced zero chunks.
	ErrNoChunks = errors.New("no chunks created from document")

	// ErrEmbeddingGeneration indicates the embedding provider failed.
	ErrEmbeddingGeneration = errors.New("embedding generation failed")

	// Session Errors.

	// ErrInvalidRole indicates a message role other than user or assistant.
	ErrInvalidRole = errors.New("invalid role")

	// ErrSessionNotFound indicates the session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// Generation Errors.

	// ErrGenerationFailed indicates the LLM failed on every attempt.
	ErrGenerationFailed = errors.New("generation failed")
)

// IngestStage names a step of the ingestion pipeline.
type IngestStage string

// Ingestion stages, in execution order.
const (
	StageValidate IngestStage = "validate"
	StageExtract  IngestStage = "extract"
	StageChunk    IngestStage = "chunk"
	StageEmbed    IngestStage = "embed"
	StageStore    IngestStage = "store"
)

// IngestError reports which pipeline stage failed for a document.
type IngestError struct {
	Stage IngestStage
	Err   error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest: %s: %v", e.Stage, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// GenerationError is returned when grounded generation exhausts its retries.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate response after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap exposes both ErrGenerationFailed and the last provider error.
func (e *GenerationError) Unwrap() []error {
	return []error{ErrGenerationFailed, e.Err}
}

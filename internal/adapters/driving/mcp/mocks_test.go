package mcp

import (
	"context"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	result *domain.QueryResult
	err    error
	last   domain.QueryRequest
}

func (m *mockChatService) Query(_ context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	m.last = req
	return m.result, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	result *domain.IngestResult
	err    error
	last   domain.Upload
}

func (m *mockIngestService) Ingest(_ context.Context, upload domain.Upload) (*domain.IngestResult, error) {
	m.last = upload
	return m.result, m.err
}

func (m *mockIngestService) SupportedFileTypes() []string {
	return []string{"txt"}
}

func (m *mockIngestService) ValidateFileType(_ string) bool {
	return true
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.DocumentSummary
	metadata  *domain.ChunkMetadata
	deleted   int
	stats     domain.IndexStats
	err       error
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.DocumentSummary, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.ChunkMetadata, error) {
	return m.metadata, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) (int, error) {
	return m.deleted, m.err
}

func (m *mockDocumentService) Stats(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}

// mockSessionService is a mock implementation of driving.SessionService.
type mockSessionService struct {
	history   []domain.HistoryEntry
	err       error
	lastLimit int
}

func (m *mockSessionService) Create(_ context.Context, _ string) (string, error) {
	return "session-1", m.err
}

func (m *mockSessionService) List(_ context.Context, _ string) ([]domain.Session, error) {
	return nil, m.err
}

func (m *mockSessionService) History(_ context.Context, _ string, limit int) ([]domain.HistoryEntry, error) {
	m.lastLimit = limit
	return m.history, m.err
}

func (m *mockSessionService) Stats(_ context.Context, _ string) (*domain.SessionStats, error) {
	return nil, m.err
}

func (m *mockSessionService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockSessionService) Cleanup(_ context.Context, _ int) (int, error) {
	return 0, m.err
}

package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

func TestExtractSessionID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid session history URI",
			uri:      "finrag://sessions/s-123/history",
			expected: "s-123",
		},
		{
			name:     "invalid prefix",
			uri:      "file://sessions/s-123/history",
			expected: "",
		},
		{
			name:     "missing history suffix",
			uri:      "finrag://sessions/s-123",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractSessionID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid document URI",
			uri:      "finrag://documents/doc-456",
			expected: "doc-456",
		},
		{
			name:     "invalid prefix",
			uri:      "file://documents/doc-456",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractDocumentID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil document service returns empty list", func(t *testing.T) {
		server := newTestServer(t, &Ports{})

		req := makeReadResourceRequest("finrag://documents")
		result, err := server.handleDocumentsResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns documents", func(t *testing.T) {
		docs := &mockDocumentService{documents: []domain.DocumentSummary{
			{DocumentID: "doc-1", Filename: "budget.xlsx", FileType: "xlsx", ChunkCount: 2},
		}}
		server := newTestServer(t, &Ports{Document: docs})

		req := makeReadResourceRequest("finrag://documents")
		result, err := server.handleDocumentsResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"document_id": "doc-1"`)
		assert.Contains(t, result.Contents[0].Text, `"filename": "budget.xlsx"`)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		server := newTestServer(t, &Ports{Document: &mockDocumentService{err: errors.New("db down")}})

		_, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("finrag://documents"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing documents")
	})
}

func TestServer_handleDocumentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns metadata", func(t *testing.T) {
		docs := &mockDocumentService{metadata: &domain.ChunkMetadata{
			DocumentID: "doc-1", Filename: "q3.pdf", FileType: "pdf", UserID: "u-1", FileSizeBytes: 2048,
		}}
		server := newTestServer(t, &Ports{Document: docs})

		result, err := server.handleDocumentResource(ctx, makeReadResourceRequest("finrag://documents/doc-1"))

		require.NoError(t, err)
		text := result.Contents[0].Text
		assert.Contains(t, text, `"filename": "q3.pdf"`)
		assert.Contains(t, text, `"user_id": "u-1"`)
		assert.Contains(t, text, `"file_size_bytes": 2048`)
	})

	t.Run("not found maps to resource error", func(t *testing.T) {
		server := newTestServer(t, &Ports{Document: &mockDocumentService{err: domain.ErrNotFound}})

		_, err := server.handleDocumentResource(ctx, makeReadResourceRequest("finrag://documents/missing"))

		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("nil document service", func(t *testing.T) {
		server := newTestServer(t, &Ports{})

		_, err := server.handleDocumentResource(ctx, makeReadResourceRequest("finrag://documents/doc-1"))

		require.Error(t, err)
	})

	t.Run("empty id", func(t *testing.T) {
		server := newTestServer(t, &Ports{Document: &mockDocumentService{}})

		_, err := server.handleDocumentResource(ctx, makeReadResourceRequest("finrag://documents/"))

		require.Error(t, err)
	})
}

func TestServer_handleSessionResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns history", func(t *testing.T) {
		sessions := &mockSessionService{history: []domain.HistoryEntry{
			{Role: domain.RoleUser, Content: "What is EBITDA?"},
		}}
		server := newTestServer(t, &Ports{Session: sessions})

		result, err := server.handleSessionResource(ctx, makeReadResourceRequest("finrag://sessions/s-1/history"))

		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, `"role": "user"`)
		assert.Contains(t, result.Contents[0].Text, "What is EBITDA?")
		assert.Equal(t, defaultHistoryLimit, sessions.lastLimit)
	})

	t.Run("unknown session", func(t *testing.T) {
		server := newTestServer(t, &Ports{Session: &mockSessionService{err: domain.ErrSessionNotFound}})

		_, err := server.handleSessionResource(ctx, makeReadResourceRequest("finrag://sessions/nope/history"))

		require.Error(t, err)
	})

	t.Run("empty history", func(t *testing.T) {
		server := newTestServer(t, &Ports{Session: &mockSessionService{}})

		result, err := server.handleSessionResource(ctx, makeReadResourceRequest("finrag://sessions/s-1/history"))

		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})
}

package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

// defaultHistoryLimit is the number of turns session_history returns by default.
const defaultHistoryLimit = 20

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query      string `json:"query" jsonschema:"the finance question to answer"`
	SessionID  string `json:"session_id,omitempty" jsonschema:"session to continue; a new one is created when empty"`
	UserID     string `json:"user_id,omitempty" jsonschema:"user id recorded on new sessions"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"restrict retrieval to one document"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Response  string          `json:"response"`
	Sources   []domain.Source `json:"sources"`
	SessionID string          `json:"session_id"`
}

// UploadInput is the input schema for the upload_document tool.
type UploadInput struct {
	Path       string `json:"path,omitempty" jsonschema:"local file to upload"`
	Filename   string `json:"filename,omitempty" jsonschema:"name used with content; its extension selects the extractor"`
	Content    string `json:"content,omitempty" jsonschema:"inline text content to upload instead of a file"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"existing document to replace"`
	UserID     string `json:"user_id,omitempty" jsonschema:"user id recorded with the document"`
}

// DocumentIDInput is the input schema for tools addressing one document.
type DocumentIDInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document id"`
}

// UploadOutput is the output schema for the upload_document tool.
type UploadOutput struct {
	DocumentID    string `json:"document_id"`
	Filename      string `json:"filename"`
	ChunksCreated int    `json:"chunks_created"`
	UploadDate    string `json:"upload_date"`
}

// DocumentOutput describes one indexed document.
type DocumentOutput struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	FileType   string `json:"file_type"`
	UploadDate string `json:"upload_date,omitempty"`
	ChunkCount int    `json:"chunk_count"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DeleteDocumentOutput is the output schema for the delete_document tool.
type DeleteDocumentOutput struct {
	DocumentID    string `json:"document_id"`
	ChunksDeleted int    `json:"chunks_deleted"`
}

// SessionHistoryInput is the input schema for the session_history tool.
type SessionHistoryInput struct {
	SessionID string `json:"session_id" jsonschema:"the session id"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of turns to return (default 20)"`
}

// SessionHistoryOutput is the output schema for the session_history tool.
type SessionHistoryOutput struct {
	SessionID string                `json:"session_id"`
	Messages  []domain.HistoryEntry `json:"messages"`
	Count     int                   `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
// Tools backed by an optional port are only registered when it is set.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a finance question using the uploaded documents",
	}, s.handleAsk)

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "upload_document",
			Description: "Extract, chunk and index a document so it can be used in answers",
		}, s.handleUpload)
	}

	if s.ports.Document != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_documents",
			Description: "List indexed documents, newest first",
		}, s.handleListDocuments)

		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "delete_document",
			Description: "Delete a document and all of its chunks",
		}, s.handleDeleteDocument)

		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "index_stats",
			Description: "Count indexed documents and chunks",
		}, s.handleIndexStats)
	}

	if s.ports.Session != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "session_history",
			Description: "Return the conversation history of a session",
		}, s.handleSessionHistory)
	}
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	result, err := s.ports.Chat.Query(ctx, domain.QueryRequest{
		Query:      input.Query,
		SessionID:  input.SessionID,
		UserID:     input.UserID,
		DocumentID: input.DocumentID,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	sources := result.Sources
	if sources == nil {
		sources = []domain.Source{}
	}

	return nil, AskOutput{
		Response:  result.Response,
		Sources:   sources,
		SessionID: result.SessionID,
	}, nil
}

// handleUpload handles the upload_document tool invocation.
func (s *Server) handleUpload(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UploadInput,
) (*mcp.CallToolResult, UploadOutput, error) {
	upload := domain.Upload{
		DocumentID: input.DocumentID,
		Filename:   input.Filename,
		UserID:     input.UserID,
	}

	switch {
	case input.Path != "":
		content, err := os.ReadFile(input.Path)
		if err != nil {
			return nil, UploadOutput{}, fmt.Errorf("reading %s: %w", input.Path, err)
		}
		upload.Content = content
		if upload.Filename == "" {
			upload.Filename = filepath.Base(input.Path)
		}
	case input.Content != "":
		upload.Content = []byte(input.Content)
		if upload.Filename == "" {
			upload.Filename = "upload.txt"
		}
	default:
		return nil, UploadOutput{}, errMissingContent
	}

	result, err := s.ports.Ingest.Ingest(ctx, upload)
	if err != nil {
		return nil, UploadOutput{}, err
	}
	return nil, UploadOutput{
		DocumentID:    result.DocumentID,
		Filename:      result.Filename,
		ChunksCreated: result.ChunksCreated,
		UploadDate:    formatTime(result.UploadedAt),
	}, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Document.List(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	out := make([]DocumentOutput, len(docs))
	for i := range docs {
		out[i] = DocumentOutput{
			DocumentID: docs[i].DocumentID,
			Filename:   docs[i].Filename,
			FileType:   docs[i].FileType,
			UploadDate: formatTime(docs[i].UploadedAt),
			ChunkCount: docs[i].ChunkCount,
		}
	}
	return nil, ListDocumentsOutput{Documents: out, Count: len(out)}, nil
}

// handleDeleteDocument handles the delete_document tool invocation.
func (s *Server) handleDeleteDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentIDInput,
) (*mcp.CallToolResult, DeleteDocumentOutput, error) {
	n, err := s.ports.Document.Delete(ctx, input.DocumentID)
	if err != nil {
		return nil, DeleteDocumentOutput{}, err
	}
	return nil, DeleteDocumentOutput{DocumentID: input.DocumentID, ChunksDeleted: n}, nil
}

// handleIndexStats handles the index_stats tool invocation.
func (s *Server) handleIndexStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, domain.IndexStats, error) {
	stats, err := s.ports.Document.Stats(ctx)
	if err != nil {
		return nil, domain.IndexStats{}, err
	}
	return nil, stats, nil
}

// handleSessionHistory handles the session_history tool invocation.
func (s *Server) handleSessionHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SessionHistoryInput,
) (*mcp.CallToolResult, SessionHistoryOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	history, err := s.ports.Session.History(ctx, input.SessionID, limit)
	if err != nil {
		return nil, SessionHistoryOutput{}, err
	}
	if history == nil {
		history = []domain.HistoryEntry{}
	}

	return nil, SessionHistoryOutput{
		SessionID: input.SessionID,
		Messages:  history,
		Count:     len(history),
	}, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

package domain

import (
	"fmt"
	"time"
)

// Metadata keys used when chunk metadata is persisted as a key-value bag.
const (
	MetaDocumentID    = "document_id"
	MetaFilename      = "filename"
	MetaChunkIndex    = "chunk_index"
	MetaUploadDate    = "upload_date"
	MetaFileType      = "file_type"
	MetaUserID        = "user_id"
	MetaUsername      = "username"
	MetaFileSizeBytes = "file_size_bytes"
	MetaQueryCount    = "query_count"
)

// Document represents a user-uploaded file.
// It is immutable once its chunks are written; deletion cascades to chunks.
type Document struct {
	// ID is the opaque unique identifier for the document.
	ID string

	// Filename is the original upload name.
	Filename string

	// FileType is the lower-case extension without a dot (pdf, docx, txt...).
	FileType string

	// UploadedAt is when ingestion started.
	UploadedAt time.Time
}

// Upload is the raw input to the ingestion pipeline.
type Upload struct {
	// DocumentID is optional. A new id is generated when empty.
	DocumentID string

	// Filename is used for display and, when FileType is empty, type detection.
	Filename string

	// FileType overrides detection from the filename extension.
	FileType string

	// Content is the raw file bytes.
	Content []byte

	// UserID and Username attribute the upload to a caller.
	UserID   string
	Username string
}

// IngestResult summarises a successfully ingested document.
type IngestResult struct {
	DocumentID    string    `json:"document_id"`
	Filename      string    `json:"filename"`
	ChunksCreated int       `json:"chunks_created"`
	UploadedAt    time.Time `json:"upload_date"`
}

// ChunkID derives the deterministic identifier of a document's chunk.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// ChunkMetadata is the attribution stored with each chunk vector.
// Optional fields are left at their zero value when not supplied.
type ChunkMetadata struct {
	DocumentID    string
	Filename      string
	ChunkIndex    int
	UploadedAt    time.Time
	FileType      string
	UserID        string
	Username      string
	FileSizeBytes int64
	QueryCount    int
}

// ToMap converts metadata to the key-value bag used by index storage.
// Zero-valued optional fields are omitted.
func (m ChunkMetadata) ToMap() map[string]any {
	out := map[string]any{
		MetaDocumentID: m.DocumentID,
		MetaFilename:   m.Filename,
		MetaChunkIndex: m.ChunkIndex,
		MetaFileType:   m.FileType,
	}
	if !m.UploadedAt.IsZero() {
		out[MetaUploadDate] = m.UploadedAt.UTC().Format(time.RFC3339Nano)
	}
	if m.UserID != "" {
		out[MetaUserID] = m.UserID
	}
	if m.Username != "" {
		out[MetaUsername] = m.Username
	}
	if m.FileSizeBytes > 0 {
		out[MetaFileSizeBytes] = m.FileSizeBytes
	}
	if m.QueryCount > 0 {
		out[MetaQueryCount] = m.QueryCount
	}
	return out
}

// ChunkMetadataFromMap rebuilds metadata from a stored key-value bag.
// Numbers decoded from JSON arrive as float64 and are accepted.
func ChunkMetadataFromMap(bag map[string]any) ChunkMetadata {
	var m ChunkMetadata
	if bag == nil {
		return m
	}
	m.DocumentID, _ = bag[MetaDocumentID].(string)
	m.Filename, _ = bag[MetaFilename].(string)
	m.FileType, _ = bag[MetaFileType].(string)
	m.UserID, _ = bag[MetaUserID].(string)
	m.Username, _ = bag[MetaUsername].(string)
	m.ChunkIndex = int(toInt64(bag[MetaChunkIndex]))
	m.FileSizeBytes = toInt64(bag[MetaFileSizeBytes])
	m.QueryCount = int(toInt64(bag[MetaQueryCount]))
	if s, ok := bag[MetaUploadDate].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			m.UploadedAt = t
		}
	}
	return m
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// MetadataFilter restricts a similarity search to records whose metadata
// contains every key with an equal value.
type MetadataFilter map[string]any

// Matches reports whether the metadata bag satisfies the filter.
func (f MetadataFilter) Matches(bag map[string]any) bool {
	for k, want := range f {
		got, ok := bag[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// RetrievalResult is one record returned by a similarity search.
type RetrievalResult struct {
	ChunkID  string
	Text     string
	Metadata map[string]any

	// Distance is the cosine distance to the query; lower is more similar.
	Distance float64
}

// Relevance converts distance to a score in [0,1].
func (r RetrievalResult) Relevance() float64 {
	return RelevanceFromDistance(r.Distance)
}

// DocumentID returns the owning document id from metadata.
func (r RetrievalResult) DocumentID() string {
	id, _ := r.Metadata[MetaDocumentID].(string)
	return id
}

// Filename returns the source filename from metadata.
func (r RetrievalResult) Filename() string {
	name, _ := r.Metadata[MetaFilename].(string)
	return name
}

// IndexStats summarises the vector index contents.
type IndexStats struct {
	TotalChunks    int `json:"total_chunks"`
	TotalDocuments int `json:"total_documents"`
}

// DocumentSummary describes one indexed document.
type DocumentSummary struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	FileType   string    `json:"file_type"`
	UploadedAt time.Time `json:"upload_date"`
	ChunkCount int       `json:"chunk_count"`
}

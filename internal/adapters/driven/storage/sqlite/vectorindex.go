package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
)

// vectorIndex implements driven.VectorIndex.
type vectorIndex struct {
	store *Store
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// Add upserts one row per chunk. Re-adding an id replaces the earlier row.
func (v *vectorIndex) Add(
	ctx context.Context, texts []string, embeddings [][]float32, metadatas []map[string]any, ids []string,
) error {
	if err := domain.ValidateBatch(texts, embeddings, metadatas, ids); err != nil {
		return err
	}
	if len(texts) == 0 {
		return nil
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, chunk_index, filename, file_type, uploaded_at,
			text, embedding, dimensions, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			chunk_index = excluded.chunk_index,
			filename = excluded.filename,
			file_type = excluded.file_type,
			uploaded_at = excluded.uploaded_at,
			text = excluded.text,
			embedding = excluded.embedding,
			dimensions = excluded.dimensions,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range texts {
		metadataJSON, err := json.Marshal(metadatas[i])
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}
		meta := domain.ChunkMetadataFromMap(metadatas[i])

		if _, err := stmt.ExecContext(ctx, ids[i], meta.DocumentID, meta.ChunkIndex, meta.Filename,
			meta.FileType, toNanos(meta.UploadedAt), texts[i], float32SliceToBytes(embeddings[i]),
			len(embeddings[i]), string(metadataJSON)); err != nil {
			return fmt.Errorf("saving chunk %s: %w", ids[i], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SimilaritySearch scores every candidate row by cosine distance.
// A document_id filter is pushed into SQL; other keys are matched in Go.
func (v *vectorIndex) SimilaritySearch(
	ctx context.Context, query []float32, topK int, filter domain.MetadataFilter,
) ([]domain.RetrievalResult, error) {
	if topK <= 0 || len(query) == 0 {
		return []domain.RetrievalResult{}, nil
	}

	q := "SELECT id, text, embedding, metadata FROM chunks"
	var args []any
	if docID, ok := filter[domain.MetaDocumentID]; ok {
		q += " WHERE document_id = ?"
		args = append(args, fmt.Sprint(docID))
	}

	rows, err := v.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	results := make([]domain.RetrievalResult, 0, topK)
	for rows.Next() {
		var (
			id, text, metadataJSON string
			blob                   []byte
		)
		if err := rows.Scan(&id, &text, &blob, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		var metadata map[string]any
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
		if len(filter) > 0 && !filter.Matches(metadata) {
			continue
		}

		results = append(results, domain.RetrievalResult{
			ChunkID:  id,
			Text:     text,
			Metadata: metadata,
			Distance: domain.CosineDistance(query, bytesToFloat32Slice(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return domain.TopK(results, topK), nil
}

// DeleteByDocumentID removes all chunks of a document.
func (v *vectorIndex) DeleteByDocumentID(ctx context.Context, documentID string) (int, error) {
	res, err := v.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted chunks: %w", err)
	}
	return int(n), nil
}

// Stats returns chunk and distinct document counts.
func (v *vectorIndex) Stats(ctx context.Context) (domain.IndexStats, error) {
	var stats domain.IndexStats
	row := v.store.db.QueryRowContext(ctx, "SELECT COUNT(*), COUNT(DISTINCT document_id) FROM chunks")
	if err := row.Scan(&stats.TotalChunks, &stats.TotalDocuments); err != nil {
		return domain.IndexStats{}, fmt.Errorf("counting chunks: %w", err)
	}
	return stats, nil
}

// ListDocuments groups chunks by document, newest upload first.
func (v *vectorIndex) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	rows, err := v.store.db.QueryContext(ctx, `
		SELECT document_id, MAX(filename), MAX(file_type), MAX(uploaded_at), COUNT(*)
		FROM chunks
		GROUP BY document_id
		ORDER BY MAX(uploaded_at) DESC, document_id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.DocumentSummary //nolint:prealloc // size unknown from query
	for rows.Next() {
		var d domain.DocumentSummary
		var uploaded int64
		if err := rows.Scan(&d.DocumentID, &d.Filename, &d.FileType, &uploaded, &d.ChunkCount); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.UploadedAt = fromNanos(uploaded)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// DocumentMetadata returns the metadata of the document's first chunk.
func (v *vectorIndex) DocumentMetadata(ctx context.Context, documentID string) (map[string]any, error) {
	row := v.store.db.QueryRowContext(ctx, `
		SELECT metadata FROM chunks WHERE document_id = ?
		ORDER BY chunk_index LIMIT 1
	`, documentID)

	var metadataJSON string
	if err := row.Scan(&metadataJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reading document metadata: %w", err)
	}

	var metadata map[string]any
	if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
		return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
	}
	return metadata, nil
}

// Close is a no-op; the owning Store closes the database.
func (v *vectorIndex) Close() error {
	return nil
}

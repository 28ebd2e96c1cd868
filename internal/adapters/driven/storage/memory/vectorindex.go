package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
)

var _ driven.VectorIndex = (*VectorIndex)(nil)

type record struct {
	text      string
	embedding []float32
	metadata  map[string]any
	seq       int
}

// VectorIndex is an in-memory implementation of driven.VectorIndex.
// Search is an exact cosine scan over every record.
type VectorIndex struct {
	mu      sync.RWMutex
	records map[string]record
	seq     int
}

// NewVectorIndex creates an empty in-memory vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{records: make(map[string]record)}
}

// Add stores or replaces each record by id.
func (v *VectorIndex) Add(
	_ context.Context, texts []string, embeddings [][]float32, metadatas []map[string]any, ids []string,
) error {
	if err := domain.ValidateBatch(texts, embeddings, metadatas, ids); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range texts {
		v.seq++
		v.records[ids[i]] = record{
			text:      texts[i],
			embedding: append([]float32(nil), embeddings[i]...),
			metadata:  copyBag(metadatas[i]),
			seq:       v.seq,
		}
	}
	return nil
}

// SimilaritySearch returns up to topK records ordered by ascending distance.
func (v *VectorIndex) SimilaritySearch(
	_ context.Context, query []float32, topK int, filter domain.MetadataFilter,
) ([]domain.RetrievalResult, error) {
	if topK <= 0 || len(query) == 0 {
		return []domain.RetrievalResult{}, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	results := make([]domain.RetrievalResult, 0, len(v.records))
	for id, r := range v.records {
		if !filter.Matches(r.metadata) {
			continue
		}
		results = append(results, domain.RetrievalResult{
			ChunkID:  id,
			Text:     r.text,
			Metadata: copyBag(r.metadata),
			Distance: domain.CosineDistance(query, r.embedding),
		})
	}
	return domain.TopK(results, topK), nil
}

// DeleteByDocumentID removes every record of the document.
func (v *VectorIndex) DeleteByDocumentID(_ context.Context, documentID string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	n := 0
	for id, r := range v.records {
		if docID(r.metadata) == documentID {
			delete(v.records, id)
			n++
		}
	}
	return n, nil
}

// Stats counts records and distinct documents.
func (v *VectorIndex) Stats(_ context.Context) (domain.IndexStats, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	docs := make(map[string]struct{})
	for _, r := range v.records {
		docs[docID(r.metadata)] = struct{}{}
	}
	return domain.IndexStats{TotalChunks: len(v.records), TotalDocuments: len(docs)}, nil
}

// ListDocuments groups records by document, newest upload first.
func (v *VectorIndex) ListDocuments(_ context.Context) ([]domain.DocumentSummary, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	byDoc := make(map[string]*domain.DocumentSummary)
	for _, r := range v.records {
		meta := domain.ChunkMetadataFromMap(r.metadata)
		s, ok := byDoc[meta.DocumentID]
		if !ok {
			s = &domain.DocumentSummary{
				DocumentID: meta.DocumentID,
				Filename:   meta.Filename,
				FileType:   meta.FileType,
			}
			byDoc[meta.DocumentID] = s
		}
		s.ChunkCount++
		if meta.UploadedAt.After(s.UploadedAt) {
			s.UploadedAt = meta.UploadedAt
		}
	}

	docs := make([]domain.DocumentSummary, 0, len(byDoc))
	for _, s := range byDoc {
		docs = append(docs, *s)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.After(docs[j].UploadedAt)
		}
		return docs[i].DocumentID < docs[j].DocumentID
	})
	return docs, nil
}

// DocumentMetadata returns the metadata of the document's lowest-index chunk.
func (v *VectorIndex) DocumentMetadata(_ context.Context, documentID string) (map[string]any, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var (
		best  map[string]any
		index = -1
	)
	for _, r := range v.records {
		if docID(r.metadata) != documentID {
			continue
		}
		i := domain.ChunkMetadataFromMap(r.metadata).ChunkIndex
		if index < 0 || i < index {
			best, index = r.metadata, i
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return copyBag(best), nil
}

// Close is a no-op.
func (v *VectorIndex) Close() error {
	return nil
}

func docID(bag map[string]any) string {
	id, _ := bag[domain.MetaDocumentID].(string)
	return id
}

func copyBag(bag map[string]any) map[string]any {
	out := make(map[string]any, len(bag))
	for k, val := range bag {
		out[k] = val
	}
	return out
}

package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir(), opts...)
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

// addDocument indexes n chunks for docID, each embedded as the given vector.
func addDocument(t *testing.T, store *Store, docID string, vectors ...[]float32) {
	t.Helper()

	texts := make([]string, len(vectors))
	metas := make([]map[string]any, len(vectors))
	ids := make([]string, len(vectors))
	for i := range vectors {
		texts[i] = fmt.Sprintf("%s text %d", docID, i)
		metas[i] = domain.ChunkMetadata{
			DocumentID: docID,
			Filename:   docID + ".txt",
			ChunkIndex: i,
			FileType:   "txt",
			UploadedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}.ToMap()
		ids[i] = domain.ChunkID(docID, i)
	}
	require.NoError(t, store.VectorIndex().Add(context.Background(), texts, vectors, metas, ids))
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_ErrorHandling(t *testing.T) {
	_, err := NewStore("/invalid\x00path")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "creating data directory")
}

func TestNewStore_Success(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	dbPath := filepath.Join(tempDir, "finrag.db")
	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)
	assert.NoError(t, store.db.Ping())
}

func TestNewStore_DirectoryCreation(t *testing.T) {
	nestedDir := filepath.Join(t.TempDir(), "nested", "path", "to", "db")
	store, err := NewStore(nestedDir)
	require.NoError(t, err)
	defer store.Close()

	assert.DirExists(t, nestedDir)
}

func TestNewStore_Migrations(t *testing.T) {
	store := setupTestStore(t)

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)

	for _, table := range []string{"chunks", "sessions", "messages"} {
		var exists int
		err := store.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&exists)
		require.NoError(t, err)
		assert.Equal(t, 1, exists, "table %s should exist", table)
	}
}

func TestNewStore_ReopenSkipsAppliedMigrations(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	addDocument(t, first, "doc", []float32{1, 0})
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	stats, err := second.VectorIndex().Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalChunks)
}

func TestNewStore_ForeignKeysEnabled(t *testing.T) {
	store := setupTestStore(t)

	var fkEnabled int
	require.NoError(t, store.db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled))
	assert.Equal(t, 1, fkEnabled)
}

func TestStore_Close(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.Error(t, store.db.Ping())
}

// ==================== Vector Index Tests ====================

func TestVectorIndex_Add_MismatchedLengths(t *testing.T) {
	store := setupTestStore(t)

	err := store.VectorIndex().Add(context.Background(),
		[]string{"a", "b"}, [][]float32{{1}}, []map[string]any{{}, {}}, []string{"1", "2"})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVectorIndex_Add_EmptyIsNoop(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.VectorIndex().Add(ctx, nil, nil, nil, nil))

	stats, err := store.VectorIndex().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexStats{}, stats)
}

func TestVectorIndex_Add_Upsert(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	addDocument(t, store, "doc", []float32{1, 0}, []float32{0, 1})
	addDocument(t, store, "doc", []float32{1, 0}, []float32{0, 1})

	stats, err := store.VectorIndex().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalChunks)
	assert.Equal(t, 1, stats.TotalDocuments)
}

func TestVectorIndex_SimilaritySearch_EmptyIndex(t *testing.T) {
	store := setupTestStore(t)

	results, err := store.VectorIndex().SimilaritySearch(context.Background(), []float32{1, 0}, 5, nil)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorIndex_SimilaritySearch_Ordering(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	addDocument(t, store, "a", []float32{0, 1}, []float32{1, 1})
	addDocument(t, store, "b", []float32{1, 0}, []float32{-1, 0})

	results, err := store.VectorIndex().SimilaritySearch(ctx, []float32{1, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "b_chunk_0", results[0].ChunkID)
	assert.InDelta(t, 0, results[0].Distance, 1e-9)
	assert.Equal(t, "a_chunk_1", results[1].ChunkID)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
	assert.Equal(t, "b", results[0].DocumentID())
	assert.Equal(t, "b.txt", results[0].Filename())
	assert.Equal(t, "b text 0", results[0].Text)
}

func TestVectorIndex_SimilaritySearch_Filter(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	addDocument(t, store, "a", []float32{1, 0})
	addDocument(t, store, "b", []float32{1, 0}, []float32{0, 1})

	results, err := store.VectorIndex().SimilaritySearch(ctx, []float32{1, 0}, 10,
		domain.MetadataFilter{domain.MetaDocumentID: "b"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "b", r.DocumentID())
	}

	results, err = store.VectorIndex().SimilaritySearch(ctx, []float32{1, 0}, 10,
		domain.MetadataFilter{domain.MetaChunkIndex: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b_chunk_1", results[0].ChunkID)
}

func TestVectorIndex_SimilaritySearch_NonPositiveTopK(t *testing.T) {
	store := setupTestStore(t)
	addDocument(t, store, "a", []float32{1, 0})

	results, err := store.VectorIndex().SimilaritySearch(context.Background(), []float32{1, 0}, 0, nil)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorIndex_DeleteByDocumentID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	index := store.VectorIndex()

	addDocument(t, store, "a", []float32{1, 0}, []float32{0, 1})
	addDocument(t, store, "b", []float32{1, 0})

	n, err := index.DeleteByDocumentID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, err := index.SimilaritySearch(ctx, []float32{1, 0}, 10, domain.MetadataFilter{domain.MetaDocumentID: "a"})
	require.NoError(t, err)
	assert.Empty(t, results)

	stats, err := index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalDocuments)

	n, err = index.DeleteByDocumentID(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, n)

	stats, err = index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalDocuments)
}

func TestVectorIndex_ListDocuments(t *testing.T) {
	store := setupTestStore(t)
	addDocument(t, store, "a", []float32{1, 0}, []float32{0, 1})
	addDocument(t, store, "b", []float32{1, 0})

	docs, err := store.VectorIndex().ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	byID := map[string]domain.DocumentSummary{}
	for _, d := range docs {
		byID[d.DocumentID] = d
	}
	assert.Equal(t, 2, byID["a"].ChunkCount)
	assert.Equal(t, "b.txt", byID["b"].Filename)
	assert.Equal(t, "txt", byID["b"].FileType)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), byID["a"].UploadedAt)
}

func TestVectorIndex_DocumentMetadata(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	addDocument(t, store, "a", []float32{1, 0}, []float32{0, 1})

	meta, err := store.VectorIndex().DocumentMetadata(ctx, "a")
	require.NoError(t, err)
	parsed := domain.ChunkMetadataFromMap(meta)
	assert.Equal(t, "a.txt", parsed.Filename)
	assert.Equal(t, 0, parsed.ChunkIndex)

	_, err = store.VectorIndex().DocumentMetadata(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ==================== Session Store Tests ====================

func TestSessionStore_CreateSession(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := setupTestStore(t, WithClock(clock.Now))
	ctx := context.Background()
	sessions := store.SessionStore()

	id, err := sessions.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	exists, err := sessions.SessionExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)

	sess, err := sessions.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, clock.now, sess.CreatedAt)
	assert.Equal(t, clock.now, sess.LastActivity)
}

func TestSessionStore_SessionExists_Unknown(t *testing.T) {
	store := setupTestStore(t)

	exists, err := store.SessionStore().SessionExists(context.Background(), "nope")

	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSessionStore_GetSession_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.SessionStore().GetSession(context.Background(), "nope")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_AddMessage_InvalidRole(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	id, err := store.SessionStore().CreateSession(ctx, "")
	require.NoError(t, err)

	ok, err := store.SessionStore().AddMessage(ctx, id, domain.Role("system"), "hi")

	assert.ErrorIs(t, err, domain.ErrInvalidRole)
	assert.False(t, ok)
}

func TestSessionStore_AddMessage_UnknownSession(t *testing.T) {
	store := setupTestStore(t)

	ok, err := store.SessionStore().AddMessage(context.Background(), "nope", domain.RoleUser, "hi")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_AddMessage_BumpsActivity(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := setupTestStore(t, WithClock(clock.Now))
	ctx := context.Background()
	sessions := store.SessionStore()

	id, err := sessions.CreateSession(ctx, "")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	ok, err := sessions.AddMessage(ctx, id, domain.RoleUser, "hello")
	require.NoError(t, err)
	assert.True(t, ok)

	sess, err := sessions.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, clock.now, sess.LastActivity)

	// A clock that moves backwards never lowers last_activity.
	clock.Advance(-time.Hour)
	_, err = sessions.AddMessage(ctx, id, domain.RoleAssistant, "hi")
	require.NoError(t, err)

	sess, err = sessions.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(time.Hour), sess.LastActivity)
}

func TestSessionStore_GetHistory_Bounded(t *testing.T) {
	const maxTurns = 4
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := setupTestStore(t, WithClock(clock.Now), WithMaxTurns(maxTurns))
	ctx := context.Background()
	sessions := store.SessionStore()

	id, err := sessions.CreateSession(ctx, "")
	require.NoError(t, err)

	total := 2*maxTurns + 5
	for i := 0; i < total; i++ {
		clock.Advance(time.Second)
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		_, err := sessions.AddMessage(ctx, id, role, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	history, err := sessions.GetHistory(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, history, 2*maxTurns)
	for i, h := range history {
		assert.Equal(t, fmt.Sprintf("m%d", total-2*maxTurns+i), h.Content)
	}

	history, err = sessions.GetHistory(ctx, id, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, fmt.Sprintf("m%d", total-1), history[1].Content)
}

func TestSessionStore_GetHistory_SameTimestampKeepsInsertOrder(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := setupTestStore(t, WithClock(clock.Now))
	ctx := context.Background()
	sessions := store.SessionStore()

	id, err := sessions.CreateSession(ctx, "")
	require.NoError(t, err)
	_, err = sessions.AddMessage(ctx, id, domain.RoleUser, "question")
	require.NoError(t, err)
	_, err = sessions.AddMessage(ctx, id, domain.RoleAssistant, "answer")
	require.NoError(t, err)

	history, err := sessions.GetHistory(ctx, id, 5)
	require.NoError(t, err)
	assert.Equal(t, []domain.HistoryEntry{
		{Role: domain.RoleUser, Content: "question"},
		{Role: domain.RoleAssistant, Content: "answer"},
	}, history)
}

func TestSessionStore_ListSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := setupTestStore(t, WithClock(clock.Now))
	ctx := context.Background()
	sessions := store.SessionStore()

	older, err := sessions.CreateSession(ctx, "alice")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	newer, err := sessions.CreateSession(ctx, "alice")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = sessions.CreateSession(ctx, "bob")
	require.NoError(t, err)

	all, err := sessions.ListSessions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	alice, err := sessions.ListSessions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 2)
	assert.Equal(t, newer, alice[0].ID)
	assert.Equal(t, older, alice[1].ID)
}

func TestSessionStore_GetSessionStats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	sessions := store.SessionStore()

	id, err := sessions.CreateSession(ctx, "u")
	require.NoError(t, err)
	for _, role := range []domain.Role{domain.RoleUser, domain.RoleAssistant, domain.RoleUser} {
		_, err := sessions.AddMessage(ctx, id, role, "x")
		require.NoError(t, err)
	}

	stats, err := sessions.GetSessionStats(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.MessageCount)
	assert.Equal(t, 1, stats.TurnCount)
	assert.Equal(t, "u", stats.UserID)

	_, err = sessions.GetSessionStats(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_CleanupOldSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := setupTestStore(t, WithClock(clock.Now))
	ctx := context.Background()
	sessions := store.SessionStore()

	stale, err := sessions.CreateSession(ctx, "")
	require.NoError(t, err)
	_, err = sessions.AddMessage(ctx, stale, domain.RoleUser, "old")
	require.NoError(t, err)

	clock.Advance(31 * 24 * time.Hour)
	fresh, err := sessions.CreateSession(ctx, "")
	require.NoError(t, err)

	n, err := sessions.CleanupOldSessions(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	exists, err := sessions.SessionExists(ctx, stale)
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = sessions.SessionExists(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, exists)

	var orphans int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM messages WHERE session_id = ?", stale).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestSessionStore_DeleteSession(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	sessions := store.SessionStore()

	id, err := sessions.CreateSession(ctx, "")
	require.NoError(t, err)
	_, err = sessions.AddMessage(ctx, id, domain.RoleUser, "hi")
	require.NoError(t, err)

	deleted, err := sessions.DeleteSession(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	history, err := sessions.GetHistory(ctx, id, 5)
	require.NoError(t, err)
	assert.Empty(t, history)

	deleted, err = sessions.DeleteSession(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)
}

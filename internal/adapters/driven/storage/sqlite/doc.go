// Package sqlite provides a SQLite-based implementation of the vector index
// and session store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation. One database file backs:
//
//   - VectorIndex: chunk text, embeddings and metadata with exact cosine search
//   - SessionStore: sessions and their append-only messages
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Similarity Search
//
// Search is a brute-force scan: every candidate embedding is decoded and
// scored with cosine distance. This is exact and fast enough for the few
// thousand chunks a document library produces.
//
// # Data Location
//
// By default, the database is stored at ~/.finrag/data/finrag.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Message appends run in a transaction together with the
// session's last_activity update.
package sqlite

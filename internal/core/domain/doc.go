// Package domain defines the core business entities for finrag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded financial document
//   - ChunkMetadata: Per-chunk attribution stored alongside each vector
//   - RetrievalResult: One nearest-neighbour hit from the vector index
//   - Session, Message: Persisted conversation history
//   - QueryRequest, QueryResult: The RAG engine's input and output
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain

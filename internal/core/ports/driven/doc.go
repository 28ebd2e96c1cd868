// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - EmbeddingService: Converts text to vectors (document or query task)
//   - LLMService: Generates text from a prompt
//   - VectorIndex: Chunk vector storage and cosine similarity search
//   - SessionStore: Conversation history persistence
//   - TextExtractor / ExtractorRegistry: File bytes to plain text
//   - ConfigStore: Application configuration
//   - PromptStore: User-editable prompt templates
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven

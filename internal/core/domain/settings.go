package domain

import "fmt"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderGemini is Google's Gemini API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderGemini, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderGemini || p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RAGSettings holds retrieval and generation tuning.
type RAGSettings struct {
	ChunkSize            int
	ChunkOverlap         int
	TopK                 int
	SimilarityThreshold  float64
	MaxConversationTurns int
	Temperature          float64
	MaxTokens            int
	MaxRetries           int
	MaxFileSizeMB        int
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (r RAGSettings) MaxFileSizeBytes() int64 {
	return int64(r.MaxFileSizeMB) * 1024 * 1024
}

// Validate checks every value against its accepted range.
func (r RAGSettings) Validate() error {
	checks := []struct {
		ok  bool
		msg string
	}{
		{r.ChunkSize >= 100 && r.ChunkSize <= 2000, "chunk_size must be between 100 and 2000"},
		{r.ChunkOverlap >= 0 && r.ChunkOverlap <= 500, "chunk_overlap must be between 0 and 500"},
		{r.ChunkOverlap < r.ChunkSize, "chunk_overlap must be less than chunk_size"},
		{r.TopK >= 1 && r.TopK <= 20, "top_k must be between 1 and 20"},
		{r.SimilarityThreshold >= 0 && r.SimilarityThreshold <= 1, "similarity_threshold must be between 0 and 1"},
		{r.MaxConversationTurns >= 1 && r.MaxConversationTurns <= 100, "max_conversation_turns must be between 1 and 100"},
		{r.Temperature >= 0 && r.Temperature <= 2, "temperature must be between 0 and 2"},
		{r.MaxTokens >= 1 && r.MaxTokens <= 8192, "max_tokens must be between 1 and 8192"},
		{r.MaxRetries >= 0 && r.MaxRetries <= 10, "max_retries must be between 0 and 10"},
		{r.MaxFileSizeMB >= 1 && r.MaxFileSizeMB <= 100, "max_file_size_mb must be between 1 and 100"},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("%w: %s", ErrInvalidSettings, c.msg)
		}
	}
	return nil
}

// StorageBackend selects a persistence implementation.
type StorageBackend string

// Available storage backends.
const (
	// StorageSQLite persists to ~/.finrag/data.db.
	StorageSQLite StorageBackend = "sqlite"

	// StorageBolt persists sessions to ~/.finrag/sessions.bolt.
	StorageBolt StorageBackend = "bolt"

	// StorageMemory keeps everything in process memory.
	StorageMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageSQLite, StorageBolt, StorageMemory:
		return true
	default:
		return false
	}
}

// StorageSettings picks backends for the vector index and session store.
type StorageSettings struct {
	// VectorBackend supports sqlite and memory.
	VectorBackend StorageBackend

	// SessionBackend supports sqlite, bolt and memory.
	SessionBackend StorageBackend

	// SessionCleanupDays is the inactivity cutoff for session cleanup.
	SessionCleanupDays int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	RAG       RAGSettings
	Storage   StorageSettings
}

// DefaultRAGSettings returns the tuning defaults.
func DefaultRAGSettings() RAGSettings {
	return RAGSettings{
		ChunkSize:            800,
		ChunkOverlap:         100,
		TopK:                 5,
		SimilarityThreshold:  0.7,
		MaxConversationTurns: 20,
		Temperature:          0.7,
		MaxTokens:            500,
		MaxRetries:           2,
		MaxFileSizeMB:        10,
	}
}

// DefaultAppSettings returns settings with sensible defaults.
// API keys are not set here; they come from the environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderGemini,
			Model:    DefaultEmbeddingModels()[AIProviderGemini],
		},
		LLM: LLMSettings{
			Provider: AIProviderGemini,
			Model:    DefaultLLMModels()[AIProviderGemini],
		},
		RAG: DefaultRAGSettings(),
		Storage: StorageSettings{
			VectorBackend:      StorageSQLite,
			SessionBackend:     StorageSQLite,
			SessionCleanupDays: 30,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderGemini,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderGemini,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGemini: "models/text-embedding-004",
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGemini:    "models/gemini-2.0-flash",
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Gemini models
		"models/text-embedding-004": 768,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

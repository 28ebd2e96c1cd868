package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
	"github.com/custodia-labs/finrag/internal/core/ports/driving"
)

var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyChunkSize       = "rag.chunk_size"
	keyChunkOverlap    = "rag.chunk_overlap"
	keyTopK            = "rag.top_k"
	keyThreshold       = "rag.similarity_threshold"
	keyMaxTurns        = "rag.max_conversation_turns"
	keyTemperature     = "rag.temperature"
	keyMaxTokens       = "rag.max_tokens"
	keyMaxRetries      = "rag.max_retries"
	keyMaxFileSizeMB   = "rag.max_file_size_mb"
	keyVectorBackend   = "storage.vector_backend"
	keySessionBackend  = "storage.session_backend"
	keySessionCleanup  = "session.cleanup_days"
	defaultOllamaURL   = "http://localhost:11434"
	envOllamaBaseURL   = "OLLAMA_BASE_URL"
	envGeminiAPIKey    = "GEMINI_API_KEY"
	envOpenAIAPIKey    = "OPENAI_API_KEY"
	envAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

// settingKind is the value type accepted by Set for a key.
type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindProvider
	kindBackend
)

// settableKeys lists every key Set accepts. API keys are not settable
// here; they come from the environment or SetEmbeddingProvider.
var settableKeys = map[string]settingKind{
	keyEmbedProvider:  kindProvider,
	keyEmbedModel:     kindString,
	keyEmbedBaseURL:   kindString,
	keyLLMProvider:    kindProvider,
	keyLLMModel:       kindString,
	keyLLMBaseURL:     kindString,
	keyChunkSize:      kindInt,
	keyChunkOverlap:   kindInt,
	keyTopK:           kindInt,
	keyThreshold:      kindFloat,
	keyMaxTurns:       kindInt,
	keyTemperature:    kindFloat,
	keyMaxTokens:      kindInt,
	keyMaxRetries:     kindInt,
	keyMaxFileSizeMB:  kindInt,
	keyVectorBackend:  kindBackend,
	keySessionBackend: kindBackend,
	keySessionCleanup: kindInt,
}

// SettableKeys returns the keys accepted by Set, sorted.
func SettableKeys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service. API keys and the
// Ollama URL fall back to the process environment.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// WithEnv replaces the environment lookup. Used by tests.
func (s *SettingsService) WithEnv(getenv func(string) string) *SettingsService {
	s.getenv = getenv
	return s
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	embedProvider := s.getProvider(keyEmbedProvider, defaults.Embedding.Provider)
	llmProvider := s.getProvider(keyLLMProvider, defaults.LLM.Provider)

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: embedProvider,
			Model:    s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[embedProvider]),
			BaseURL:  s.baseURL(keyEmbedBaseURL, embedProvider),
			APIKey:   s.apiKey(keyEmbedAPIKey, embedProvider),
		},
		LLM: domain.LLMSettings{
			Provider: llmProvider,
			Model:    s.getString(keyLLMModel, domain.DefaultLLMModels()[llmProvider]),
			BaseURL:  s.baseURL(keyLLMBaseURL, llmProvider),
			APIKey:   s.apiKey(keyLLMAPIKey, llmProvider),
		},
		RAG: domain.RAGSettings{
			ChunkSize:            s.getInt(keyChunkSize, defaults.RAG.ChunkSize),
			ChunkOverlap:         s.getInt(keyChunkOverlap, defaults.RAG.ChunkOverlap),
			TopK:                 s.getInt(keyTopK, defaults.RAG.TopK),
			SimilarityThreshold:  s.getFloat(keyThreshold, defaults.RAG.SimilarityThreshold),
			MaxConversationTurns: s.getInt(keyMaxTurns, defaults.RAG.MaxConversationTurns),
			Temperature:          s.getFloat(keyTemperature, defaults.RAG.Temperature),
			MaxTokens:            s.getInt(keyMaxTokens, defaults.RAG.MaxTokens),
			MaxRetries:           s.getInt(keyMaxRetries, defaults.RAG.MaxRetries),
			MaxFileSizeMB:        s.getInt(keyMaxFileSizeMB, defaults.RAG.MaxFileSizeMB),
		},
		Storage: domain.StorageSettings{
			VectorBackend:      s.getBackend(keyVectorBackend, defaults.Storage.VectorBackend),
			SessionBackend:     s.getBackend(keySessionBackend, defaults.Storage.SessionBackend),
			SessionCleanupDays: s.getInt(keySessionCleanup, defaults.Storage.SessionCleanupDays),
		},
	}

	if settings.Storage.VectorBackend == domain.StorageBolt {
		settings.Storage.VectorBackend = defaults.Storage.VectorBackend
	}

	return settings, nil
}

// Save validates and persists application settings. API keys are only
// written when set and never read back from the environment into the file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.RAG.Validate(); err != nil {
		return err
	}

	values := []struct {
		key string
		val any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyChunkSize, settings.RAG.ChunkSize},
		{keyChunkOverlap, settings.RAG.ChunkOverlap},
		{keyTopK, settings.RAG.TopK},
		{keyThreshold, settings.RAG.SimilarityThreshold},
		{keyMaxTurns, settings.RAG.MaxConversationTurns},
		{keyTemperature, settings.RAG.Temperature},
		{keyMaxTokens, settings.RAG.MaxTokens},
		{keyMaxRetries, settings.RAG.MaxRetries},
		{keyMaxFileSizeMB, settings.RAG.MaxFileSizeMB},
		{keyVectorBackend, string(settings.Storage.VectorBackend)},
		{keySessionBackend, string(settings.Storage.SessionBackend)},
		{keySessionCleanup, settings.Storage.SessionCleanupDays},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" && settings.Embedding.APIKey != s.envKey(settings.Embedding.Provider) {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.LLM.APIKey != "" && settings.LLM.APIKey != s.envKey(settings.LLM.Provider) {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return nil
}

// Set parses value for key, validates the resulting settings and saves
// the key.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidSettings, key)
	}
	value = strings.TrimSpace(value)

	var parsed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidSettings, key)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidSettings, key)
		}
		parsed = f
	case kindProvider:
		p := domain.AIProvider(strings.ToLower(value))
		if !p.IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidSettings, value)
		}
		if key == keyEmbedProvider && p == domain.AIProviderAnthropic {
			return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidSettings, p)
		}
		parsed = p.String()
	case kindBackend:
		b := domain.StorageBackend(strings.ToLower(value))
		if !b.IsValid() || (key == keyVectorBackend && b == domain.StorageBolt) {
			return fmt.Errorf("%w: unsupported backend %q for %s", domain.ErrInvalidSettings, value, key)
		}
		parsed = string(b)
	default:
		parsed = value
	}

	if kind == kindInt || kind == kindFloat {
		current, err := s.Get()
		if err != nil {
			return err
		}
		applyRAGValue(&current.RAG, key, parsed)
		if err := current.RAG.Validate(); err != nil {
			return err
		}
		if key == keySessionCleanup && parsed.(int) < 1 {
			return fmt.Errorf("%w: session.cleanup_days must be at least 1", domain.ErrInvalidSettings)
		}
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return err
	}

	// a new provider starts from its own default model
	switch key {
	case keyEmbedProvider:
		return s.configStore.Set(keyEmbedModel, "")
	case keyLLMProvider:
		return s.configStore.Set(keyLLMModel, "")
	}
	return nil
}

// applyRAGValue sets the RAG field matching key. Non-RAG keys are ignored.
func applyRAGValue(r *domain.RAGSettings, key string, v any) {
	switch key {
	case keyChunkSize:
		r.ChunkSize = v.(int)
	case keyChunkOverlap:
		r.ChunkOverlap = v.(int)
	case keyTopK:
		r.TopK = v.(int)
	case keyThreshold:
		r.SimilarityThreshold = v.(float64)
	case keyMaxTurns:
		r.MaxConversationTurns = v.(int)
	case keyTemperature:
		r.Temperature = v.(float64)
	case keyMaxTokens:
		r.MaxTokens = v.(int)
	case keyMaxRetries:
		r.MaxRetries = v.(int)
	case keyMaxFileSizeMB:
		r.MaxFileSizeMB = v.(int)
	}
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	supported := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	settings.Embedding.BaseURL = ""
	if provider.IsLocal() {
		settings.Embedding.BaseURL = s.ollamaURL()
	}
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	settings.LLM.BaseURL = ""
	if provider.IsLocal() {
		settings.LLM.BaseURL = s.ollamaURL()
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt treats a stored zero as a real value; only a missing key
// yields the default.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(key string, defaultVal domain.StorageBackend) domain.StorageBackend {
	backend := domain.StorageBackend(s.configStore.GetString(key))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

// baseURL returns the stored URL, or for Ollama the environment or
// localhost default.
func (s *SettingsService) baseURL(key string, provider domain.AIProvider) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	if provider.IsLocal() {
		return s.ollamaURL()
	}
	return ""
}

func (s *SettingsService) ollamaURL() string {
	if u := s.getenv(envOllamaBaseURL); u != "" {
		return u
	}
	return defaultOllamaURL
}

// apiKey prefers a key saved in config over the provider's env variable.
func (s *SettingsService) apiKey(key string, provider domain.AIProvider) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return s.envKey(provider)
}

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderGemini:
		return s.getenv(envGeminiAPIKey)
	case domain.AIProviderOpenAI:
		return s.getenv(envOpenAIAPIKey)
	case domain.AIProviderAnthropic:
		return s.getenv(envAnthropicAPIKey)
	default:
		return ""
	}
}

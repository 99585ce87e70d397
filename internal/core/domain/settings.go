package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderGemini is Google Gemini cloud API (LLM only).
	AIProviderGemini AIProvider = "gemini"

	// AIProviderHash is the offline feature-hashing embedder (embeddings only).
	AIProviderHash AIProvider = "hash"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderGemini, AIProviderHash:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHash
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	case AIProviderHash:
		return "Feature hashing (offline)"
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

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size every embedding must have.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderGemini {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return e.Dimensions > 0
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Gemini).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderHash {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ModelCallSettings bounds every call to an embedding or generative model.
type ModelCallSettings struct {
	// Timeout is the per-attempt deadline.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// RetryDelay is the initial backoff, doubled per retry.
	RetryDelay time.Duration

	// Temperature is the sampling temperature for generation.
	Temperature float64

	// RequestsPerSecond limits call rate. Zero means unlimited.
	RequestsPerSecond float64
}

// ChunkerSettings holds chunking parameters in characters.
type ChunkerSettings struct {
	ChunkSize int
	Overlap   int
}

// RetrievalSettings holds query-time fan-out parameters.
type RetrievalSettings struct {
	// TopK is the number of nearest chunks retrieved.
	TopK int

	// TopN is the number of chunks kept after re-ranking.
	TopN int

	// RerankWorkers bounds concurrent relevance judgements.
	RerankWorkers int
}

// VectorBackend selects the vector index implementation.
type VectorBackend string

// Available vector index backends.
const (
	VectorBackendSQLite VectorBackend = "sqlite"
	VectorBackendMemory VectorBackend = "memory"
	VectorBackendQdrant VectorBackend = "qdrant"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendSQLite, VectorBackendMemory, VectorBackendQdrant:
		return true
	default:
		return false
	}
}

// VectorIndexSettings holds vector index configuration.
type VectorIndexSettings struct {
	// Backend selects the implementation.
	Backend VectorBackend

	// QdrantHost and QdrantPort address the Qdrant gRPC endpoint.
	QdrantHost string
	QdrantPort int

	// Collection is the Qdrant collection name.
	Collection string
}

// DispatchBackend selects how ingestion work is deferred.
type DispatchBackend string

// Available dispatch backends.
const (
	DispatchLocal    DispatchBackend = "local"
	DispatchRedis    DispatchBackend = "redis"
	DispatchTemporal DispatchBackend = "temporal"
)

// IsValid returns true if the backend is recognised.
func (b DispatchBackend) IsValid() bool {
	switch b {
	case DispatchLocal, DispatchRedis, DispatchTemporal:
		return true
	default:
		return false
	}
}

// DispatchSettings holds ingestion dispatch configuration.
type DispatchSettings struct {
	// Backend selects the implementation.
	Backend DispatchBackend

	// Workers is the number of concurrent ingestion workers.
	Workers int

	// RedisAddr and Queue configure the redis backend.
	RedisAddr string
	Queue     string

	// TemporalHost, TemporalNamespace and TaskQueue configure the temporal backend.
	TemporalHost      string
	TemporalNamespace string
	TaskQueue         string

	// MaxAttempts is how many times a dispatched ingestion may run.
	// One gives at-most-once delivery.
	MaxAttempts int
}

// TracingSettings holds OpenTelemetry configuration.
// An empty Endpoint disables export.
type TracingSettings struct {
	Endpoint   string
	SampleRate float64
}

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	ModelCall   ModelCallSettings
	Chunker     ChunkerSettings
	Retrieval   RetrievalSettings
	VectorIndex VectorIndexSettings
	Dispatch    DispatchSettings
	Tracing     TracingSettings
	Server      ServerSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Embeddings default to the offline hashing provider so ingestion works
// without any model server; answers need an LLM to be configured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHash,
			Model:      DefaultEmbeddingModels()[AIProviderHash],
			Dimensions: DefaultEmbeddingDimensions,
		},
		LLM: LLMSettings{
			Provider: AIProviderOllama,
			Model:    DefaultLLMModels()[AIProviderOllama],
			BaseURL:  "http://localhost:11434",
		},
		ModelCall: ModelCallSettings{
			Timeout:     30 * time.Second,
			MaxRetries:  2,
			RetryDelay:  500 * time.Millisecond,
			Temperature: 0,
		},
		Chunker: ChunkerSettings{
			ChunkSize: 200,
			Overlap:   50,
		},
		Retrieval: RetrievalSettings{
			TopK:          5,
			TopN:          3,
			RerankWorkers: 4,
		},
		VectorIndex: VectorIndexSettings{
			Backend:    VectorBackendSQLite,
			QdrantHost: "localhost",
			QdrantPort: 6334,
			Collection: "ragline_embeddings",
		},
		Dispatch: DispatchSettings{
			Backend:           DispatchLocal,
			Workers:           2,
			RedisAddr:         "localhost:6379",
			Queue:             "ragline:ingest",
			TemporalHost:      "localhost:7233",
			TemporalNamespace: "default",
			TaskQueue:         "ragline-ingestion",
			MaxAttempts:       1,
		},
		Tracing: TracingSettings{
			SampleRate: 1.0,
		},
		Server: ServerSettings{
			Addr: ":8080",
		},
	}
}

// DefaultEmbeddingDimensions is the vector size of all-MiniLM-L6-v2.
const DefaultEmbeddingDimensions = 384

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderHash,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
// All of them produce 384-dimensional vectors.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHash:   "hash-384",
		AIProviderOllama: "all-minilm",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
		AIProviderGemini: "gemini-2.0-flash",
	}
}

// EmbeddingDimensions returns the native vector dimensions for known models.
// OpenAI's text-embedding-3 models accept a requested size and are
// truncated to the configured dimensionality.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"hash-384":               384,
		"all-minilm":             384,
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": 200,
				"overlap":    50,
			},
		},
	}
}

package services

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyEmbedDims     = "embedding.dimensions"

	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMTemperature = "llm.temperature"
	keyLLMMaxRetries  = "llm.max_retries"
	keyLLMRetryDelay  = "llm.retry_delay"
	keyLLMTimeout     = "llm.timeout"
	keyLLMRate        = "llm.requests_per_second"

	keyChunkSize    = "chunker.chunk_size"
	keyChunkOverlap = "chunker.overlap"

	keyTopK          = "retrieval.top_k"
	keyTopN          = "retrieval.top_n"
	keyRerankWorkers = "retrieval.rerank_workers"

	keyVectorBackend    = "vector_index.backend"
	keyQdrantHost       = "vector_index.qdrant_host"
	keyQdrantPort       = "vector_index.qdrant_port"
	keyQdrantCollection = "vector_index.collection"

	keyDispatchBackend     = "dispatch.backend"
	keyDispatchWorkers     = "dispatch.workers"
	keyDispatchRedisAddr   = "dispatch.redis_addr"
	keyDispatchQueue       = "dispatch.queue"
	keyDispatchTemporal    = "dispatch.temporal_host"
	keyDispatchNamespace   = "dispatch.temporal_namespace"
	keyDispatchTaskQueue   = "dispatch.task_queue"
	keyDispatchMaxAttempts = "dispatch.max_attempts"

	keyTracingEndpoint = "tracing.endpoint"
	keyTracingSample   = "tracing.sample_rate"

	keyServerAddr = "server.addr"

	keySchedulerEnabled = "scheduler.enabled"
	keyResubmitEnabled  = "scheduler.ingestion_resubmit.enabled"
	keyResubmitInterval = "scheduler.resubmit_interval"
	keyPruneEnabled     = "scheduler.history_prune.enabled"
	keyPruneInterval    = "scheduler.history_prune.interval"
)

// Environment variables that override API keys from the config file.
//
//nolint:gosec // G101: variable names, not credentials.
const (
	EnvOpenAIAPIKey = "RAGLINE_OPENAI_API_KEY"
	EnvGeminiAPIKey = "RAGLINE_GEMINI_API_KEY"
)

// SettingsService maps the flat config store onto domain.AppSettings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings, filling gaps with defaults
// and applying API key overrides from the environment.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL),
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDims, d.Embedding.Dimensions),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:    s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		ModelCall: domain.ModelCallSettings{
			Timeout:           s.getDuration(keyLLMTimeout, d.ModelCall.Timeout),
			MaxRetries:        s.getIntAllowZero(keyLLMMaxRetries, d.ModelCall.MaxRetries),
			RetryDelay:        s.getDuration(keyLLMRetryDelay, d.ModelCall.RetryDelay),
			Temperature:       s.getFloat(keyLLMTemperature, d.ModelCall.Temperature),
			RequestsPerSecond: s.getFloat(keyLLMRate, d.ModelCall.RequestsPerSecond),
		},
		Chunker: domain.ChunkerSettings{
			ChunkSize: s.getInt(keyChunkSize, d.Chunker.ChunkSize),
			Overlap:   s.getIntAllowZero(keyChunkOverlap, d.Chunker.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:          s.getInt(keyTopK, d.Retrieval.TopK),
			TopN:          s.getInt(keyTopN, d.Retrieval.TopN),
			RerankWorkers: s.getInt(keyRerankWorkers, d.Retrieval.RerankWorkers),
		},
		VectorIndex: domain.VectorIndexSettings{
			Backend:    domain.VectorBackend(s.getString(keyVectorBackend, string(d.VectorIndex.Backend))),
			QdrantHost: s.getString(keyQdrantHost, d.VectorIndex.QdrantHost),
			QdrantPort: s.getInt(keyQdrantPort, d.VectorIndex.QdrantPort),
			Collection: s.getString(keyQdrantCollection, d.VectorIndex.Collection),
		},
		Dispatch: domain.DispatchSettings{
			Backend:           domain.DispatchBackend(s.getString(keyDispatchBackend, string(d.Dispatch.Backend))),
			Workers:           s.getInt(keyDispatchWorkers, d.Dispatch.Workers),
			RedisAddr:         s.getString(keyDispatchRedisAddr, d.Dispatch.RedisAddr),
			Queue:             s.getString(keyDispatchQueue, d.Dispatch.Queue),
			TemporalHost:      s.getString(keyDispatchTemporal, d.Dispatch.TemporalHost),
			TemporalNamespace: s.getString(keyDispatchNamespace, d.Dispatch.TemporalNamespace),
			TaskQueue:         s.getString(keyDispatchTaskQueue, d.Dispatch.TaskQueue),
			MaxAttempts:       s.getInt(keyDispatchMaxAttempts, d.Dispatch.MaxAttempts),
		},
		Tracing: domain.TracingSettings{
			Endpoint:   s.configStore.GetString(keyTracingEndpoint),
			SampleRate: s.getFloat(keyTracingSample, d.Tracing.SampleRate),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, d.Server.Addr),
		},
	}

	if settings.LLM.BaseURL == "" && settings.LLM.Provider == domain.AIProviderOllama {
		settings.LLM.BaseURL = d.LLM.BaseURL
	}
	if settings.Embedding.BaseURL == "" && settings.Embedding.Provider == domain.AIProviderOllama {
		settings.Embedding.BaseURL = d.LLM.BaseURL
	}

	s.applyEnvKey(settings.Embedding.Provider, &settings.Embedding.APIKey)
	s.applyEnvKey(settings.LLM.Provider, &settings.LLM.APIKey)

	return settings, nil
}

func (s *SettingsService) applyEnvKey(provider domain.AIProvider, key *string) {
	var name string
	switch provider {
	case domain.AIProviderOpenAI:
		name = EnvOpenAIAPIKey
	case domain.AIProviderGemini:
		name = EnvGeminiAPIKey
	default:
		return
	}
	if v := s.getenv(name); v != "" {
		*key = v
	}
}

// Save persists application settings. API keys are only written when set,
// so keys supplied by the environment never land on disk unless asked.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	type entry struct {
		key string
		val any
	}
	values := []entry{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.ModelCall.Temperature},
		{keyLLMMaxRetries, settings.ModelCall.MaxRetries},
		{keyLLMRetryDelay, settings.ModelCall.RetryDelay.String()},
		{keyLLMTimeout, settings.ModelCall.Timeout.String()},
		{keyLLMRate, settings.ModelCall.RequestsPerSecond},
		{keyChunkSize, settings.Chunker.ChunkSize},
		{keyChunkOverlap, settings.Chunker.Overlap},
		{keyTopK, settings.Retrieval.TopK},
		{keyTopN, settings.Retrieval.TopN},
		{keyRerankWorkers, settings.Retrieval.RerankWorkers},
		{keyVectorBackend, string(settings.VectorIndex.Backend)},
		{keyQdrantHost, settings.VectorIndex.QdrantHost},
		{keyQdrantPort, settings.VectorIndex.QdrantPort},
		{keyQdrantCollection, settings.VectorIndex.Collection},
		{keyDispatchBackend, string(settings.Dispatch.Backend)},
		{keyDispatchWorkers, settings.Dispatch.Workers},
		{keyDispatchRedisAddr, settings.Dispatch.RedisAddr},
		{keyDispatchQueue, settings.Dispatch.Queue},
		{keyDispatchTemporal, settings.Dispatch.TemporalHost},
		{keyDispatchNamespace, settings.Dispatch.TemporalNamespace},
		{keyDispatchTaskQueue, settings.Dispatch.TaskQueue},
		{keyDispatchMaxAttempts, settings.Dispatch.MaxAttempts},
		{keyTracingEndpoint, settings.Tracing.Endpoint},
		{keyTracingSample, settings.Tracing.SampleRate},
		{keyServerAddr, settings.Server.Addr},
	}
	if settings.Embedding.APIKey != "" {
		values = append(values, entry{keyEmbedAPIKey, settings.Embedding.APIKey})
	}
	if settings.LLM.APIKey != "" {
		values = append(values, entry{keyLLMAPIKey, settings.LLM.APIKey})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
// Changing the model changes the vector space: existing documents need
// re-ingesting, and the dimension guard rejects mismatched vectors.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrConfig, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.envKey(provider) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrConfig, provider)
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
	if provider == domain.AIProviderOllama {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the generative model provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !slices.Contains(domain.AllLLMProviders(), provider) {
		return fmt.Errorf("%w: provider %s cannot generate text", domain.ErrConfig, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.envKey(provider) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrConfig, provider)
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
	if provider == domain.AIProviderOllama {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	var key string
	s.applyEnvKey(provider, &key)
	return key
}

// Validate checks settings for values the pipeline cannot run with.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	switch {
	case !settings.Embedding.IsConfigured():
		return fmt.Errorf("%w: embedding provider %s is not configured", domain.ErrConfig, settings.Embedding.Provider)
	case !settings.LLM.IsConfigured():
		return fmt.Errorf("%w: llm provider %s is not configured", domain.ErrConfig, settings.LLM.Provider)
	case settings.Chunker.ChunkSize <= 0 || settings.Chunker.Overlap < 0 ||
		settings.Chunker.Overlap >= settings.Chunker.ChunkSize:
		return fmt.Errorf("%w: chunk overlap %d must be below chunk size %d",
			domain.ErrConfig, settings.Chunker.Overlap, settings.Chunker.ChunkSize)
	case !settings.VectorIndex.Backend.IsValid():
		return fmt.Errorf("%w: unknown vector backend %q", domain.ErrConfig, settings.VectorIndex.Backend)
	case !settings.Dispatch.Backend.IsValid():
		return fmt.Errorf("%w: unknown dispatch backend %q", domain.ErrConfig, settings.Dispatch.Backend)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig pings the configured embedding provider.
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

// ValidateLLMConfig pings the configured generative model provider.
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

// GetSchedulerConfig returns the scheduler configuration.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()

	if _, ok := s.configStore.Get(keySchedulerEnabled); ok {
		cfg.Enabled = s.configStore.GetBool(keySchedulerEnabled)
	}

	resubmit := cfg.TaskConfigs[domain.TaskIDIngestionResubmit]
	resubmit.Enabled = s.getBool(keyResubmitEnabled, resubmit.Enabled)
	resubmit.Interval = s.getDuration(keyResubmitInterval, resubmit.Interval)
	cfg.TaskConfigs[domain.TaskIDIngestionResubmit] = resubmit

	prune := cfg.TaskConfigs[domain.TaskIDHistoryPrune]
	prune.Enabled = s.getBool(keyPruneEnabled, prune.Enabled)
	prune.Interval = s.getDuration(keyPruneInterval, prune.Interval)
	cfg.TaskConfigs[domain.TaskIDHistoryPrune] = prune

	return cfg
}

// GetPipelineConfig returns the post-processor pipeline configuration
// derived from the chunker settings.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()
	settings, err := s.Get()
	if err != nil {
		return cfg
	}
	cfg.ProcessorConfigs["chunker"] = map[string]any{
		"chunk_size": settings.Chunker.ChunkSize,
		"overlap":    settings.Chunker.Overlap,
	}
	return cfg
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if val := s.configStore.GetInt(key); val != 0 {
		return val
	}
	return defaultVal
}

// getIntAllowZero treats an explicit zero as a value, not as missing.
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if d := s.configStore.GetDuration(key); d > 0 {
		return d
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

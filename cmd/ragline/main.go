// Command ragline ingests documents and answers questions grounded in them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/ragline/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragline/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragline/internal/adapters/driven/dispatch/local"
	"github.com/custodia-labs/ragline/internal/adapters/driven/dispatch/redisq"
	"github.com/custodia-labs/ragline/internal/adapters/driven/dispatch/temporal"
	"github.com/custodia-labs/ragline/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragline/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragline/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/ragline/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/services"
	"github.com/custodia-labs/ragline/internal/extractors"
	"github.com/custodia-labs/ragline/internal/logger"
	"github.com/custodia-labs/ragline/internal/observability"
	"github.com/custodia-labs/ragline/internal/postprocessors"
)

// Set by the release build.
var version = "dev"

// EnvHome overrides the config and data directory.
const EnvHome = "RAGLINE_HOME"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer app.close()

	// cobra reports command errors itself.
	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}

// application owns everything that must be released on exit.
type application struct {
	closers []func() error
}

func (a *application) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("shutdown: %v", err)
		}
	}
}

func setup(ctx context.Context) (*application, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to load .env: %v", err)
	}

	home, err := homeDir()
	if err != nil {
		return nil, err
	}
	configStore, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	app := &application{}
	ok := false
	defer func() {
		if !ok {
			app.close()
		}
	}()

	tracing, err := observability.InitTracing(ctx, settings.Tracing, version)
	if err != nil {
		logger.Warn("tracing disabled: %v", err)
	} else {
		app.onClose(func() error { return tracing.Shutdown(context.Background()) })
	}

	store, err := sqlite.NewStore(home)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	app.onClose(store.Close)

	prompts, err := file.NewPromptStore(filepath.Join(home, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("open prompts: %w", err)
	}

	embedder := services.NewSharedEmbedder(settings.Embedding.Dimensions, func() (driven.EmbeddingService, error) {
		return ai.NewEmbedder(settings.Embedding, ai.PolicyFromSettings(settings.ModelCall))
	})
	app.onClose(embedder.Close)

	index, err := openIndex(ctx, settings, store)
	if err != nil {
		return nil, err
	}
	app.onClose(index.Close)

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := registry.BuildPipeline(settingsService.GetPipelineConfig())
	if err != nil {
		return nil, fmt.Errorf("build chunking pipeline: %w", err)
	}

	docStore, statuses := store.DocumentStore(), store.IngestionStore()
	ingestion := services.NewIngestionService(docStore, statuses, index, embedder, pipeline, extractors.DefaultRegistry())
	worker := openDispatch(ctx, app, settings.Dispatch, ingestion)

	judge, generator := openModels(app, settings, prompts)
	synthesizer := services.NewSynthesizer(generator)
	synthesizer.SetPromptStore(prompts)
	query := services.NewQueryService(
		services.NewRetriever(docStore, index, embedder, settings.Retrieval.TopK),
		services.NewReranker(judge, settings.Retrieval.TopN, settings.Retrieval.RerankWorkers),
		synthesizer,
	)

	schedulerConfig := settingsService.GetSchedulerConfig()
	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Query:     query,
		Ingestion: ingestion,
		Document:  services.NewDocumentService(docStore, statuses, index),
		Settings:  settingsService,
	})
	cli.SetRuntimeConfig(&cli.RuntimeConfig{
		Scheduler:       services.NewScheduler(schedulerConfig, store.SchedulerStore(), ingestion),
		SchedulerConfig: schedulerConfig,
		Worker:          worker,
		DispatchBackend: settings.Dispatch.Backend,
		HTTPAddr:        settings.Server.Addr,
	})

	ok = true
	return app, nil
}

func homeDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".ragline"), nil
}

// openIndex returns the configured vector index. The sqlite and memory
// backends share nothing with a remote Qdrant, so a Qdrant failure is fatal
// rather than silently indexing elsewhere.
func openIndex(ctx context.Context, settings *domain.AppSettings, store *sqlite.Store) (driven.VectorIndex, error) {
	dims := settings.Embedding.Dimensions
	switch settings.VectorIndex.Backend {
	case domain.VectorBackendMemory:
		logger.Warn("memory vector index: embeddings are lost on exit")
		return memory.NewStore().VectorIndex(dims), nil
	case domain.VectorBackendQdrant:
		index, err := qdrant.New(ctx, qdrant.Config{
			Host:       settings.VectorIndex.QdrantHost,
			Port:       settings.VectorIndex.QdrantPort,
			Collection: settings.VectorIndex.Collection,
			Dimensions: dims,
		})
		if err != nil {
			return nil, fmt.Errorf("open qdrant index: %w", err)
		}
		return index, nil
	default:
		return store.VectorIndex(dims), nil
	}
}

// openDispatch installs the configured dispatcher on ingestion and returns
// the worker loop for external backends. When the backend cannot be
// reached, documents stay created until the resubmit task picks them up.
func openDispatch(
	ctx context.Context,
	app *application,
	cfg domain.DispatchSettings,
	ingestion *services.IngestionService,
) func(context.Context) error {
	switch cfg.Backend {
	case domain.DispatchRedis:
		client, err := redisq.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis dispatch unavailable: %v", err)
			return nil
		}
		dispatcher := redisq.NewDispatcher(client, cfg.Queue)
		app.onClose(dispatcher.Close)
		ingestion.SetDispatcher(dispatcher)
		return func(ctx context.Context) error {
			w := redisq.NewWorker(client, cfg.Queue, ingestion.RunIngestion, ingestion.RetryIngestion, cfg.MaxAttempts)
			return w.Run(ctx)
		}

	case domain.DispatchTemporal:
		c, err := temporal.Dial(cfg.TemporalHost, cfg.TemporalNamespace)
		if err != nil {
			logger.Warn("temporal dispatch unavailable: %v", err)
			return nil
		}
		dispatcher := temporal.NewDispatcher(c, cfg.TaskQueue, cfg.MaxAttempts)
		app.onClose(dispatcher.Close)
		ingestion.SetDispatcher(dispatcher)
		return func(ctx context.Context) error {
			w, err := temporal.StartWorker(c, cfg.TaskQueue, &temporal.Activities{
				Run:   ingestion.RunIngestion,
				Retry: ingestion.RetryIngestion,
			})
			if err != nil {
				return err
			}
			<-ctx.Done()
			w.Stop()
			return nil
		}

	default:
		dispatcher := local.New(ingestion.RunIngestion, cfg.Workers, local.DefaultQueueSize)
		app.onClose(dispatcher.Close)
		ingestion.SetDispatcher(dispatcher)
		return nil
	}
}

// openModels builds the relevance judge and answer generator. Without a
// usable LLM both fail every call, so ingestion and document commands still
// work and questions report the LLM as unavailable.
func openModels(app *application, settings *domain.AppSettings, prompts driven.PromptStore) (driven.RelevanceJudge, driven.Generator) {
	models, err := ai.NewModels(settings.LLM, settings.ModelCall, prompts)
	if err != nil {
		logger.Debug("LLM not available: %v", err)
		u := unavailableLLM{err: err}
		return u, u
	}
	app.onClose(func() error {
		models.Close()
		return nil
	})
	return models.Judge, models.Generator
}

type unavailableLLM struct{ err error }

func (u unavailableLLM) Score(context.Context, string, string) (float64, error) { return 0, u.err }

func (u unavailableLLM) Generate(context.Context, string) (string, error) { return "", u.err }

package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amo-events/kb-assistant/internal/config"
	"github.com/amo-events/kb-assistant/internal/core/ports"
	"github.com/amo-events/kb-assistant/internal/core/usecase"
	"github.com/amo-events/kb-assistant/internal/infrastructure/chunking"
	"github.com/amo-events/kb-assistant/internal/infrastructure/extract"
	"github.com/amo-events/kb-assistant/internal/infrastructure/llm/openai"
	"github.com/amo-events/kb-assistant/internal/infrastructure/mapping"
	"github.com/amo-events/kb-assistant/internal/infrastructure/queue/nats"
	"github.com/amo-events/kb-assistant/internal/infrastructure/repository/postgres"
	"github.com/amo-events/kb-assistant/internal/infrastructure/resilience"
	"github.com/amo-events/kb-assistant/internal/infrastructure/storage/localfs"
	"github.com/amo-events/kb-assistant/internal/infrastructure/vector/pinecone"
)

type App struct {
	Config config.Config
	Log    *slog.Logger

	Queue   ports.MessageQueue
	Catalog ports.DocumentCatalog
	Mapping ports.DocumentMapping
	Index   ports.VectorIndex

	QueryUC  ports.QueryService
	IngestUC *usecase.IngestUseCase
	IndexUC  ports.DocumentIndexer

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	catalog := postgres.NewDocumentRepository(db)
	if err := catalog.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	mappingStore, err := mapping.New(cfg.MappingPath)
	if err != nil {
		return nil, fmt.Errorf("init document mapping: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             log,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llm := openai.New(openai.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		ChatModel:   cfg.OpenAIChatModel,
		EmbedModel:  cfg.OpenAIEmbedModel,
		Temperature: float32(cfg.OpenAITemperature),
	}, executor, log)

	index := pinecone.New(cfg.PineconeHost, cfg.PineconeAPIKey, log)

	synonyms, err := loadSynonyms(cfg.SynonymsPath, log)
	if err != nil {
		return nil, err
	}
	reformulator := usecase.NewReformulator(synonyms)
	gateway := usecase.NewSearchGateway(llm, index, cfg.PineconeNamespace, log)

	queryUC := usecase.NewQueryUseCase(reformulator, gateway, llm, log)
	ingestUC := usecase.NewIngestUseCase(catalog, storage, queue, log)
	indexUC := usecase.NewIndexUseCase(
		catalog,
		storage,
		extract.New(),
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		llm,
		index,
		mappingStore,
		log,
	)

	return &App{
		Config: cfg,
		Log:    log,

		Queue:   queue,
		Catalog: catalog,
		Mapping: mappingStore,
		Index:   index,

		QueryUC:  queryUC,
		IngestUC: ingestUC,
		IndexUC:  indexUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func loadSynonyms(path string, log *slog.Logger) ([]usecase.SynonymEntry, error) {
	if path == "" {
		return nil, nil
	}
	synonyms, err := usecase.LoadSynonyms(path)
	if err != nil {
		return nil, fmt.Errorf("load synonyms: %w", err)
	}
	log.Info("synonyms loaded", "path", path, "entries", len(synonyms))
	return synonyms, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"rag-agent/internal/config"
	"rag-agent/internal/domain"
	embedopenai "rag-agent/internal/embedding/openai"
	genopenai "rag-agent/internal/generation/openai"
	"rag-agent/internal/logging"
	"rag-agent/internal/service"
	"rag-agent/internal/vectorstore/memory"
	"rag-agent/internal/vectorstore/pgvector"
	"rag-agent/internal/vectorstore/qdrant"
)

// Agent is what every command needs from service.Agent.
type Agent interface {
	Ingest(ctx context.Context, doc domain.Document) (int, error)
	Answer(ctx context.Context, query string) (string, error)
	Retrieve(ctx context.Context, query string) (string, error)
}

type app struct {
	cfg    *config.AppConfig
	logger *zap.Logger
	agent  Agent
	close  func() error
}

// newApp is replaced in tests.
var newApp = buildApp

func buildApp(ctx context.Context) (*app, error) {
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	oc := embedopenai.Config{
		BaseURL:   cfg.OpenAI.BaseURL,
		APIKeyEnv: cfg.OpenAI.APIKeyEnv,
		Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
	}
	embedder, err := embedopenai.NewClient(oc)
	if err != nil {
		return nil, fmt.Errorf("openai embedder init failed: %w", err)
	}
	generator, err := genopenai.NewClient(oc)
	if err != nil {
		return nil, fmt.Errorf("openai chat init failed: %w", err)
	}

	index, closeIndex, err := buildIndex(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if ci, ok := index.(domain.CollectionInitializer); ok {
		if err := ci.EnsureCollection(ctx, cfg.OpenAI.Dimensions); err != nil {
			_ = closeIndex()
			return nil, domain.NewServiceError(domain.ServiceVectorIndex, "ensure collection", err)
		}
	}

	agent, err := service.NewAgent(
		service.Deps{Embedder: embedder, Index: index, Generator: generator},
		service.Settings{
			EmbeddingModel: cfg.OpenAI.EmbeddingModel,
			ChatModel:      cfg.OpenAI.ChatModel,
			Dimensions:     cfg.OpenAI.Dimensions,
			SystemPrompt:   cfg.Agent.SystemPrompt,
		},
		service.WithLogger(logger),
	)
	if err != nil {
		_ = closeIndex()
		return nil, err
	}

	logger.Debug("agent ready",
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
		zap.String("chat_model", cfg.OpenAI.ChatModel),
	)
	return &app{
		cfg:    cfg,
		logger: logger,
		agent:  agent,
		close: func() error {
			_ = logger.Sync()
			return closeIndex()
		},
	}, nil
}

func loadConfig() (*config.AppConfig, error) {
	if cfgPath != "" {
		return config.Load(cfgPath)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

func buildIndex(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (domain.VectorIndex, func() error, error) {
	noop := func() error { return nil }
	vs := cfg.VectorStore
	switch vs.Type {
	case config.StoreMemory, "":
		return memory.NewStorage(), noop, nil
	case config.StoreQdrant:
		if vs.Qdrant == nil {
			return nil, nil, errors.New("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        vs.Qdrant.URL,
			APIKey:     vs.Qdrant.APIKey,
			Collection: vs.Collection,
			Distance:   vs.Qdrant.Distance,
			Timeout:    time.Duration(vs.Qdrant.TimeoutSecs) * time.Second,
		}), noop, nil
	case config.StorePGVector:
		if vs.PGVector == nil {
			return nil, nil, errors.New("pgvector config missing")
		}
		st, err := pgvector.Open(ctx, vs.PGVector.DSN, vs.PGVector.Table, logger)
		if err != nil {
			return nil, nil, domain.NewServiceError(domain.ServiceVectorIndex, "connect", err)
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector store: %s", vs.Type)
	}
}

// withApp builds the app, runs fn and releases the app's resources.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}()
	return fn(a)
}

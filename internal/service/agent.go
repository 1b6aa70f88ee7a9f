package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rag-agent/internal/domain"
)

// Deps holds the long-lived handles to the three external services.
type Deps struct {
	Embedder  domain.Embedder
	Index     domain.VectorIndex
	Generator domain.Generator
}

// Agent ingests documents into a vector index and answers questions
// using the single best matching stored point as context.
// It keeps no state of its own and is safe for concurrent use if its dependencies are.
type Agent struct {
	embedder  domain.Embedder
	index     domain.VectorIndex
	generator domain.Generator
	settings  Settings
	logger    *zap.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger used by the agent.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAgent creates an agent over the given services.
func NewAgent(deps Deps, settings Settings, opts ...Option) (*Agent, error) {
	switch {
	case deps.Embedder == nil:
		return nil, errors.New("agent: embedder is required")
	case deps.Index == nil:
		return nil, errors.New("agent: vector index is required")
	case deps.Generator == nil:
		return nil, errors.New("agent: generator is required")
	}
	a := &Agent{
		embedder:  deps.Embedder,
		index:     deps.Index,
		generator: deps.Generator,
		settings:  settings.withDefaults(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Ingest embeds every chunk of doc and stores one point per chunk.
// It returns the number of points stored. On failure, points stored before the
// failing one stay in the index.
func (a *Agent) Ingest(ctx context.Context, doc domain.Document) (int, error) {
	if len(doc.Chunks) == 0 {
		return 0, domain.ErrEmptyInput
	}

	vectors, err := a.embedder.Embed(ctx, domain.EmbeddingRequest{
		Model:      a.settings.EmbeddingModel,
		Inputs:     doc.Chunks,
		Dimensions: a.settings.Dimensions,
	})
	if err != nil {
		return 0, domain.NewServiceError(domain.ServiceEmbedding, "embed chunks", err)
	}
	if len(vectors) != len(doc.Chunks) {
		return 0, domain.NewServiceError(domain.ServiceEmbedding, "embed chunks",
			fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(doc.Chunks)))
	}

	payload := documentPayload(doc)
	stored := 0
	for _, vector := range vectors {
		point := domain.StoredPoint{
			ID:      uuid.NewString(),
			Vector:  vector,
			Payload: payload,
		}
		if err := a.index.Upsert(ctx, point); err != nil {
			return stored, domain.NewServiceError(domain.ServiceVectorIndex, "upsert point", err)
		}
		stored++
		a.logger.Debug("stored point", zap.String("document", doc.ID), zap.String("point_id", point.ID))
	}

	a.logger.Info("ingested document", zap.String("document", doc.ID), zap.Int("points", stored))
	return stored, nil
}

// Retrieve returns the contents of the stored point nearest to query.
func (a *Agent) Retrieve(ctx context.Context, query string) (string, error) {
	vectors, err := a.embedder.Embed(ctx, domain.EmbeddingRequest{
		Model:      a.settings.EmbeddingModel,
		Inputs:     []string{query},
		Dimensions: a.settings.Dimensions,
	})
	if err != nil {
		return "", domain.NewServiceError(domain.ServiceEmbedding, "embed query", err)
	}
	if len(vectors) != 1 {
		return "", domain.NewServiceError(domain.ServiceEmbedding, "embed query",
			fmt.Errorf("got %d vectors for 1 query", len(vectors)))
	}

	hits, err := a.index.Search(ctx, vectors[0], 1)
	if err != nil {
		return "", domain.NewServiceError(domain.ServiceVectorIndex, "search", err)
	}
	if len(hits) == 0 {
		return "", domain.ErrNoResults
	}

	text, ok := hits[0].Payload[domain.PayloadContents].(string)
	if !ok {
		return "", fmt.Errorf("point %s: %w", hits[0].ID, domain.ErrMalformedPayload)
	}
	return text, nil
}

// Answer retrieves context for query and asks the generation service to answer with it.
// It never writes to the index.
func (a *Agent) Answer(ctx context.Context, query string) (string, error) {
	retrieved, err := a.Retrieve(ctx, query)
	if err != nil {
		return "", err
	}

	choices, err := a.generator.Complete(ctx, domain.CompletionRequest{
		Model:    a.settings.ChatModel,
		Messages: buildMessages(a.settings.SystemPrompt, query, retrieved),
	})
	if err != nil {
		return "", domain.NewServiceError(domain.ServiceGeneration, "complete", err)
	}
	if len(choices) == 0 {
		return "", domain.ErrNoChoices
	}

	a.logger.Info("answered query", zap.Int("context_bytes", len(retrieved)), zap.Int("choices", len(choices)))
	return choices[0], nil
}

func documentPayload(doc domain.Document) map[string]any {
	rows := make([]string, len(doc.Chunks))
	copy(rows, doc.Chunks)
	return map[string]any{
		domain.PayloadDocumentID: doc.ID,
		domain.PayloadContents:   doc.Content,
		domain.PayloadRows:       rows,
	}
}

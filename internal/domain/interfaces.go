package domain

import "context"

// Document is one ingested text resource split into line chunks.
type Document struct {
	ID      string
	Content string
	Chunks  []string
}

// Payload keys written with every stored point.
const (
	PayloadDocumentID = "id"
	PayloadContents   = "contents"
	PayloadRows       = "rows"
)

// StoredPoint is the unit persisted in the vector index.
type StoredPoint struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// SearchHit is a point returned by a nearest-neighbour search, best match first.
type SearchHit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// EmbeddingRequest asks for one vector per input, in input order.
type EmbeddingRequest struct {
	Model      string
	Inputs     []string
	Dimensions int
}

// Message roles understood by the generation service.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a single chat message sent to the generation service.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest is a chat completion call against a fixed model.
type CompletionRequest struct {
	Model    string
	Messages []Message
}

// Embedder converts text into vectors. The returned slice must be aligned with req.Inputs.
type Embedder interface {
	Embed(ctx context.Context, req EmbeddingRequest) ([][]float32, error)
}

// VectorIndex stores points and answers nearest-neighbour queries.
type VectorIndex interface {
	Upsert(ctx context.Context, point StoredPoint) error
	Search(ctx context.Context, vector []float32, topK int) ([]SearchHit, error)
}

// CollectionInitializer is implemented by indexes that can create their backing collection.
type CollectionInitializer interface {
	EnsureCollection(ctx context.Context, dimension int) error
}

// Generator returns the text of every choice produced for a completion request.
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) ([]string, error)
}

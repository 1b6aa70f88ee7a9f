package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-agent/internal/domain"
	"rag-agent/internal/source"
	"rag-agent/internal/vectorstore/memory"
)

// --- Stubs ---

// stubEmbedder returns one unit vector per input and counts calls.
type stubEmbedder struct {
	mu       sync.Mutex
	calls    int
	requests []domain.EmbeddingRequest
	vectors  func(inputs []string) [][]float32
	err      error
}

func (s *stubEmbedder) Embed(_ context.Context, req domain.EmbeddingRequest) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if s.vectors != nil {
		return s.vectors(req.Inputs), nil
	}
	out := make([][]float32, len(req.Inputs))
	for i := range req.Inputs {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// oneHotEmbedder gives every distinct text its own axis, so identical texts match exactly.
type oneHotEmbedder struct {
	mu   sync.Mutex
	axes map[string]int
}

func (e *oneHotEmbedder) Embed(_ context.Context, req domain.EmbeddingRequest) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.axes == nil {
		e.axes = make(map[string]int)
	}
	out := make([][]float32, len(req.Inputs))
	for i, text := range req.Inputs {
		axis, ok := e.axes[text]
		if !ok {
			axis = len(e.axes)
			e.axes[text] = axis
		}
		vec := make([]float32, 64)
		vec[axis] = 1
		out[i] = vec
	}
	return out, nil
}

// stubIndex records upserts and returns canned hits.
type stubIndex struct {
	mu          sync.Mutex
	upserts     []domain.StoredPoint
	searchCalls int
	hits        []domain.SearchHit
	failAt      int // 1-based upsert call that fails; 0 never fails
	upsertErr   error
	searchErr   error
}

func (s *stubIndex) Upsert(_ context.Context, point domain.StoredPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && len(s.upserts)+1 == s.failAt {
		return s.upsertErr
	}
	s.upserts = append(s.upserts, point)
	return nil
}

func (s *stubIndex) Search(_ context.Context, _ []float32, topK int) ([]domain.SearchHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchCalls++
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if topK < len(s.hits) {
		return s.hits[:topK], nil
	}
	return s.hits, nil
}

// echoGenerator answers with the user message it received.
type echoGenerator struct {
	mu       sync.Mutex
	calls    int
	requests []domain.CompletionRequest
	choices  []string
	override bool
	err      error
}

func (g *echoGenerator) Complete(_ context.Context, req domain.CompletionRequest) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	if g.override {
		return g.choices, nil
	}
	for _, m := range req.Messages {
		if m.Role == domain.RoleUser {
			return []string{m.Content}, nil
		}
	}
	return nil, nil
}

func newTestAgent(t *testing.T, emb domain.Embedder, idx domain.VectorIndex, gen domain.Generator) *Agent {
	t.Helper()
	a, err := NewAgent(Deps{Embedder: emb, Index: idx, Generator: gen}, Settings{})
	require.NoError(t, err)
	return a
}

func hitWith(contents any) domain.SearchHit {
	return domain.SearchHit{
		ID:      "p-1",
		Score:   0.97,
		Payload: map[string]any{domain.PayloadContents: contents, domain.PayloadDocumentID: "sales.csv"},
	}
}

// --- Tests ---

func TestNewAgent(t *testing.T) {
	emb, idx, gen := &stubEmbedder{}, &stubIndex{}, &echoGenerator{}

	tests := []struct {
		name string
		deps Deps
	}{
		{name: "missing embedder", deps: Deps{Index: idx, Generator: gen}},
		{name: "missing index", deps: Deps{Embedder: emb, Generator: gen}},
		{name: "missing generator", deps: Deps{Embedder: emb, Index: idx}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAgent(tt.deps, Settings{})
			assert.Error(t, err)
			assert.Nil(t, a)
		})
	}

	t.Run("defaults applied", func(t *testing.T) {
		a, err := NewAgent(Deps{Embedder: emb, Index: idx, Generator: gen}, Settings{ChatModel: "gpt-4o-mini"})
		require.NoError(t, err)
		assert.Equal(t, DefaultEmbeddingModel, a.settings.EmbeddingModel)
		assert.Equal(t, "gpt-4o-mini", a.settings.ChatModel)
		assert.Equal(t, DefaultDimensions, a.settings.Dimensions)
		assert.Equal(t, DefaultSystemPrompt, a.settings.SystemPrompt)
	})
}

func TestAgent_Ingest(t *testing.T) {
	ctx := context.Background()

	t.Run("empty document makes no calls", func(t *testing.T) {
		emb, idx := &stubEmbedder{}, &stubIndex{}
		a := newTestAgent(t, emb, idx, &echoGenerator{})

		stored, err := a.Ingest(ctx, domain.Document{ID: "empty.csv"})
		assert.ErrorIs(t, err, domain.ErrEmptyInput)
		assert.Zero(t, stored)
		assert.Zero(t, emb.calls)
		assert.Empty(t, idx.upserts)
		assert.Zero(t, idx.searchCalls)
	})

	t.Run("one point per chunk with full payload", func(t *testing.T) {
		emb, idx := &stubEmbedder{}, &stubIndex{}
		a := newTestAgent(t, emb, idx, &echoGenerator{})
		doc := source.FromText("sales.csv", "product,units\nwidgets,42\ngears,7\n")

		stored, err := a.Ingest(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, 3, stored)

		require.Equal(t, 1, emb.calls, "chunks are embedded in one batch")
		assert.Equal(t, doc.Chunks, emb.requests[0].Inputs)
		assert.Equal(t, DefaultEmbeddingModel, emb.requests[0].Model)
		assert.Equal(t, DefaultDimensions, emb.requests[0].Dimensions)

		require.Len(t, idx.upserts, 3)
		ids := make(map[string]struct{})
		for _, p := range idx.upserts {
			ids[p.ID] = struct{}{}
			assert.Equal(t, "sales.csv", p.Payload[domain.PayloadDocumentID])
			assert.Equal(t, doc.Content, p.Payload[domain.PayloadContents])
			assert.Equal(t, doc.Chunks, p.Payload[domain.PayloadRows])
			assert.Equal(t, []float32{1, 0, 0}, p.Vector)
		}
		assert.Len(t, ids, 3, "point ids are unique")
	})

	t.Run("vectors are stored in chunk order", func(t *testing.T) {
		emb := &stubEmbedder{vectors: func(inputs []string) [][]float32 {
			out := make([][]float32, len(inputs))
			for i := range inputs {
				out[i] = []float32{float32(i + 1)}
			}
			return out
		}}
		idx := &stubIndex{}
		a := newTestAgent(t, emb, idx, &echoGenerator{})

		_, err := a.Ingest(ctx, source.FromText("doc", "a\nb\nc\nd"))
		require.NoError(t, err)
		require.Len(t, idx.upserts, 4)
		for i, p := range idx.upserts {
			assert.Equal(t, []float32{float32(i + 1)}, p.Vector)
		}
	})

	t.Run("re-ingesting adds new points", func(t *testing.T) {
		idx := memory.NewStorage()
		a := newTestAgent(t, &stubEmbedder{}, idx, &echoGenerator{})
		doc := source.FromText("doc", "x\ny")

		_, err := a.Ingest(ctx, doc)
		require.NoError(t, err)
		_, err = a.Ingest(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, 4, idx.Len())
	})

	t.Run("upsert failure halts and reports stored count", func(t *testing.T) {
		cause := errors.New("qdrant unavailable")
		idx := &stubIndex{failAt: 3, upsertErr: cause}
		a := newTestAgent(t, &stubEmbedder{}, idx, &echoGenerator{})

		stored, err := a.Ingest(ctx, source.FromText("doc", "1\n2\n3\n4\n5"))
		require.Error(t, err)
		assert.Equal(t, 2, stored)
		assert.Len(t, idx.upserts, 2)
		assert.ErrorIs(t, err, domain.ErrService)
		assert.ErrorIs(t, err, cause)

		var svcErr *domain.ServiceError
		require.True(t, errors.As(err, &svcErr))
		assert.Equal(t, domain.ServiceVectorIndex, svcErr.Service)
	})

	t.Run("embedding failure stores nothing", func(t *testing.T) {
		idx := &stubIndex{}
		a := newTestAgent(t, &stubEmbedder{err: errors.New("401 unauthorized")}, idx, &echoGenerator{})

		stored, err := a.Ingest(ctx, source.FromText("doc", "a\nb"))
		assert.ErrorIs(t, err, domain.ErrService)
		assert.Zero(t, stored)
		assert.Empty(t, idx.upserts)
	})

	t.Run("misaligned embedding response is rejected", func(t *testing.T) {
		emb := &stubEmbedder{vectors: func([]string) [][]float32 { return [][]float32{{1}} }}
		idx := &stubIndex{}
		a := newTestAgent(t, emb, idx, &echoGenerator{})

		_, err := a.Ingest(ctx, source.FromText("doc", "a\nb"))
		assert.ErrorIs(t, err, domain.ErrService)
		assert.Empty(t, idx.upserts)
	})
}

func TestAgent_Answer(t *testing.T) {
	ctx := context.Background()

	t.Run("no match fails without generation", func(t *testing.T) {
		gen := &echoGenerator{}
		a := newTestAgent(t, &stubEmbedder{}, &stubIndex{}, gen)

		_, err := a.Answer(ctx, "how many widgets?")
		assert.ErrorIs(t, err, domain.ErrNoResults)
		assert.Zero(t, gen.calls)
	})

	t.Run("query and context reach the generator", func(t *testing.T) {
		emb, gen := &stubEmbedder{}, &echoGenerator{}
		idx := &stubIndex{hits: []domain.SearchHit{hitWith("42 widgets sold")}}
		a := newTestAgent(t, emb, idx, gen)

		answer, err := a.Answer(ctx, "How many widgets were sold?")
		require.NoError(t, err)
		assert.Contains(t, answer, "How many widgets were sold?")
		assert.Contains(t, answer, "42 widgets sold")
		assert.Equal(t, "How many widgets were sold?"+ContextSeparator+"42 widgets sold", answer)

		require.Equal(t, 1, emb.calls)
		assert.Equal(t, []string{"How many widgets were sold?"}, emb.requests[0].Inputs)

		require.Len(t, gen.requests, 1)
		req := gen.requests[0]
		assert.Equal(t, DefaultChatModel, req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, domain.RoleSystem, req.Messages[0].Role)
		assert.Contains(t, req.Messages[0].Content, "I don't know.")
		assert.Equal(t, domain.RoleUser, req.Messages[1].Role)
	})

	t.Run("only the first choice is returned", func(t *testing.T) {
		gen := &echoGenerator{override: true, choices: []string{"first", "second"}}
		a := newTestAgent(t, &stubEmbedder{}, &stubIndex{hits: []domain.SearchHit{hitWith("ctx")}}, gen)

		answer, err := a.Answer(ctx, "q")
		require.NoError(t, err)
		assert.Equal(t, "first", answer)
	})

	t.Run("zero choices", func(t *testing.T) {
		gen := &echoGenerator{override: true}
		a := newTestAgent(t, &stubEmbedder{}, &stubIndex{hits: []domain.SearchHit{hitWith("ctx")}}, gen)

		_, err := a.Answer(ctx, "q")
		assert.ErrorIs(t, err, domain.ErrNoChoices)
	})

	t.Run("generation failure is a service error", func(t *testing.T) {
		gen := &echoGenerator{err: errors.New("rate limited")}
		a := newTestAgent(t, &stubEmbedder{}, &stubIndex{hits: []domain.SearchHit{hitWith("ctx")}}, gen)

		_, err := a.Answer(ctx, "q")
		var svcErr *domain.ServiceError
		require.True(t, errors.As(err, &svcErr))
		assert.Equal(t, domain.ServiceGeneration, svcErr.Service)
	})

	t.Run("malformed payload", func(t *testing.T) {
		payloads := map[string]domain.SearchHit{
			"missing field":    {ID: "p", Payload: map[string]any{"content": "typo'd key"}},
			"non-string field": hitWith([]string{"a", "b"}),
			"nil payload":      {ID: "p"},
		}
		for name, hit := range payloads {
			t.Run(name, func(t *testing.T) {
				gen := &echoGenerator{}
				a := newTestAgent(t, &stubEmbedder{}, &stubIndex{hits: []domain.SearchHit{hit}}, gen)

				_, err := a.Answer(ctx, "q")
				assert.ErrorIs(t, err, domain.ErrMalformedPayload)
				assert.Zero(t, gen.calls)
			})
		}
	})

	t.Run("search failure", func(t *testing.T) {
		gen := &echoGenerator{}
		a := newTestAgent(t, &stubEmbedder{}, &stubIndex{searchErr: errors.New("timeout")}, gen)

		_, err := a.Answer(ctx, "q")
		assert.ErrorIs(t, err, domain.ErrService)
		assert.Zero(t, gen.calls)
	})

	t.Run("never upserts", func(t *testing.T) {
		idx := &stubIndex{hits: []domain.SearchHit{hitWith("ctx")}}
		a := newTestAgent(t, &stubEmbedder{}, idx, &echoGenerator{})

		for i := 0; i < 5; i++ {
			_, err := a.Answer(ctx, "q")
			require.NoError(t, err)
		}
		assert.Empty(t, idx.upserts)
		assert.Equal(t, 5, idx.searchCalls)
	})

	t.Run("custom system prompt", func(t *testing.T) {
		gen := &echoGenerator{}
		a, err := NewAgent(
			Deps{Embedder: &stubEmbedder{}, Index: &stubIndex{hits: []domain.SearchHit{hitWith("ctx")}}, Generator: gen},
			Settings{SystemPrompt: "Answer in French."},
		)
		require.NoError(t, err)

		_, err = a.Answer(ctx, "q")
		require.NoError(t, err)
		assert.Equal(t, "Answer in French.", gen.requests[0].Messages[0].Content)
	})
}

func TestAgent_RoundTrip(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewStorage()
	gen := &echoGenerator{}
	a := newTestAgent(t, &oneHotEmbedder{}, idx, gen)

	sales := source.FromText("sales.csv", "region,units\nnorth,42\nsouth,17\n")
	staff := source.FromText("staff.csv", "name,team\nada,platform\ngrace,compilers\n")
	for _, doc := range []domain.Document{sales, staff} {
		_, err := a.Ingest(ctx, doc)
		require.NoError(t, err)
	}
	require.Equal(t, 6, idx.Len())

	retrieved, err := a.Retrieve(ctx, "grace,compilers")
	require.NoError(t, err)
	assert.Equal(t, staff.Content, retrieved)

	answer, err := a.Answer(ctx, "north,42")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(answer, sales.Content))
	assert.Contains(t, answer, "north,42")
	assert.Equal(t, 6, idx.Len(), "answer does not write to the index")
}

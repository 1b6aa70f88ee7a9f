// Package openai implements the embedding service on top of the OpenAI API.
package openai

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"rag-agent/internal/domain"
)

var _ domain.Embedder = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultAPIKeyEnv = "OPENAI_API_KEY"
	DefaultTimeout   = 30 * time.Second
)

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Timeout   time.Duration
}

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
type Client struct {
	api openai.Client
}

// NewClient creates a new embeddings client. The API key is read from the
// environment variable named by cfg.APIKeyEnv.
func NewClient(cfg Config) (*Client, error) {
	opts, err := ClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{api: openai.NewClient(opts...)}, nil
}

// ClientOptions resolves cfg into SDK options. Requests are never retried.
func ClientOptions(cfg Config) ([]option.RequestOption, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = DefaultAPIKeyEnv
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return []option.RequestOption{
		option.WithAPIKey(key),
		option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/") + "/"),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}, nil
}

// Embed returns one vector per input, ordered like req.Inputs.
func (c *Client) Embed(ctx context.Context, req domain.EmbeddingRequest) ([][]float32, error) {
	if len(req.Inputs) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: req.Inputs},
		Model: openai.EmbeddingModel(req.Model),
	}
	// only text-embedding-3-* models accept a dimensions override
	if req.Dimensions > 0 && strings.HasPrefix(req.Model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(req.Dimensions))
	}

	resp, err := c.api.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(req.Inputs) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(req.Inputs))
	}

	vectors := make([][]float32, len(req.Inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(vectors) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vectors[d.Index] = vec
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("openai embeddings: missing vector for input %d", i)
		}
	}
	return vectors, nil
}


// Package qdrant is a minimal REST client to a Qdrant collection.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rag-agent/internal/domain"
)

var (
	_ domain.VectorIndex           = (*Storage)(nil)
	_ domain.CollectionInitializer = (*Storage)(nil)
)

// DefaultDistance is the metric used when creating a collection.
const DefaultDistance = "Cosine"

// Config holds the connection details for one collection.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Distance   string
	Timeout    time.Duration
}

// Storage stores points in a single Qdrant collection.
type Storage struct {
	url        string
	apiKey     string
	collection string
	distance   string
	client     *http.Client
}

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4 << 10

// statusError is returned for any non-2xx response.
type statusError struct {
	method string
	path   string
	status string
	code   int
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("qdrant %s %s failed: %s", e.method, e.path, e.status)
	}
	return fmt.Sprintf("qdrant %s %s failed: %s: %s", e.method, e.path, e.status, e.body)
}

// NewStorage returns a client for cfg.Collection. The collection is not contacted until first use.
func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	distance := cfg.Distance
	if distance == "" {
		distance = DefaultDistance
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		distance:   distance,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection if it does not exist yet.
func (s *Storage) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	err := s.do(ctx, http.MethodGet, s.collectionPath(), nil, nil)
	var se *statusError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &se) && se.code == http.StatusNotFound:
	default:
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": s.distance,
		},
	}
	return s.do(ctx, http.MethodPut, s.collectionPath(), body, nil)
}

// Upsert stores a single point and waits until it is searchable.
func (s *Storage) Upsert(ctx context.Context, point domain.StoredPoint) error {
	body := map[string]any{
		"points": []map[string]any{{
			"id":      point.ID,
			"vector":  point.Vector,
			"payload": point.Payload,
		}},
	}
	return s.do(ctx, http.MethodPut, s.collectionPath()+"/points?wait=true", body, nil)
}

// Search returns up to topK points nearest to vector, with their payloads.
func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchHit, error) {
	if topK <= 0 {
		topK = 1
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath()+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	hits := make([]domain.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, domain.SearchHit{ID: fmt.Sprint(r.ID), Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

func (s *Storage) collectionPath() string {
	return "/collections/" + url.PathEscape(s.collection)
}

func (s *Storage) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &statusError{
			method: method,
			path:   path,
			status: resp.Status,
			code:   resp.StatusCode,
			body:   strings.TrimSpace(string(msg)),
		}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

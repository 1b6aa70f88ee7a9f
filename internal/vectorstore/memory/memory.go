package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"rag-agent/internal/domain"
)

var _ domain.VectorIndex = (*Storage)(nil)

// Storage is a simple in-memory vector index using brute-force cosine similarity.
// Contents live only as long as the process.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	points    []domain.StoredPoint
	byID      map[string]int
}

// NewStorage returns an empty index whose dimension is fixed by EnsureCollection or the first Upsert.
func NewStorage() *Storage { return &Storage{byID: make(map[string]int)} }

// EnsureCollection fixes the vector dimension accepted by Upsert.
func (s *Storage) EnsureCollection(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension && len(s.points) > 0 {
		return fmt.Errorf("collection holds %d-dimensional vectors, not %d", s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

// Upsert stores point, replacing any point with the same id.
func (s *Storage) Upsert(_ context.Context, point domain.StoredPoint) error {
	if point.ID == "" {
		return errors.New("point id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		s.dimension = len(point.Vector)
	}
	if len(point.Vector) != s.dimension {
		return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(point.Vector))
	}
	if i, ok := s.byID[point.ID]; ok {
		s.points[i] = point
		return nil
	}
	s.byID[point.ID] = len(s.points)
	s.points = append(s.points, point)
	return nil
}

// Search returns up to topK points ranked by cosine similarity to vector.
func (s *Storage) Search(_ context.Context, vector []float32, topK int) ([]domain.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dimension != 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(vector))
	}
	if topK <= 0 {
		topK = 1
	}
	hits := make([]domain.SearchHit, len(s.points))
	for i, p := range s.points {
		hits[i] = domain.SearchHit{ID: p.ID, Score: cosine(p.Vector, vector), Payload: p.Payload}
	}
	// stable, so ties keep insertion order
	slices.SortStableFunc(hits, func(a, b domain.SearchHit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

// Len returns the number of stored points.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

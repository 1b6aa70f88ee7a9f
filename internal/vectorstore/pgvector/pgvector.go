// Package pgvector stores points in a PostgreSQL table using the pgvector extension.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"rag-agent/internal/domain"
)

var (
	_ domain.VectorIndex           = (*Storage)(nil)
	_ domain.CollectionInitializer = (*Storage)(nil)
)

// DefaultTable is used when no table name is configured.
const DefaultTable = "rag_points"

// Storage is a pgvector-backed index. Similarity is cosine.
type Storage struct {
	db     *sql.DB
	table  string
	logger *zap.Logger
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn, table string, logger *zap.Logger) (*Storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := New(db, table, logger)
	s.logger.Info("database connection established", zap.String("table", s.table))
	return s, nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, table string, logger *zap.Logger) *Storage {
	if table == "" {
		table = DefaultTable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{db: db, table: table, logger: logger}
}

// EnsureCollection enables the extension and creates the points table.
func (s *Storage) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create extension: %w", err)
	}
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY,
		vector vector(%d) NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, pq.QuoteIdentifier(s.table), dimension)
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	s.logger.Info("vector table ready", zap.String("table", s.table), zap.Int("dimension", dimension))
	return nil
}

// Upsert inserts point, replacing any row with the same id.
func (s *Storage) Upsert(ctx context.Context, point domain.StoredPoint) error {
	payload, err := json.Marshal(point.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, vector, payload) VALUES ($1, $2::vector, $3)
		ON CONFLICT (id) DO UPDATE SET vector = EXCLUDED.vector, payload = EXCLUDED.payload`,
		pq.QuoteIdentifier(s.table))
	if _, err := s.db.ExecContext(ctx, query, point.ID, pgvector.NewVector(point.Vector), payload); err != nil {
		return fmt.Errorf("store point: %w", err)
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchHit, error) {
	if topK <= 0 {
		topK = 1
	}
	query := fmt.Sprintf(`SELECT id, 1 - (vector <=> $1::vector) AS similarity, payload
		FROM %s
		ORDER BY vector <=> $1::vector
		LIMIT $2`, pq.QuoteIdentifier(s.table))

	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}
	defer rows.Close()

	var hits []domain.SearchHit
	for rows.Next() {
		var (
			hit     domain.SearchHit
			payload []byte
		)
		if err := rows.Scan(&hit.ID, &hit.Score, &payload); err != nil {
			return nil, fmt.Errorf("scan similar: %w", err)
		}
		if err := json.Unmarshal(payload, &hit.Payload); err != nil {
			return nil, fmt.Errorf("decode payload of %s: %w", hit.ID, err)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// Close closes the connection pool.
func (s *Storage) Close() error {
	return s.db.Close()
}


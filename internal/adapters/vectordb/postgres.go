package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver
	"github.com/pgvector/pgvector-go"

	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/entities"
)

// PostgresStore implements ports.VectorStore on Postgres with the pgvector
// extension. Cosine distance ordering happens in the database.
type PostgresStore struct {
	db        *sql.DB
	dimension int
}

// NewPostgresStore connects to Postgres and verifies the connection.
func NewPostgresStore(connString string, dimension int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &PostgresStore{db: db, dimension: dimension}, nil
}

// EnsureReady provisions the pgvector extension and the chunks table.
func (s *PostgresStore) EnsureReady(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id        TEXT PRIMARY KEY,
			namespace TEXT NOT NULL,
			metadata  JSONB NOT NULL,
			embedding vector(%d) NOT NULL
		)`, s.dimension),
		`CREATE INDEX IF NOT EXISTS chunks_namespace_idx ON chunks (namespace)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}

// Upsert writes records into the namespace, overwriting existing IDs.
func (s *PostgresStore) Upsert(ctx context.Context, records []entities.ChunkRecord, namespace string) error {
	if err := s.EnsureReady(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO chunks (id, namespace, metadata, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET namespace = EXCLUDED.namespace,
		    metadata  = EXCLUDED.metadata,
		    embedding = EXCLUDED.embedding
	`
	for _, r := range records {
		metadata, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for %s: %w", r.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query, r.ID, namespace, metadata, pgvector.NewVector(r.Values)); err != nil {
			return fmt.Errorf("upserting %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Query runs a cosine-distance top-k search with optional metadata filters.
func (s *PostgresStore) Query(ctx context.Context, vector []float32, topK int, namespace string, filter map[string]string) ([]entities.Match, error) {
	if err := s.EnsureReady(ctx); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = entities.DefaultTopK
	}

	query := `
		SELECT id, metadata, 1 - (embedding <=> $1) AS score
		FROM chunks
		WHERE namespace = $2
	`
	args := []any{pgvector.NewVector(vector), namespace}
	for key, value := range filter {
		args = append(args, key, value)
		query += fmt.Sprintf(" AND metadata->>$%d = $%d", len(args)-1, len(args))
	}
	args = append(args, topK)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	matches := make([]entities.Match, 0, topK)
	for rows.Next() {
		var m entities.Match
		var metadataJSON []byte
		if err := rows.Scan(&m.ID, &metadataJSON, &m.Score); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &m.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", m.ID, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}
	return matches, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

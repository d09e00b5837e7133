package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/entities"
)

// SQLiteStore implements ports.VectorStore with SQLite-based persistence.
// Vectors are stored as JSON and scored with brute-force cosine similarity,
// which is plenty for single-machine corpora and keeps the backend portable.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a persistent local vector store under dataPath.
func NewSQLiteStore(dataPath string) (*SQLiteStore, error) {
	if dataPath == "" {
		dataPath = "./data"
	}
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataPath, "vectors.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// EnsureReady creates the schema if it does not exist.
func (s *SQLiteStore) EnsureReady(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS vectors (
			id        TEXT PRIMARY KEY,
			namespace TEXT NOT NULL,
			embedding TEXT NOT NULL,
			metadata  TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS vectors_namespace_idx ON vectors(namespace);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// Upsert writes records into the namespace, replacing existing IDs.
func (s *SQLiteStore) Upsert(ctx context.Context, records []entities.ChunkRecord, namespace string) error {
	if err := s.EnsureReady(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO vectors (id, namespace, embedding, metadata)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		embedding, err := json.Marshal(r.Values)
		if err != nil {
			return fmt.Errorf("encoding embedding for %s: %w", r.ID, err)
		}
		metadata, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, namespace, embedding, metadata); err != nil {
			return fmt.Errorf("upserting %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Query loads the namespace and ranks it by cosine similarity in Go.
func (s *SQLiteStore) Query(ctx context.Context, vector []float32, topK int, namespace string, filter map[string]string) ([]entities.Match, error) {
	if err := s.EnsureReady(ctx); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = entities.DefaultTopK
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding, metadata FROM vectors WHERE namespace = ?`, namespace)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	matches := make([]entities.Match, 0)
	for rows.Next() {
		var id string
		var embeddingJSON, metadataJSON []byte
		if err := rows.Scan(&id, &embeddingJSON, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		var values []float32
		if err := json.Unmarshal(embeddingJSON, &values); err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", id, err)
		}
		var meta entities.ChunkMetadata
		if err := json.Unmarshal(metadataJSON, &meta); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", id, err)
		}
		if !metadataMatches(meta, filter) {
			continue
		}
		matches = append(matches, entities.Match{
			ID:       id,
			Score:    cosineSimilarity(vector, values),
			Metadata: meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Package vectordb provides vector store adapters.
// Clean Architecture: Adapters implementing ports.VectorStore.
// Backends: Pinecone (remote, default), Postgres/pgvector, SQLite, in-memory.
package vectordb

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/entities"
)

// InMemoryStore is a process-local vector store for tests and development.
type InMemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]entities.ChunkRecord // namespace -> id -> record
}

// NewInMemoryStore creates a new in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		namespaces: make(map[string]map[string]entities.ChunkRecord),
	}
}

// EnsureReady is a no-op for the in-memory store.
func (s *InMemoryStore) EnsureReady(ctx context.Context) error { return nil }

// Upsert writes records into the namespace, overwriting existing IDs.
func (s *InMemoryStore) Upsert(ctx context.Context, records []entities.ChunkRecord, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string]entities.ChunkRecord)
		s.namespaces[namespace] = ns
	}
	for _, r := range records {
		ns[r.ID] = r
	}
	return nil
}

// Query returns up to topK matches ordered by descending cosine similarity.
func (s *InMemoryStore) Query(ctx context.Context, vector []float32, topK int, namespace string, filter map[string]string) ([]entities.Match, error) {
	if topK <= 0 {
		topK = entities.DefaultTopK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]entities.Match, 0)
	for _, record := range s.namespaces[namespace] {
		if !metadataMatches(record.Metadata, filter) {
			continue
		}
		matches = append(matches, entities.Match{
			ID:       record.ID,
			Score:    cosineSimilarity(vector, record.Values),
			Metadata: record.Metadata,
		})
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

// metadataMatches applies equality filters against the metadata fields
// the index exposes for filtering.
func metadataMatches(meta entities.ChunkMetadata, filter map[string]string) bool {
	for key, want := range filter {
		switch key {
		case "dataset":
			if meta.Dataset != want {
				return false
			}
		case "file_id":
			if meta.FileID != want {
				return false
			}
		case "type":
			if meta.Type != want {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// cosineSimilarity computes the cosine of the angle between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

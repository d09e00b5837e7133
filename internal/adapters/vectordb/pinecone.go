package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/entities"
)

const defaultControllerURL = "https://api.pinecone.io"

// PineconeConfig configures the Pinecone REST adapter.
type PineconeConfig struct {
	APIKey    string
	IndexName string
	Cloud     string
	Region    string
	Dimension int

	// ControllerURL overrides the control plane endpoint (tests).
	ControllerURL string
	// ReadyPollInterval overrides the 1s readiness poll (tests).
	ReadyPollInterval time.Duration
}

// PineconeStore implements ports.VectorStore against Pinecone's REST API.
// The serverless index is provisioned lazily on first use; success is cached
// for the process lifetime while failures are retried on the next call.
type PineconeStore struct {
	cfg    PineconeConfig
	client *http.Client

	mu    sync.Mutex
	ready bool
	host  string
}

// NewPineconeStore creates a Pinecone-backed vector store.
func NewPineconeStore(cfg PineconeConfig) *PineconeStore {
	if cfg.ControllerURL == "" {
		cfg.ControllerURL = defaultControllerURL
	}
	if cfg.Cloud == "" {
		cfg.Cloud = "aws"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.ReadyPollInterval <= 0 {
		cfg.ReadyPollInterval = time.Second
	}
	return &PineconeStore{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type pineconeIndex struct {
	Name   string `json:"name"`
	Host   string `json:"host"`
	Status struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

// EnsureReady provisions the index if absent and blocks until it reports ready.
// A transient failure leaves the store unready so the next call tries again.
func (s *PineconeStore) EnsureReady(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := s.ensure(ctx); err != nil {
		return err
	}
	s.ready = true
	return nil
}

func (s *PineconeStore) ensure(ctx context.Context) error {
	var list struct {
		Indexes []pineconeIndex `json:"indexes"`
	}
	if err := s.doJSON(ctx, http.MethodGet, s.cfg.ControllerURL+"/indexes", nil, &list); err != nil {
		return fmt.Errorf("listing indexes: %w", err)
	}

	for _, idx := range list.Indexes {
		if idx.Name == s.cfg.IndexName {
			return s.waitReady(ctx)
		}
	}

	create := map[string]any{
		"name":      s.cfg.IndexName,
		"dimension": s.cfg.Dimension,
		"metric":    "cosine",
		"spec": map[string]any{
			"serverless": map[string]any{
				"cloud":  s.cfg.Cloud,
				"region": s.cfg.Region,
			},
		},
	}
	if err := s.doJSON(ctx, http.MethodPost, s.cfg.ControllerURL+"/indexes", create, nil); err != nil {
		return fmt.Errorf("creating index %q: %w", s.cfg.IndexName, err)
	}
	return s.waitReady(ctx)
}

// waitReady polls the index description until it reports ready, recording the
// data plane host along the way.
func (s *PineconeStore) waitReady(ctx context.Context) error {
	url := s.cfg.ControllerURL + "/indexes/" + s.cfg.IndexName
	for {
		var desc pineconeIndex
		if err := s.doJSON(ctx, http.MethodGet, url, nil, &desc); err != nil {
			return fmt.Errorf("describing index %q: %w", s.cfg.IndexName, err)
		}
		if desc.Status.Ready {
			s.host = desc.Host
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.ReadyPollInterval):
		}
	}
}

type pineconeVector struct {
	ID       string                 `json:"id"`
	Values   []float32              `json:"values"`
	Metadata entities.ChunkMetadata `json:"metadata"`
}

// Upsert writes records into the namespace in one batch call.
func (s *PineconeStore) Upsert(ctx context.Context, records []entities.ChunkRecord, namespace string) error {
	if err := s.EnsureReady(ctx); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	vectors := make([]pineconeVector, len(records))
	for i, r := range records {
		vectors[i] = pineconeVector{ID: r.ID, Values: r.Values, Metadata: r.Metadata}
	}
	body := map[string]any{
		"vectors":   vectors,
		"namespace": namespace,
	}
	if err := s.doJSON(ctx, http.MethodPost, s.dataURL("/vectors/upsert"), body, nil); err != nil {
		return fmt.Errorf("upserting %d vectors: %w", len(records), err)
	}
	return nil
}

// Query performs a top-k similarity search with an optional metadata filter.
func (s *PineconeStore) Query(ctx context.Context, vector []float32, topK int, namespace string, filter map[string]string) ([]entities.Match, error) {
	if err := s.EnsureReady(ctx); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = entities.DefaultTopK
	}

	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"namespace":       namespace,
		"includeMetadata": true,
	}
	if len(filter) > 0 {
		eq := make(map[string]any, len(filter))
		for key, value := range filter {
			eq[key] = map[string]any{"$eq": value}
		}
		body["filter"] = eq
	}

	var resp struct {
		Matches []struct {
			ID       string                 `json:"id"`
			Score    float64                `json:"score"`
			Metadata entities.ChunkMetadata `json:"metadata"`
		} `json:"matches"`
	}
	if err := s.doJSON(ctx, http.MethodPost, s.dataURL("/query"), body, &resp); err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	matches := make([]entities.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, entities.Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return matches, nil
}

func (s *PineconeStore) dataURL(path string) string {
	host := s.host
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return host + path
}

func (s *PineconeStore) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Api-Key", s.cfg.APIKey)
	req.Header.Set("X-Pinecone-Api-Version", "2024-07")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling Pinecone: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("Pinecone %s %s returned status %d: %s", method, url, resp.StatusCode, payload)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

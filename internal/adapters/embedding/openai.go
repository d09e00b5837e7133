// Package embedding provides the OpenAI embedding adapter.
// Clean Architecture: This is an adapter that implements ports.EmbeddingService.
// It knows about the OpenAI API but the domain layer doesn't.
package embedding

import (
	"context"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIAdapter implements ports.EmbeddingService using the OpenAI embeddings API.
type OpenAIAdapter struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIAdapter creates a new OpenAI embedding adapter.
// baseURL is optional and mainly useful for tests and compatible providers.
func NewOpenAIAdapter(apiKey, baseURL, model string, dimensions int) *OpenAIAdapter {
	if model == "" {
		model = "text-embedding-3-large"
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIAdapter{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: dimensions,
	}
}

// Embed generates an embedding for a single text.
func (a *OpenAIAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in a single API call.
// Output order matches input order.
func (a *OpenAIAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(a.model),
	}
	if a.dimensions > 0 {
		req.Dimensions = a.dimensions
	}

	resp, err := a.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("creating embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(resp.Data))
	}

	// The API tags each vector with its input index; order by it rather
	// than trusting response ordering.
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

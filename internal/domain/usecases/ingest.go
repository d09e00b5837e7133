// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
package usecases

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/chunker"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/entities"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/ports"
)

// IngestUseCase turns an uploaded document into indexed chunk records:
// extract -> split -> embed (one batch) -> upsert (one batch).
type IngestUseCase struct {
	extractor ports.DocumentExtractor
	splitter  *chunker.Splitter
	embedder  ports.EmbeddingService
	vectors   ports.VectorStore
	namespace string
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
func NewIngestUseCase(
	extractor ports.DocumentExtractor,
	splitter *chunker.Splitter,
	embedder ports.EmbeddingService,
	vectors ports.VectorStore,
	namespace string,
) *IngestUseCase {
	if splitter == nil {
		splitter = chunker.NewSplitter(chunker.DefaultChunkSize, chunker.DefaultOverlap)
	}
	return &IngestUseCase{
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		vectors:   vectors,
		namespace: namespace,
	}
}

// Ingest processes one stored upload. Partial failure (embedded but not
// upserted) is not rolled back: ingestion is best-effort by design and the
// uploaded file stays on disk for manual retry.
func (uc *IngestUseCase) Ingest(ctx context.Context, path, fileID, dataset, originalFilename string) error {
	kind, text, err := uc.extractor.Extract(ctx, path)
	if err != nil {
		return fmt.Errorf("extracting %s: %w", path, err)
	}

	chunks := uc.splitter.Split(text)
	if len(chunks) == 0 {
		return nil // empty document
	}

	embeddings, err := uc.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(embeddings))
	}

	if dataset == "" {
		dataset = entities.DefaultDataset
	}
	sourceName := filepath.Base(path)
	if originalFilename == "" {
		originalFilename = sourceName
	}

	records := make([]entities.ChunkRecord, len(chunks))
	for i := range chunks {
		records[i] = entities.ChunkRecord{
			ID:     fmt.Sprintf("%s::chunk::%d", fileID, i),
			Values: embeddings[i],
			Metadata: entities.ChunkMetadata{
				FileID:           fileID,
				ChunkIndex:       i,
				SourcePath:       sourceName,
				OriginalFilename: originalFilename,
				Type:             kind,
				Dataset:          dataset,
				Text:             chunks[i],
			},
		}
	}

	if err := uc.vectors.Upsert(ctx, records, uc.namespace); err != nil {
		return fmt.Errorf("upserting %d records: %w", len(records), err)
	}
	return nil
}

// IngestDetached runs Ingest in a background goroutine, decoupled from the
// triggering request. Failures are logged and isolated; they never reach a
// caller and never crash the process.
func (uc *IngestUseCase) IngestDetached(path, fileID, dataset, originalFilename string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[ERROR] ingestion panic for %s: %v", fileID, r)
			}
		}()

		if err := uc.Ingest(context.Background(), path, fileID, dataset, originalFilename); err != nil {
			log.Printf("[ERROR] ingestion failed for %s (%s): %v", fileID, originalFilename, err)
			return
		}
		log.Printf("[INFO] ingested %s (%s)", fileID, originalFilename)
	}()
}

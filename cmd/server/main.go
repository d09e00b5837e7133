package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/adapters/embedding"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/adapters/filewatcher"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/adapters/llm"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/adapters/parser"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/adapters/sessionstore"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/adapters/vectordb"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/chunker"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/config"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/ports"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/usecases"
	httpserver "github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/infrastructure/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[ERROR] loading configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := buildVectorStore(cfg)
	if err != nil {
		log.Fatalf("[ERROR] initializing vector store: %v", err)
	}

	embedder := embedding.NewOpenAIAdapter(cfg.OpenAIAPIKey, "", cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	chat := llm.NewOpenAIAdapter(cfg.OpenAIAPIKey, "", cfg.ChatModel)
	extractor := parser.NewExtractor()
	splitter := chunker.NewSplitter(chunker.DefaultChunkSize, chunker.DefaultOverlap)
	sessions := sessionstore.NewInMemoryStore()

	ingest := usecases.NewIngestUseCase(extractor, splitter, embedder, store, cfg.Namespace)
	rag := usecases.NewRAGUseCase(embedder, store, chat, sessions, cfg.Namespace)

	server, err := httpserver.NewServer(rag, ingest, extractor, cfg.UploadDir, cfg.AllowedOrigins, cfg.ListenAddr)
	if err != nil {
		log.Fatalf("[ERROR] initializing server: %v", err)
	}

	if cfg.WatchDir != "" {
		if err := runWatcher(ctx, cfg.WatchDir, ingest); err != nil {
			log.Fatalf("[ERROR] starting directory watcher: %v", err)
		}
	}

	if err := server.Start(ctx); err != nil {
		log.Fatalf("[ERROR] server failed: %v", err)
	}
	log.Println("[INFO] server stopped")
}

func buildVectorStore(cfg *config.Config) (ports.VectorStore, error) {
	switch cfg.VectorBackend {
	case config.BackendPinecone:
		return vectordb.NewPineconeStore(vectordb.PineconeConfig{
			APIKey:    cfg.Pinecone.APIKey,
			IndexName: cfg.Pinecone.Index,
			Cloud:     cfg.Pinecone.Cloud,
			Region:    cfg.Pinecone.Region,
			Dimension: cfg.EmbeddingDimensions,
		}), nil
	case config.BackendPostgres:
		return vectordb.NewPostgresStore(cfg.DatabaseURL, cfg.EmbeddingDimensions)
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return vectordb.NewSQLiteStore(cfg.DataDir)
	default:
		return vectordb.NewInMemoryStore(), nil
	}
}

// runWatcher ingests supported documents dropped into dir while the server runs.
func runWatcher(ctx context.Context, dir string, ingest *usecases.IngestUseCase) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	watcher, err := filewatcher.NewDirWatcher(nil)
	if err != nil {
		return err
	}

	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		watcher.Stop()
		return err
	}

	log.Printf("[INFO] watching %s for documents", dir)

	go func() {
		defer watcher.Stop()
		for event := range events {
			if event.Operation != ports.FileCreated {
				continue
			}
			ingest.IngestDetached(event.Path, uuid.NewString(), "", filepath.Base(event.Path))
		}
	}()

	return nil
}

// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"

	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/entities"
)

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	// Output order matches input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatService streams completions from a chat model.
type ChatService interface {
	// StreamChat starts a completion over the full message sequence and
	// returns a channel of StreamTokens for token-by-token output.
	// The channel is closed when generation finishes or fails.
	StreamChat(ctx context.Context, messages []entities.ChatMessage) (<-chan StreamToken, error)
}

// StreamToken represents a single token in a streaming completion.
type StreamToken struct {
	Content string
	Done    bool
	Error   error
}

// VectorStore persists and queries chunk embeddings in a namespaced index.
type VectorStore interface {
	// EnsureReady idempotently provisions the index, blocking until usable.
	// Called lazily before first use; cheap after the first call.
	EnsureReady(ctx context.Context) error

	// Upsert writes records into the namespace. Idempotent by record ID:
	// re-upserting an ID overwrites its vector and metadata.
	Upsert(ctx context.Context, records []entities.ChunkRecord, namespace string) error

	// Query returns up to topK matches ordered by descending similarity.
	// filter holds metadata equality constraints; nil means unfiltered.
	// An empty result is valid.
	Query(ctx context.Context, vector []float32, topK int, namespace string, filter map[string]string) ([]entities.Match, error)
}

// SessionStore keeps bounded recent-turn context per conversation.
type SessionStore interface {
	// History returns the stored messages for the chat, oldest first.
	// Unseen chat IDs yield an empty history.
	History(chatID string) []entities.ChatMessage

	// AppendTurn records one completed user/assistant exchange and evicts
	// the oldest entries beyond the 2*MaxTurns cap.
	AppendTurn(chatID, userContent, assistantContent string)
}

// DocumentExtractor pulls plain text out of an uploaded file.
type DocumentExtractor interface {
	// Extract returns the document kind ("pdf", "docx" or "text") and its text.
	Extract(ctx context.Context, path string) (kind string, text string, err error)

	// Supported reports whether the file extension can be extracted.
	Supported(filename string) bool
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import "errors"

// Roles used in chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MaxTurns is the number of user/assistant turns retained per chat session.
// A session holds at most 2*MaxTurns flat messages; older entries are evicted first.
const MaxTurns = 8

// DefaultChatID is used when a request carries no chat identifier.
const DefaultChatID = "default"

// DefaultTopK is the number of matches retrieved when the request does not set one.
const DefaultTopK = 6

// DefaultDataset tags chunks ingested without an explicit dataset.
const DefaultDataset = "default"

// Client-error sentinels. Handlers map these to 4xx responses.
var (
	ErrEmptyQuestion   = errors.New("question is required")
	ErrUnsupportedType = errors.New("only PDF, DOCX, TXT, MD are supported")
)

// ChatMessage represents a single conversation entry.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChunkMetadata is the payload stored alongside each chunk vector.
// Text carries the verbatim chunk content - there is no separate content
// store, so retrieval context comes straight from the index.
type ChunkMetadata struct {
	FileID           string `json:"file_id"`
	ChunkIndex       int    `json:"chunk_index"`
	SourcePath       string `json:"source_path"`
	OriginalFilename string `json:"original_filename"`
	Type             string `json:"type"`
	Dataset          string `json:"dataset"`
	Text             string `json:"text"`
}

// ChunkRecord is one vector index entry, identified as "{fileID}::chunk::{index}".
type ChunkRecord struct {
	ID       string
	Values   []float32
	Metadata ChunkMetadata
}

// Match is a transient similarity-search result, consumed immediately
// to build a prompt and never persisted.
type Match struct {
	ID       string
	Score    float64
	Metadata ChunkMetadata
}

// QueryRequest is a question against the indexed corpus.
type QueryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
	Dataset  string `json:"dataset"`
	ChatID   string `json:"chat_id"`
}

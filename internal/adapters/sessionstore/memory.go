// Package sessionstore provides chat history adapters.
// Clean Architecture: Adapter implementing ports.SessionStore.
// In-memory only: a process restart loses all history, which is an accepted
// boundary of the design rather than a bug.
package sessionstore

import (
	"sync"

	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/entities"
)

// InMemoryStore keeps bounded per-chat histories in a process-wide map.
// The mutex serializes concurrent appends under the same chat ID.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]entities.ChatMessage
	maxTurns int
}

// NewInMemoryStore creates an empty session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string][]entities.ChatMessage),
		maxTurns: entities.MaxTurns,
	}
}

// History returns a copy of the stored messages, oldest first.
// Unseen chat IDs yield an empty history.
func (s *InMemoryStore) History(chatID string) []entities.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.sessions[chatID]
	out := make([]entities.ChatMessage, len(stored))
	copy(out, stored)
	return out
}

// AppendTurn records one user/assistant exchange and truncates the history
// to the most recent 2*MaxTurns entries, dropping the oldest first.
func (s *InMemoryStore) AppendTurn(chatID, userContent, assistantContent string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := append(s.sessions[chatID],
		entities.ChatMessage{Role: entities.RoleUser, Content: userContent},
		entities.ChatMessage{Role: entities.RoleAssistant, Content: assistantContent},
	)

	limit := 2 * s.maxTurns
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	s.sessions[chatID] = msgs
}

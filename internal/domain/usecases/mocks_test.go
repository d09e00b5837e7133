package usecases

import (
	"context"
	"sync"

	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/entities"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/ports"
)

// mockEmbedder implements ports.EmbeddingService for testing.
type mockEmbedder struct {
	err        error
	embedded   []string
	batchCalls int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.embedded = append(m.embedded, text)
	return []float32{1, 0, 0}, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.batchCalls++
	m.embedded = append(m.embedded, texts...)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

// mockVectorStore implements ports.VectorStore for testing.
type mockVectorStore struct {
	matches    []entities.Match
	queryErr   error
	upsertErr  error
	upserted   []entities.ChunkRecord
	namespace  string
	lastTopK   int
	lastFilter map[string]string
}

func (m *mockVectorStore) EnsureReady(ctx context.Context) error { return nil }

func (m *mockVectorStore) Upsert(ctx context.Context, records []entities.ChunkRecord, namespace string) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, records...)
	m.namespace = namespace
	return nil
}

func (m *mockVectorStore) Query(ctx context.Context, vector []float32, topK int, namespace string, filter map[string]string) ([]entities.Match, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	m.namespace = namespace
	m.lastTopK = topK
	m.lastFilter = filter
	return m.matches, nil
}

// mockChat implements ports.ChatService, emitting canned tokens.
type mockChat struct {
	tokens    []string
	midErr    error // emitted after tokens when set
	startErr  error
	gotMsgs   []entities.ChatMessage
	startedCh chan struct{} // closed when the stream starts, if set
}

func (m *mockChat) StreamChat(ctx context.Context, messages []entities.ChatMessage) (<-chan ports.StreamToken, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.gotMsgs = messages
	if m.startedCh != nil {
		close(m.startedCh)
	}

	ch := make(chan ports.StreamToken, len(m.tokens)+1)
	go func() {
		defer close(ch)
		for _, tok := range m.tokens {
			select {
			case ch <- ports.StreamToken{Content: tok}:
			case <-ctx.Done():
				return
			}
		}
		if m.midErr != nil {
			ch <- ports.StreamToken{Done: true, Error: m.midErr}
			return
		}
		ch <- ports.StreamToken{Done: true}
	}()
	return ch, nil
}

type appendedTurn struct {
	chatID    string
	user      string
	assistant string
}

// mockSessions implements ports.SessionStore and signals each append.
type mockSessions struct {
	mu       sync.Mutex
	history  map[string][]entities.ChatMessage
	appended []appendedTurn
	appendCh chan struct{}
}

func newMockSessions() *mockSessions {
	return &mockSessions{
		history:  make(map[string][]entities.ChatMessage),
		appendCh: make(chan struct{}, 8),
	}
}

func (m *mockSessions) History(chatID string) []entities.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history[chatID]
}

func (m *mockSessions) AppendTurn(chatID, userContent, assistantContent string) {
	m.mu.Lock()
	m.appended = append(m.appended, appendedTurn{chatID, userContent, assistantContent})
	m.mu.Unlock()
	m.appendCh <- struct{}{}
}

func (m *mockSessions) turns() []appendedTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]appendedTurn, len(m.appended))
	copy(out, m.appended)
	return out
}

// mockExtractor implements ports.DocumentExtractor.
type mockExtractor struct {
	kind string
	text string
	err  error
}

func (m *mockExtractor) Extract(ctx context.Context, path string) (string, string, error) {
	if m.err != nil {
		return "", "", m.err
	}
	return m.kind, m.text, nil
}

func (m *mockExtractor) Supported(filename string) bool { return true }

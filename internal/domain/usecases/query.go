// Package usecases - query.go holds the retrieval-augmented chat pipeline.
package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/entities"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/ports"
)

// systemPrompt is the fixed grounding persona sent with every completion.
const systemPrompt = "You are a precise RAG assistant. Use ONLY the provided context to answer. " +
	"If the answer isn't in the context, say you don't know. Be concise and cite chunk indices like [#]."

// RAGUseCase answers questions grounded in retrieved chunks, with bounded
// per-chat history and guaranteed turn persistence however streaming ends.
type RAGUseCase struct {
	embedder  ports.EmbeddingService
	vectors   ports.VectorStore
	chat      ports.ChatService
	sessions  ports.SessionStore
	namespace string
}

// NewRAGUseCase creates a RAGUseCase with injected dependencies.
func NewRAGUseCase(
	embedder ports.EmbeddingService,
	vectors ports.VectorStore,
	chat ports.ChatService,
	sessions ports.SessionStore,
	namespace string,
) *RAGUseCase {
	return &RAGUseCase{
		embedder:  embedder,
		vectors:   vectors,
		chat:      chat,
		sessions:  sessions,
		namespace: namespace,
	}
}

// Stream answers the question as a lazily produced token sequence.
//
// Once streaming starts, exactly one user turn (the full prompt) and one
// assistant turn (all tokens delivered so far, possibly empty) are persisted
// on every exit path: normal completion, caller cancellation or a mid-stream
// provider failure. The returned channel is unbuffered so accumulation tracks
// what the consumer actually received. Failures before streaming begins
// mutate no history.
func (uc *RAGUseCase) Stream(ctx context.Context, req entities.QueryRequest) (<-chan ports.StreamToken, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, entities.ErrEmptyQuestion
	}

	topK := req.TopK
	if topK <= 0 {
		topK = entities.DefaultTopK
	}
	chatID := req.ChatID
	if chatID == "" {
		chatID = entities.DefaultChatID
	}
	var filter map[string]string
	if req.Dataset != "" {
		filter = map[string]string{"dataset": req.Dataset}
	}

	queryVec, err := uc.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	matches, err := uc.vectors.Query(ctx, queryVec, topK, uc.namespace, filter)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	prompt := buildPrompt(question, matches)

	history := uc.sessions.History(chatID)
	messages := make([]entities.ChatMessage, 0, len(history)+2)
	messages = append(messages, entities.ChatMessage{Role: entities.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, entities.ChatMessage{Role: entities.RoleUser, Content: prompt})

	tokens, err := uc.chat.StreamChat(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("starting completion: %w", err)
	}

	out := make(chan ports.StreamToken)
	go func() {
		var answer strings.Builder
		defer close(out)
		// The pending turn commits no matter how this goroutine exits.
		defer func() {
			uc.sessions.AppendTurn(chatID, prompt, answer.String())
		}()

		for token := range tokens {
			select {
			case out <- token:
			case <-ctx.Done():
				return
			}
			if token.Error != nil {
				return
			}
			answer.WriteString(token.Content)
		}
	}()
	return out, nil
}

// Ask runs the same pipeline in blocking mode, returning the complete answer.
func (uc *RAGUseCase) Ask(ctx context.Context, req entities.QueryRequest) (string, error) {
	tokens, err := uc.Stream(ctx, req)
	if err != nil {
		return "", err
	}

	var answer strings.Builder
	for token := range tokens {
		if token.Error != nil {
			for range tokens {
				// drain until the producer closes the channel
			}
			return "", fmt.Errorf("completion failed: %w", token.Error)
		}
		answer.WriteString(token.Content)
	}
	return answer.String(), nil
}

// buildPrompt renders the retrieved matches, the question and the grounding
// instructions into the single user message sent to the model. Matches keep
// the index's descending-similarity order.
func buildPrompt(question string, matches []entities.Match) string {
	lines := []string{"Context:"}
	if len(matches) == 0 {
		lines = append(lines, "No relevant documents were found.")
	}
	for i, m := range matches {
		lines = append(lines, fmt.Sprintf("[%d] (score: %.3f) %s", i, m.Score, m.Metadata.Text))
	}
	lines = append(lines,
		"\nQuestion:",
		question,
		"\nInstructions: Answer strictly from the context above. If missing, say you don't know.",
	)
	return strings.Join(lines, "\n")
}

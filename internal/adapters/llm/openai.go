// Package llm provides the OpenAI chat completion adapter.
// Clean Architecture: Adapter implementing ports.ChatService.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/entities"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/ports"
)

// completionTemperature keeps answers grounded in the retrieved context.
const completionTemperature = 0.2

// OpenAIAdapter implements ports.ChatService using the OpenAI chat API.
type OpenAIAdapter struct {
	client *openai.Client
	model  string
}

// NewOpenAIAdapter creates a new OpenAI chat adapter.
// baseURL is optional and mainly useful for tests and compatible providers.
func NewOpenAIAdapter(apiKey, baseURL, model string) *OpenAIAdapter {
	if model == "" {
		model = "gpt-4o-mini"
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// StreamChat starts a streaming completion over the full message sequence.
// The returned channel is closed when generation finishes or fails; a failure
// mid-stream surfaces as a final token carrying the error.
func (a *OpenAIAdapter) StreamChat(ctx context.Context, messages []entities.ChatMessage) (<-chan ports.StreamToken, error) {
	req := openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: completionTemperature,
		Stream:      true,
	}

	stream, err := a.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("starting chat stream: %w", err)
	}

	ch := make(chan ports.StreamToken, 64)

	go func() {
		defer close(ch)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				ch <- ports.StreamToken{Done: true}
				return
			}
			if err != nil {
				select {
				case ch <- ports.StreamToken{Done: true, Error: err}:
				case <-ctx.Done():
				}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case ch <- ports.StreamToken{Content: delta}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

func toOpenAIMessages(messages []entities.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/adapters/parser"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/chunker"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/entities"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/ports"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/usecases"
)

type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeStore struct {
	mu       sync.Mutex
	matches  []entities.Match
	queryErr error
	upserted []entities.ChunkRecord
	upsertCh chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{upsertCh: make(chan struct{}, 8)}
}

func (f *fakeStore) EnsureReady(ctx context.Context) error { return nil }

func (f *fakeStore) Upsert(ctx context.Context, records []entities.ChunkRecord, namespace string) error {
	f.mu.Lock()
	f.upserted = append(f.upserted, records...)
	f.mu.Unlock()
	f.upsertCh <- struct{}{}
	return nil
}

func (f *fakeStore) Query(ctx context.Context, vector []float32, topK int, namespace string, filter map[string]string) ([]entities.Match, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.matches, nil
}

func (f *fakeStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserted)
}

type fakeChat struct {
	tokens []string
}

func (f *fakeChat) StreamChat(ctx context.Context, messages []entities.ChatMessage) (<-chan ports.StreamToken, error) {
	out := make(chan ports.StreamToken, len(f.tokens)+1)
	go func() {
		defer close(out)
		for _, tok := range f.tokens {
			out <- ports.StreamToken{Content: tok}
		}
		out <- ports.StreamToken{Done: true}
	}()
	return out, nil
}

type fakeSessions struct {
	mu      sync.Mutex
	history map[string][]entities.ChatMessage
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{history: make(map[string][]entities.ChatMessage)}
}

func (f *fakeSessions) History(chatID string) []entities.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[chatID]
}

func (f *fakeSessions) AppendTurn(chatID, userContent, assistantContent string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[chatID] = append(f.history[chatID],
		entities.ChatMessage{Role: entities.RoleUser, Content: userContent},
		entities.ChatMessage{Role: entities.RoleAssistant, Content: assistantContent},
	)
}

type testFixture struct {
	server    *Server
	store     *fakeStore
	uploadDir string
}

func newTestFixture(t *testing.T, store *fakeStore, chat *fakeChat) *testFixture {
	t.Helper()

	extractor := parser.NewExtractor()
	splitter := chunker.NewSplitter(100, 20)
	embedder := &fakeEmbedder{}
	sessions := newFakeSessions()

	ingest := usecases.NewIngestUseCase(extractor, splitter, embedder, store, "ns")
	rag := usecases.NewRAGUseCase(embedder, store, chat, sessions, "ns")

	uploadDir := t.TempDir()
	server, err := NewServer(rag, ingest, extractor, uploadDir, []string{"http://localhost:5173"}, ":0")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return &testFixture{server: server, store: store, uploadDir: uploadDir}
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	io.WriteString(part, content)
	writer.Close()
	return &body, writer.FormDataContentType()
}

func TestHandleHealth(t *testing.T) {
	f := newTestFixture(t, newFakeStore(), &fakeChat{})

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]string
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp["status"] != "ok" {
		t.Errorf("unexpected health payload: %v", resp)
	}
}

func TestHandleIngestFile_RejectsUnsupportedExtension(t *testing.T) {
	f := newTestFixture(t, newFakeStore(), &fakeChat{})

	body, contentType := multipartUpload(t, "malware.exe", "binary")
	req := httptest.NewRequest(http.MethodPost, "/ingest/file", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp map[string]string
	json.NewDecoder(rec.Body).Decode(&resp)
	if !strings.Contains(resp["detail"], "PDF") {
		t.Errorf("unexpected error detail: %q", resp["detail"])
	}

	entries, _ := os.ReadDir(f.uploadDir)
	if len(entries) != 0 {
		t.Error("rejected upload must not be stored")
	}
	if f.store.upsertCount() != 0 {
		t.Error("rejected upload must not be ingested")
	}
}

func TestHandleIngestFile_QueuesAndIngests(t *testing.T) {
	f := newTestFixture(t, newFakeStore(), &fakeChat{})

	body, contentType := multipartUpload(t, "meeting notes.txt", "Decisions from the meeting.")
	req := httptest.NewRequest(http.MethodPost, "/ingest/file", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp["status"] != "queued" {
		t.Errorf("expected queued status, got %q", resp["status"])
	}
	if resp["file_id"] == "" {
		t.Error("expected a file id")
	}
	if resp["filename"] != "meeting notes.txt" {
		t.Errorf("expected original filename echoed, got %q", resp["filename"])
	}

	stored := filepath.Join(f.uploadDir, resp["file_id"]+"__meeting_notes.txt")
	if _, err := os.Stat(stored); err != nil {
		t.Errorf("stored upload not found at %s: %v", stored, err)
	}

	select {
	case <-f.store.upsertCh:
	case <-time.After(2 * time.Second):
		t.Fatal("detached ingestion never reached the index")
	}

	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if f.store.upserted[0].Metadata.FileID != resp["file_id"] {
		t.Errorf("record tagged with wrong file id %q", f.store.upserted[0].Metadata.FileID)
	}
	if f.store.upserted[0].Metadata.OriginalFilename != "meeting notes.txt" {
		t.Errorf("original filename lost: %q", f.store.upserted[0].Metadata.OriginalFilename)
	}
}

func TestHandleQuery_ReturnsAnswerAndChatID(t *testing.T) {
	store := newFakeStore()
	store.matches = []entities.Match{{ID: "c0", Score: 0.9, Metadata: entities.ChunkMetadata{Text: "context"}}}
	f := newTestFixture(t, store, &fakeChat{tokens: []string{"forty", "-two"}})

	payload := `{"question": "what is the answer?", "chat_id": "sess-1"}`
	req := httptest.NewRequest(http.MethodPost, "/rag/query", strings.NewReader(payload))

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp["answer"] != "forty-two" {
		t.Errorf("unexpected answer %q", resp["answer"])
	}
	if resp["chat_id"] != "sess-1" {
		t.Errorf("unexpected chat id %q", resp["chat_id"])
	}
}

func TestHandleQuery_DefaultsChatID(t *testing.T) {
	f := newTestFixture(t, newFakeStore(), &fakeChat{tokens: []string{"hi"}})

	req := httptest.NewRequest(http.MethodPost, "/rag/query", strings.NewReader(`{"question": "q"}`))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	var resp map[string]string
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp["chat_id"] != entities.DefaultChatID {
		t.Errorf("expected default chat id, got %q", resp["chat_id"])
	}
}

func TestHandleQuery_EmptyQuestionIsBadRequest(t *testing.T) {
	f := newTestFixture(t, newFakeStore(), &fakeChat{})

	req := httptest.NewRequest(http.MethodPost, "/rag/query", strings.NewReader(`{"question": "  "}`))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp map[string]string
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp["detail"] == "" {
		t.Error("expected an error detail")
	}
}

func TestHandleQuery_ProviderFailureIsBadGateway(t *testing.T) {
	store := newFakeStore()
	store.queryErr = errors.New("index offline")
	f := newTestFixture(t, store, &fakeChat{})

	req := httptest.NewRequest(http.MethodPost, "/rag/query", strings.NewReader(`{"question": "q"}`))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestHandleQueryStream_EmitsRawTokens(t *testing.T) {
	f := newTestFixture(t, newFakeStore(), &fakeChat{tokens: []string{"str", "eam", "ed"}})

	req := httptest.NewRequest(http.MethodPost, "/rag/query/stream", strings.NewReader(`{"question": "q"}`))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("unexpected content type %q", ct)
	}
	if rec.Body.String() != "streamed" {
		t.Errorf("unexpected stream body %q", rec.Body.String())
	}
}

func TestHandleQueryStream_MethodNotAllowed(t *testing.T) {
	f := newTestFixture(t, newFakeStore(), &fakeChat{})

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rag/query/stream", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestCORS_AllowedOriginGetsHeaders(t *testing.T) {
	f := newTestFixture(t, newFakeStore(), &fakeChat{})

	req := httptest.NewRequest(http.MethodOptions, "/rag/query", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("unexpected allow-origin %q", got)
	}
}

func TestCORS_UnknownOriginGetsNoHeaders(t *testing.T) {
	f := newTestFixture(t, newFakeStore(), &fakeChat{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow-origin %q for unknown origin", got)
	}
}

func TestStoredName_SanitizesOriginal(t *testing.T) {
	cases := map[string]string{
		"meeting notes.txt":   "meeting_notes.txt",
		"../../etc/passwd.md": "passwd.md",
		"Résumé final.PDF":    "R_sum__final.pdf",
	}
	for in, want := range cases {
		if got := storedName(in); got != want {
			t.Errorf("storedName(%q) = %q, want %q", in, got, want)
		}
	}
}

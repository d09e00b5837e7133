// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/entities"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/ports"
	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/usecases"
)

// maxUploadSize caps ingestion uploads at 25 MB.
const maxUploadSize = 25 << 20

// maxStemLength bounds the sanitized original filename stem kept on disk.
const maxStemLength = 80

var stemSanitizer = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Server is the HTTP server for the RAG API.
type Server struct {
	rag            *usecases.RAGUseCase
	ingest         *usecases.IngestUseCase
	extractor      ports.DocumentExtractor
	uploadDir      string
	allowedOrigins []string
	addr           string
}

// NewServer creates a new HTTP server and ensures the upload directory exists.
func NewServer(
	rag *usecases.RAGUseCase,
	ingest *usecases.IngestUseCase,
	extractor ports.DocumentExtractor,
	uploadDir string,
	allowedOrigins []string,
	addr string,
) (*Server, error) {
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &Server{
		rag:            rag,
		ingest:         ingest,
		extractor:      extractor,
		uploadDir:      uploadDir,
		allowedOrigins: allowedOrigins,
		addr:           addr,
	}, nil
}

// Handler builds the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ingest/file", s.handleIngestFile)
	mux.HandleFunc("/rag/query", s.handleQuery)
	mux.HandleFunc("/rag/query/stream", s.handleQueryStream)
	mux.HandleFunc("/health", s.handleHealth)
	return s.corsMiddleware(loggingMiddleware(mux))
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // long enough for streaming
	}

	log.Printf("[INFO] RAG server starting on %s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// handleIngestFile accepts a multipart upload, stores it on disk and queues
// detached ingestion. Unsupported extensions are rejected before anything is
// scheduled.
func (s *Server) handleIngestFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if !s.extractor.Supported(header.Filename) {
		writeError(w, http.StatusBadRequest, entities.ErrUnsupportedType.Error())
		return
	}

	fileID := uuid.NewString()
	dest := filepath.Join(s.uploadDir, fileID+"__"+storedName(header.Filename))

	out, err := os.Create(dest)
	if err != nil {
		log.Printf("[ERROR] creating upload file: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		log.Printf("[ERROR] writing upload file: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	out.Close()

	s.ingest.IngestDetached(dest, fileID, r.FormValue("dataset"), header.Filename)

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "queued",
		"file_id":  fileID,
		"filename": header.Filename,
	})
}

// handleQuery answers a question in blocking mode.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req entities.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.ChatID == "" {
		req.ChatID = entities.DefaultChatID
	}

	answer, err := s.rag.Ask(r.Context(), req)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"answer":  answer,
		"chat_id": req.ChatID,
	})
}

// handleQueryStream answers a question as a raw token event-stream.
// Once streaming has begun, failures can only truncate the stream; turn
// persistence is handled inside the use case regardless.
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req entities.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	tokens, err := s.rag.Stream(r.Context(), req)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for token := range tokens {
		if token.Error != nil {
			log.Printf("[ERROR] stream aborted: %v", token.Error)
			break
		}
		if token.Content == "" {
			continue
		}
		fmt.Fprint(w, token.Content)
		flusher.Flush()
	}
	for range tokens {
		// drain so the producer can finish
	}
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// storedName builds the on-disk name suffix for an upload: the sanitized
// original stem plus the original extension.
func storedName(filename string) string {
	base := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(base))
	stem := stemSanitizer.ReplaceAllString(strings.TrimSuffix(base, filepath.Ext(base)), "_")
	if len(stem) > maxStemLength {
		stem = stem[:maxStemLength]
	}
	return stem + ext
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeQueryError maps use case failures onto the error taxonomy:
// invalid requests are the client's fault, everything else is a provider error.
func writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, entities.ErrEmptyQuestion) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Printf("[ERROR] query failed: %v", err)
	writeError(w, http.StatusBadGateway, err.Error())
}

// corsMiddleware allows configured browser origins during development.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.allowedOrigins {
		if allowed == origin || allowed == "*" {
			return true
		}
	}
	return false
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

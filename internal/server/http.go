package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talknote/gateway/internal/config"
	"github.com/talknote/gateway/internal/enhance"
	"github.com/talknote/gateway/internal/metrics"
	"github.com/talknote/gateway/internal/notes"
	"github.com/talknote/gateway/internal/transcription"
)

// Transcriber converts an audio buffer to text.
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte) (*transcription.Result, error)
}

// Enhancer rewrites text and answers free-form prompts via the LLM backend.
type Enhancer interface {
	Enhance(ctx context.Context, text string, task enhance.Task) enhance.Result
	Chat(ctx context.Context, prompt, chatContext string) (string, error)
	Model() string
}

// NoteStore persists and searches notes in the note backend.
type NoteStore interface {
	CreateNote(ctx context.Context, title, content, parentID string) (*notes.Note, error)
	Search(ctx context.Context, query string) ([]notes.Note, error)
}

// Server is the HTTP-facing orchestrator. It composes the transcription
// adapter, enhancement client, and note store client into named pipelines
// and owns the failure/response contract for each.
type Server struct {
	server      *http.Server
	logger      *slog.Logger
	config      *config.Config
	transcriber Transcriber
	enhancer    Enhancer
	noteStore   NoteStore
	metrics     *metrics.Metrics
	stats       *pipelineStats

	startTime time.Time
}

// NewServer creates the orchestrator with its collaborators.
func NewServer(cfg *config.Config, logger *slog.Logger,
	transcriber Transcriber, enhancer Enhancer, noteStore NoteStore, m *metrics.Metrics) *Server {

	s := &Server{
		logger:      logger,
		config:      cfg,
		transcriber: transcriber,
		enhancer:    enhancer,
		noteStore:   noteStore,
		metrics:     m,
		stats:       newPipelineStats(),
		startTime:   time.Now(),
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler:     mux,
		ReadTimeout: 60 * time.Second,
		// Write timeout must cover the slowest pipeline leg plus slack.
		WriteTimeout: cfg.Pipeline.GetTotalTimeout() + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// setupRoutes configures the gateway's HTTP surface
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Pipeline endpoints
	mux.HandleFunc("/health", s.withMetrics("/health", s.handleHealth))
	mux.HandleFunc("/voice-to-text", s.withMetrics("/voice-to-text", s.handleVoiceToText))
	mux.HandleFunc("/enhance-text", s.withMetrics("/enhance-text", s.handleEnhanceText))
	mux.HandleFunc("/create-note", s.withMetrics("/create-note", s.handleCreateNote))
	mux.HandleFunc("/quick-note", s.withMetrics("/quick-note", s.handleQuickNote))
	mux.HandleFunc("/search", s.withMetrics("/search", s.handleSearch))
	mux.HandleFunc("/trilium-ai", s.withMetrics("/trilium-ai", s.handleTriliumAI))
	mux.HandleFunc("/ollama-chat", s.withMetrics("/ollama-chat", s.handleOllamaChat))

	// Operational endpoints
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/stats", s.withMetrics("/stats", s.handleStats))
	mux.HandleFunc("/config", s.withMetrics("/config", s.handleConfig))
	mux.HandleFunc("/", s.withMetrics("/", s.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (s *Server) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		s.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			s.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		slog.String("address", s.server.Addr),
	)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server...")

	return s.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startTime).String(),
	})
}

// handleConfig implements the /config endpoint with sanitized output
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Token is intentionally omitted.
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"server": map[string]interface{}{
			"port":           s.config.Server.Port,
			"address":        s.config.Server.Address,
			"max_audio_size": s.config.Server.MaxAudioSize,
		},
		"whisper": map[string]interface{}{
			"model_size":     s.config.Whisper.ModelSize,
			"language":       s.config.Whisper.Language,
			"max_concurrent": s.config.Whisper.MaxConcurrent,
			"timeout":        s.config.Whisper.Timeout,
		},
		"ollama": map[string]interface{}{
			"base_url":        s.config.Ollama.BaseURL,
			"model":           s.config.Ollama.Model,
			"enhance_timeout": s.config.Ollama.EnhanceTimeout,
			"chat_timeout":    s.config.Ollama.ChatTimeout,
		},
		"trilium": map[string]interface{}{
			"base_url":       s.config.Trilium.BaseURL,
			"parent_note_id": s.config.Trilium.ParentNoteID,
			"timeout":        s.config.Trilium.Timeout,
		},
		"pipeline": map[string]interface{}{
			"total_timeout":    s.config.Pipeline.TotalTimeout,
			"title_max_length": s.config.Pipeline.TitleMaxLength,
		},
	})
}

// handleRoot implements the / endpoint with API documentation
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "voice-note-gateway",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":               "API documentation",
			"GET /health":         "Service health check",
			"POST /voice-to-text": "Transcribe an uploaded audio file",
			"POST /enhance-text":  "Rewrite text with the LLM backend",
			"POST /create-note":   "Create a note with optional enhancement",
			"POST /quick-note":    "Voice or text quick capture into a note",
			"GET /search":         "Search stored notes",
			"POST /trilium-ai":    "Note-scoped text enhancement",
			"POST /ollama-chat":   "Free-form context-aware chat",
			"GET /config":         "Get sanitized configuration",
			"GET /stats":          "Uptime and pipeline counters",
			"GET /metrics":        "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStageError reports a pipeline failure with a stable code naming
// the failing stage, so callers can tell stages apart.
func writeStageError(w http.ResponseWriter, status int, message, stage string) {
	writeJSON(w, status, map[string]string{"error": message, "stage": stage})
}

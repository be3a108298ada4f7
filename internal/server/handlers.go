package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/talknote/gateway/internal/enhance"
	"github.com/talknote/gateway/internal/notes"
	"github.com/talknote/gateway/internal/transcription"
)

var (
	errNoAudioFile   = errors.New("no audio file in request")
	errAudioTooLarge = errors.New("audio file exceeds size limit")
)

// readAudioFile extracts the uploaded audio from a multipart request.
// The whole body is capped at the configured maximum before parsing, so
// oversized uploads are rejected instead of spilling to disk.
func (s *Server) readAudioFile(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxAudioSize)

	if err := r.ParseMultipartForm(s.config.Server.MaxAudioSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errAudioTooLarge
		}
		return nil, errNoAudioFile
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		// Some clients post the clip under "file".
		file, _, err = r.FormFile("file")
		if err != nil {
			return nil, errNoAudioFile
		}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		return nil, errNoAudioFile
	}

	return data, nil
}

// transcribeStep runs the transcription adapter with metrics and maps the
// failure kind for observability.
func (s *Server) transcribeStep(ctx context.Context, data []byte) (*transcription.Result, error) {
	startTime := time.Now()
	result, err := s.transcriber.Transcribe(ctx, data)
	if err != nil {
		s.metrics.RecordTranscriptionFailure(transcriptionFailureKind(err))
		return nil, err
	}

	s.metrics.RecordTranscription(result.Duration, time.Since(startTime).Seconds())
	return result, nil
}

func transcriptionFailureKind(err error) string {
	switch {
	case errors.Is(err, transcription.ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, transcription.ErrDecodeFailed):
		return "decode_failed"
	default:
		return "engine_failure"
	}
}

// handleVoiceToText implements POST /voice-to-text: the single-step
// transcription pipeline. Nothing is persisted.
func (s *Server) handleVoiceToText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	startTime := time.Now()

	data, err := s.readAudioFile(w, r)
	if err != nil {
		if errors.Is(err, errAudioTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Audio file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}

	ctx, cancel := s.pipelineContext(r)
	defer cancel()

	result, err := s.transcribeStep(ctx, data)
	if err != nil {
		s.recordPipeline("transcribe_only", "error", time.Since(startTime).Seconds())
		writeStageError(w, http.StatusInternalServerError, err.Error(), "transcription")
		return
	}

	s.recordPipeline("transcribe_only", "ok", time.Since(startTime).Seconds())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"text":             result.Text,
		"clip_id":          result.ClipID,
		"duration_seconds": result.Duration,
	})
}

type enhanceTextRequest struct {
	Text string `json:"text"`
	Task string `json:"task"`
}

// handleEnhanceText implements POST /enhance-text: the single-step
// enhancement pipeline. Always answers 200 once input is valid; backend
// failure degrades to pass-through.
func (s *Server) handleEnhanceText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req enhanceTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}

	ctx, cancel := s.pipelineContext(r)
	defer cancel()

	startTime := time.Now()
	result := s.enhanceStep(ctx, req.Text, enhance.ParseTask(req.Task))
	s.recordPipeline("enhance_only", "ok", time.Since(startTime).Seconds())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"enhanced_text": result.Output,
	})
}

type createNoteRequest struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	Enhance      bool   `json:"enhance"`
	ParentNoteID string `json:"parent_note_id"`
}

type createNoteResponse struct {
	Success bool        `json:"success"`
	Note    *notes.Note `json:"note"`
}

// handleCreateNote implements POST /create-note: Received → Enhanced? →
// Persisted → Responded. The title is supplied by the caller, not derived.
func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.Title == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "Title and content are required")
		return
	}

	ctx, cancel := s.pipelineContext(r)
	defer cancel()

	startTime := time.Now()

	content := req.Content
	if req.Enhance {
		content = s.enhanceStep(ctx, content, enhance.TaskImprove).Output
	}

	note, err := s.persistStep(ctx, req.Title, content, req.ParentNoteID)
	if err != nil {
		s.recordPipeline("create_note", "error", time.Since(startTime).Seconds())
		writeStageError(w, http.StatusInternalServerError, err.Error(), "persistence")
		return
	}

	s.recordPipeline("create_note", "ok", time.Since(startTime).Seconds())
	writeJSON(w, http.StatusOK, createNoteResponse{Success: true, Note: note})
}

type quickNoteRequest struct {
	Content      string `json:"content"`
	Enhance      bool   `json:"enhance"`
	ParentNoteID string `json:"parent_note_id"`
}

type quickNoteResponse struct {
	Success         bool        `json:"success"`
	Title           string      `json:"title"`
	TranscribedText string      `json:"transcribed_text,omitempty"`
	Content         string      `json:"content"`
	Enhanced        bool        `json:"enhanced"`
	Note            *notes.Note `json:"note"`
}

// handleQuickNote implements POST /quick-note: voice or text capture.
// Voice: Received → Transcribed → Titled → Enhanced? → Persisted.
// Text:  Received → Titled → Enhanced? → Persisted.
// Transcription failure terminates the pipeline before any note is
// created; titles are always derived, never supplied.
func (s *Server) handleQuickNote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		s.quickNoteFromVoice(w, r)
		return
	}

	s.quickNoteFromText(w, r)
}

func (s *Server) quickNoteFromVoice(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	data, err := s.readAudioFile(w, r)
	if err != nil {
		if errors.Is(err, errAudioTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Audio file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No audio file or content provided")
		return
	}

	doEnhance, _ := strconv.ParseBool(r.FormValue("enhance"))
	parentID := r.FormValue("parent_note_id")

	ctx, cancel := s.pipelineContext(r)
	defer cancel()

	// Fail fast: no note is created from unusable input.
	transcribed, err := s.transcribeStep(ctx, data)
	if err != nil {
		s.recordPipeline("voice_quick_note", "error", time.Since(startTime).Seconds())
		writeStageError(w, http.StatusInternalServerError, err.Error(), "transcription")
		return
	}

	resp, err := s.finishQuickNote(ctx, transcribed.Text, doEnhance, parentID)
	if err != nil {
		s.recordPipeline("voice_quick_note", "error", time.Since(startTime).Seconds())
		writeStageError(w, http.StatusInternalServerError, err.Error(), "persistence")
		return
	}
	resp.TranscribedText = transcribed.Text

	s.recordPipeline("voice_quick_note", "ok", time.Since(startTime).Seconds())
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) quickNoteFromText(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var req quickNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "No audio file or content provided")
		return
	}

	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "No audio file or content provided")
		return
	}

	ctx, cancel := s.pipelineContext(r)
	defer cancel()

	resp, err := s.finishQuickNote(ctx, req.Content, req.Enhance, req.ParentNoteID)
	if err != nil {
		s.recordPipeline("text_quick_note", "error", time.Since(startTime).Seconds())
		writeStageError(w, http.StatusInternalServerError, err.Error(), "persistence")
		return
	}

	s.recordPipeline("text_quick_note", "ok", time.Since(startTime).Seconds())
	writeJSON(w, http.StatusOK, resp)
}

// finishQuickNote runs the shared tail of both quick-note pipelines:
// Titled → Enhanced? → Persisted. The title is derived from the original
// text before any enhancement. A persistence error is returned as-is so
// the handler can report which failure the store saw.
func (s *Server) finishQuickNote(ctx context.Context, text string, doEnhance bool, parentID string) (quickNoteResponse, error) {
	title := s.deriveTitle(ctx, text)

	content := text
	enhanced := false
	if doEnhance {
		result := s.enhanceStep(ctx, text, enhance.TaskImprove)
		content = result.Output
		enhanced = result.Succeeded
	}

	note, err := s.persistStep(ctx, title, content, parentID)
	if err != nil {
		s.logger.Error("Quick note persistence failed",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
		return quickNoteResponse{}, err
	}

	return quickNoteResponse{
		Success:  true,
		Title:    title,
		Content:  content,
		Enhanced: enhanced,
		Note:     note,
	}, nil
}

// handleSearch implements GET /search?q=: the stateless query pipeline.
// Backend failure surfaces distinctly so API consumers can tell "no
// matches" from "backend unavailable".
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}

	ctx, cancel := s.pipelineContext(r)
	defer cancel()

	results, err := s.noteStore.Search(ctx, query)
	s.metrics.RecordSearch(err != nil)
	if err != nil {
		writeStageError(w, http.StatusInternalServerError, err.Error(), "search")
		return
	}

	if results == nil {
		results = []notes.Note{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

type triliumAIRequest struct {
	Text   string `json:"text"`
	Task   string `json:"task"`
	NoteID string `json:"note_id"`
}

// handleTriliumAI implements POST /trilium-ai: the note-scoped alias of
// enhancement, echoing the note it applies to.
func (s *Server) handleTriliumAI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req triliumAIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}

	ctx, cancel := s.pipelineContext(r)
	defer cancel()

	task := enhance.ParseTask(req.Task)
	result := s.enhanceStep(ctx, req.Text, task)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"enhanced_text": result.Output,
		"original_text": result.Original,
		"task":          string(task),
		"note_id":       req.NoteID,
	})
}

type ollamaChatRequest struct {
	Prompt  string `json:"prompt"`
	Context string `json:"context"`
}

// handleOllamaChat implements POST /ollama-chat: free-form, context-aware
// chat. Unlike enhancement, backend failure surfaces as an error.
func (s *Server) handleOllamaChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ollamaChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	ctx, cancel := s.pipelineContext(r)
	defer cancel()

	response, err := s.enhancer.Chat(ctx, req.Prompt, req.Context)
	if err != nil {
		writeStageError(w, http.StatusInternalServerError, err.Error(), "llm")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"response": response,
		"prompt":   req.Prompt,
		"context":  req.Context,
		"model":    s.enhancer.Model(),
	})
}

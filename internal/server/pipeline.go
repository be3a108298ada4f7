package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/talknote/gateway/internal/enhance"
	"github.com/talknote/gateway/internal/notes"
)

// pipelineContext returns the context every downstream leg runs under.
// It is detached from the client connection so a disconnect mid-pipeline
// never cancels in-flight backend calls (their results are simply
// discarded), and it carries the gateway's own upper bound on total
// pipeline duration, distinct from each leg's individual timeout.
func (s *Server) pipelineContext(r *http.Request) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(r.Context())
	return context.WithTimeout(detached, s.config.Pipeline.GetTotalTimeout())
}

// enhanceStep runs one enhancement with metrics. Failures never surface:
// the result degrades to the unmodified input.
func (s *Server) enhanceStep(ctx context.Context, text string, task enhance.Task) enhance.Result {
	startTime := time.Now()
	result := s.enhancer.Enhance(ctx, text, task)
	s.metrics.RecordEnhancement(string(task), result.Succeeded, time.Since(startTime).Seconds())
	return result
}

// deriveTitle generates a note title from the ORIGINAL transcribed or
// typed text, never the enhanced text, so enhancement cannot destabilize
// the title's relationship to the user's intent. When the LLM is
// unavailable the fallback is derived deterministically from the text,
// so repeated calls on the same input yield the same title.
func (s *Server) deriveTitle(ctx context.Context, text string) string {
	result := s.enhanceStep(ctx, text, enhance.TaskTitle)
	if result.Succeeded {
		return s.truncateTitle(cleanTitle(result.Output))
	}

	return s.truncateTitle(fallbackTitle(text))
}

// truncateTitle enforces the configured maximum title length regardless
// of what the backend returned.
func (s *Server) truncateTitle(title string) string {
	maxLen := s.config.Pipeline.TitleMaxLength
	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}
	return strings.TrimSpace(string(runes[:maxLen]))
}

// cleanTitle strips quoting and line breaks LLMs tend to wrap titles in.
func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	if idx := strings.IndexAny(title, "\r\n"); idx >= 0 {
		title = title[:idx]
	}
	return strings.Trim(title, `"'`)
}

// fallbackTitle derives a placeholder title from the first line of the
// original text when title generation is unavailable.
func fallbackTitle(text string) string {
	line := strings.TrimSpace(text)
	if idx := strings.IndexAny(line, "\r\n"); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	if line == "" {
		return "Untitled note"
	}
	return line
}

// persistStep writes the note with metrics. This is the one mandatory
// side effect: failures surface unmasked, and a dispatched write is
// never cancelled.
func (s *Server) persistStep(ctx context.Context, title, content, parentID string) (*notes.Note, error) {
	note, err := s.noteStore.CreateNote(ctx, title, content, parentID)
	if err != nil {
		s.metrics.RecordNoteCreateFailure()
		return nil, err
	}

	s.metrics.RecordNoteCreated()
	return note, nil
}

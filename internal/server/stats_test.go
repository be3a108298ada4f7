package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/talknote/gateway/internal/notes"
)

func TestStats(t *testing.T) {
	enhancer := &fakeEnhancer{output: "better"}
	store := &fakeNoteStore{createErr: fmt.Errorf("%w: HTTP 500", notes.ErrRejected)}
	srv := newTestServer(&fakeTranscriber{}, enhancer, store)

	// One successful pipeline and one failed one.
	if rec := postJSON(t, srv.Handler(), "/enhance-text", `{"text":"hi"}`); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from enhance-text, got %d", rec.Code)
	}
	if rec := postJSON(t, srv.Handler(), "/create-note", `{"title":"T","content":"C"}`); rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500 from create-note, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["uptime"] == nil {
		t.Errorf("Expected uptime in stats response")
	}

	pipelines, ok := body["pipelines"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected pipelines map, got %v", body["pipelines"])
	}

	enhanceOnly, ok := pipelines["enhance_only"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected enhance_only counters, got %v", pipelines["enhance_only"])
	}
	if enhanceOnly["completed"].(float64) != 1 {
		t.Errorf("Expected 1 completed enhance_only pipeline, got %v", enhanceOnly["completed"])
	}

	createNote, ok := pipelines["create_note"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected create_note counters, got %v", pipelines["create_note"])
	}
	if createNote["failed"].(float64) != 1 {
		t.Errorf("Expected 1 failed create_note pipeline, got %v", createNote["failed"])
	}
}

func TestStatsMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&fakeTranscriber{}, &fakeEnhancer{}, &fakeNoteStore{})

	req := httptest.NewRequest(http.MethodPost, "/stats", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Expected 405, got %d", rec.Code)
	}
}

func TestPipelineStatsConcurrentRecord(t *testing.T) {
	stats := newPipelineStats()

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				stats.record("text_quick_note", "ok")
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	snap := stats.snapshot()
	if snap["text_quick_note"].Completed != 400 {
		t.Errorf("Expected 400 completions, got %d", snap["text_quick_note"].Completed)
	}
}

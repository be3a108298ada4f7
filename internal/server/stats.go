package server

import (
	"net/http"
	"sync"
	"time"
)

// pipelineCounters tracks completions for one named pipeline.
type pipelineCounters struct {
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
}

// pipelineStats accumulates per-pipeline outcome counts for /stats.
// Prometheus keeps the histograms; this is the cheap snapshot the
// endpoint can serve without scraping the registry.
type pipelineStats struct {
	mu        sync.RWMutex
	pipelines map[string]pipelineCounters
}

func newPipelineStats() *pipelineStats {
	return &pipelineStats{
		pipelines: make(map[string]pipelineCounters),
	}
}

func (p *pipelineStats) record(pipeline, outcome string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := p.pipelines[pipeline]
	if outcome == "ok" {
		c.Completed++
	} else {
		c.Failed++
	}
	p.pipelines[pipeline] = c
}

// snapshot returns a copy safe to serialize outside the lock.
func (p *pipelineStats) snapshot() map[string]pipelineCounters {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]pipelineCounters, len(p.pipelines))
	for name, c := range p.pipelines {
		out[name] = c
	}
	return out
}

// recordPipeline updates both the Prometheus metrics and the local
// counters behind /stats.
func (s *Server) recordPipeline(pipeline, outcome string, durationSeconds float64) {
	s.metrics.RecordPipeline(pipeline, outcome, durationSeconds)
	s.stats.record(pipeline, outcome)
}

// handleStats implements the /stats endpoint
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime":    time.Since(s.startTime).String(),
		"timestamp": time.Now().UTC(),
		"pipelines": s.stats.snapshot(),
	})
}

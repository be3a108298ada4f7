package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/talknote/gateway/internal/audio"
)

// Config contains transcription adapter configuration
type Config struct {
	// MaxConcurrent sets the admission gate width. The whisper.cpp engine
	// does not tolerate concurrent inference on one context, so the
	// default is a single slot; callers queue in arrival order.
	MaxConcurrent int
	Timeout       time.Duration
}

// Result is the outcome of one transcription. Immutable after creation.
type Result struct {
	Text     string  `json:"text"`
	ClipID   string  `json:"clip_id"`
	Duration float64 `json:"duration_seconds"`
}

// Adapter wraps the single loaded Model instance. It normalizes incoming
// audio, serializes engine access through the admission gate, and maps
// failures onto the transcription error taxonomy. It never retries.
type Adapter struct {
	model   Model
	loadErr error
	gate    chan struct{}
	timeout time.Duration
	logger  *slog.Logger
}

// NewAdapter wires the adapter around a loaded model. If model loading
// failed at startup, pass a nil model and the load error: every call then
// reports ErrModelUnavailable instead of crashing the gateway.
func NewAdapter(model Model, loadErr error, cfg Config, logger *slog.Logger) *Adapter {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &Adapter{
		model:   model,
		loadErr: loadErr,
		gate:    make(chan struct{}, cfg.MaxConcurrent),
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Transcribe converts an audio buffer to text. The raw bytes must be a
// decodable WAV container; decoded buffers are transient and released
// when the call returns.
func (a *Adapter) Transcribe(ctx context.Context, data []byte) (*Result, error) {
	if a.loadErr != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, a.loadErr.Error())
	}

	clip, err := audio.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecodeFailed, err.Error())
	}

	clipID := uuid.New().String()

	// Admission gate: at most MaxConcurrent in-flight inferences,
	// waiters queue in arrival order.
	select {
	case a.gate <- struct{}{}:
		defer func() { <-a.gate }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	startTime := time.Now()
	text, err := a.model.Transcribe(callCtx, clip)
	if err != nil {
		a.logger.Error("Transcription failed",
			slog.String("clip_id", clipID),
			slog.Float64("clip_seconds", clip.Duration()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %s", ErrEngineFailure, err.Error())
	}

	a.logger.Info("Clip transcribed",
		slog.String("clip_id", clipID),
		slog.Float64("clip_seconds", clip.Duration()),
		slog.Duration("elapsed", time.Since(startTime)),
		slog.Int("text_length", len(text)),
	)

	return &Result{
		Text:     text,
		ClipID:   clipID,
		Duration: clip.Duration(),
	}, nil
}

// Close releases the underlying model.
func (a *Adapter) Close() error {
	if a.model == nil {
		return nil
	}
	return a.model.Close()
}

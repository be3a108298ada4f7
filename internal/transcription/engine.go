package transcription

import (
	"context"
	"errors"

	"github.com/talknote/gateway/internal/audio"
)

// Model is the process-scoped speech-to-text engine handle. One instance
// is loaded at startup and shared by all requests for the life of the
// process; implementations are not required to be safe for concurrent
// inference (the Adapter serializes access).
type Model interface {
	// Transcribe converts a normalized audio clip to text.
	Transcribe(ctx context.Context, clip *audio.Clip) (string, error)
	// Close releases underlying engine resources.
	Close() error
}

// Sentinel errors forming the transcription failure taxonomy. None of
// them are retried internally; retry policy belongs to the caller.
var (
	// ErrModelUnavailable means the model failed to load at startup.
	// It is permanent and returned on every call without retry.
	ErrModelUnavailable = errors.New("transcription model unavailable")

	// ErrDecodeFailed means the submitted clip could not be parsed.
	ErrDecodeFailed = errors.New("audio decode failed")

	// ErrEngineFailure covers any other runtime failure from the engine.
	ErrEngineFailure = errors.New("transcription engine failure")
)

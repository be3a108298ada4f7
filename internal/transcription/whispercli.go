package transcription

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/talknote/gateway/internal/audio"
)

// WhisperCLI is a Model backed by a whisper.cpp command-line binary.
// The model weights are validated once at construction; each call writes
// the clip to a temp WAV file, runs the binary, and reads the transcript
// from stdout. Temp files are removed on every exit path.
type WhisperCLI struct {
	binaryPath string
	modelPath  string
	language   string
}

// NewWhisperCLI verifies the binary and model weights exist and returns
// the engine handle. A failure here is the permanent "model unavailable"
// condition for the life of the process.
func NewWhisperCLI(binaryPath, modelPath, language string) (*WhisperCLI, error) {
	if _, err := os.Stat(binaryPath); err != nil {
		return nil, fmt.Errorf("whisper binary not found at %s: %w", binaryPath, err)
	}

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper model not found at %s: %w", modelPath, err)
	}

	if language == "" {
		language = "auto"
	}

	return &WhisperCLI{
		binaryPath: binaryPath,
		modelPath:  modelPath,
		language:   language,
	}, nil
}

// Transcribe runs the whisper binary on the clip and returns the text.
func (w *WhisperCLI) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	wav, err := audio.Encode(clip)
	if err != nil {
		return "", fmt.Errorf("failed to encode clip for engine: %w", err)
	}

	tmpFile, err := os.CreateTemp("", "clip-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create temp audio file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(wav); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to write temp audio file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp audio file: %w", err)
	}

	args := []string{
		"-m", w.modelPath,
		"-f", tmpPath,
		"-l", w.language,
		"--no-timestamps",
	}

	cmd := exec.CommandContext(ctx, w.binaryPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("whisper binary failed: %w (stderr: %s)",
			err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}

// Close releases engine resources. The CLI engine holds none between calls.
func (w *WhisperCLI) Close() error {
	return nil
}

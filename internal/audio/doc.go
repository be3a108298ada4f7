// Package audio handles parsing and normalization of uploaded audio clips.
// It decodes 16-bit PCM WAV containers into mono float32 samples for the
// speech-to-text engine and re-encodes normalized clips when the engine
// consumes audio as a file.
package audio

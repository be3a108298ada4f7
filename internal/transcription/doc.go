// Package transcription wraps the process-scoped speech-to-text model.
// It normalizes uploaded audio, serializes engine access through a
// single-slot admission gate, and maps engine failures onto a fixed
// error taxonomy without internal retries.
package transcription

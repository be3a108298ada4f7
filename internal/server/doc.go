// Package server implements the HTTP-facing orchestrator. It composes
// the transcription adapter, enhancement client, and note store client
// into named request pipelines, owns the failure/response contract for
// each, and exposes monitoring endpoints.
package server

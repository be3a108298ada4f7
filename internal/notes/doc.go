// Package notes implements the HTTP client for the note store backend.
// It covers note creation and full-text search against a Trilium-style
// ETAPI surface. Persistence failures are surfaced, never masked.
package notes

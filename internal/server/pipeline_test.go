package server

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateTitle(t *testing.T) {
	srv := newTestServer(&fakeTranscriber{}, &fakeEnhancer{}, &fakeNoteStore{})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"short title unchanged", "Morning thoughts", "Morning thoughts"},
		{"exactly at limit unchanged", strings.Repeat("a", 100), strings.Repeat("a", 100)},
		{"over limit truncated", strings.Repeat("a", 150), strings.Repeat("a", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := srv.truncateTitle(tt.input)
			if got != tt.want {
				t.Errorf("truncateTitle(%d chars) = %d chars, want %d",
					len(tt.input), len(got), len(tt.want))
			}
		})
	}
}

func TestTruncateTitleCountsRunes(t *testing.T) {
	srv := newTestServer(&fakeTranscriber{}, &fakeEnhancer{}, &fakeNoteStore{})

	input := strings.Repeat("ü", 150)
	got := srv.truncateTitle(input)

	if utf8.RuneCountInString(got) != 100 {
		t.Errorf("Expected 100 runes, got %d", utf8.RuneCountInString(got))
	}
	if !utf8.ValidString(got) {
		t.Errorf("Truncation produced invalid UTF-8")
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain title", "Grocery list", "Grocery list"},
		{"quoted title", `"Grocery list"`, "Grocery list"},
		{"multi line keeps first", "Grocery list\nwith extra commentary", "Grocery list"},
		{"surrounding whitespace", "  Grocery list  ", "Grocery list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanTitle(tt.input); got != tt.want {
				t.Errorf("cleanTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFallbackTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"first line", "call the plumber\nabout the leak", "call the plumber"},
		{"single line", "call the plumber", "call the plumber"},
		{"whitespace only", "   \n  ", "Untitled note"},
		{"empty", "", "Untitled note"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fallbackTitle(tt.input); got != tt.want {
				t.Errorf("fallbackTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

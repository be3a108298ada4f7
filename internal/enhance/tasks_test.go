package enhance

import (
	"strings"
	"testing"
)

func TestParseTask(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Task
	}{
		{"improve", "improve", TaskImprove},
		{"summarize", "summarize", TaskSummarize},
		{"rephrase", "rephrase", TaskRephrase},
		{"expand", "expand", TaskExpand},
		{"title", "title", TaskTitle},
		{"unknown falls back to improve", "translate", TaskImprove},
		{"empty falls back to improve", "", TaskImprove},
		{"case sensitive fallback", "Improve", TaskImprove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTask(tt.input); got != tt.expected {
				t.Errorf("ParseTask(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPromptIsTotal(t *testing.T) {
	// Every task in the closed set has a template; unknown tasks produce
	// the improve template.
	for _, task := range []Task{TaskImprove, TaskSummarize, TaskRephrase, TaskExpand, TaskTitle} {
		prompt := task.Prompt("sample text")
		if !strings.Contains(prompt, "sample text") {
			t.Errorf("Prompt for %q does not embed the input text", task)
		}
	}

	unknown := Task("nonsense").Prompt("sample text")
	improve := TaskImprove.Prompt("sample text")
	if unknown != improve {
		t.Errorf("Unknown task prompt should equal improve prompt")
	}
}

package enhance

import "fmt"

// Task is one of a closed set of text-transformation intents. Each task
// binds to exactly one prompt template.
type Task string

const (
	TaskImprove   Task = "improve"
	TaskSummarize Task = "summarize"
	TaskRephrase  Task = "rephrase"
	TaskExpand    Task = "expand"
	TaskTitle     Task = "title"
)

// promptTemplates is the static, total task-to-template mapping.
var promptTemplates = map[Task]string{
	TaskImprove: "Improve the following text. Fix grammar and punctuation, keep the meaning and tone unchanged. " +
		"Return only the improved text without any commentary.\n\nText:\n%s",
	TaskSummarize: "Summarize the following text in a few concise sentences. " +
		"Return only the summary without any commentary.\n\nText:\n%s",
	TaskRephrase: "Rephrase the following text in clearer wording while preserving its meaning. " +
		"Return only the rephrased text without any commentary.\n\nText:\n%s",
	TaskExpand: "Expand the following text with relevant detail while keeping the author's intent. " +
		"Return only the expanded text without any commentary.\n\nText:\n%s",
	TaskTitle: "Generate a short descriptive title for the following note. " +
		"Return only the title itself, without quotes or commentary.\n\nNote:\n%s",
}

// ParseTask maps a task name onto the closed Task set. Unknown names fall
// back to TaskImprove; the fallback is a contract, not a lookup miss.
func ParseTask(name string) Task {
	switch Task(name) {
	case TaskImprove, TaskSummarize, TaskRephrase, TaskExpand, TaskTitle:
		return Task(name)
	default:
		return TaskImprove
	}
}

// Prompt substitutes text into the task's template.
func (t Task) Prompt(text string) string {
	template, ok := promptTemplates[t]
	if !ok {
		template = promptTemplates[TaskImprove]
	}
	return fmt.Sprintf(template, text)
}

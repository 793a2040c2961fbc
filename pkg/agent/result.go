package agent

import (
	"time"

	"github.com/zlgo/testgen-agent/pkg/event"
)

// RunResult captures the final outcome for a single agent turn.
type RunResult struct {
	Output     string        `json:"output"`
	ToolCalls  []ToolCall    `json:"tool_calls"`
	Usage      TokenUsage    `json:"usage"`
	Rounds     int           `json:"rounds"`
	StopReason string        `json:"stop_reason"`
	Events     []event.Event `json:"events"`
}

// TokenUsage holds lightweight token accounting numbers.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ToolCall records a single invocation of a registered tool.
type ToolCall struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Params   map[string]any `json:"params"`
	Output   string         `json:"output"`
	IsError  bool           `json:"is_error"`
	Duration time.Duration  `json:"duration"`
}

// Failed reports whether the tool invocation surfaced an error to the model.
func (c ToolCall) Failed() bool {
	return c.IsError
}

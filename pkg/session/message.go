package session

import "time"

// ToolCall captures an assistant-triggered tool invocation with its outcome,
// so a transcript replay shows what each round actually did.
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Output    string         `json:"output,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
}

// Message represents a single conversational turn persisted in a session.
type Message struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Filter constrains the message subset returned by Session.List.
type Filter struct {
	StartTime *time.Time
	EndTime   *time.Time
	Role      string
	Limit     int
	Offset    int
}

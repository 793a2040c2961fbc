// Package event carries the progress stream an agent run emits: tool calls,
// tool results, assistant text, errors, and the final completion.
package event

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventType 标识事件类别。
type EventType string

const (
	EventProgress   EventType = "progress"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventError      EventType = "error"
	EventCompletion EventType = "completion"
)

var errUnknownType = errors.New("event: unknown type")

// Event is one entry of the run's progress stream.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// NewEvent stamps an event with id and timestamp.
func NewEvent(eventType EventType, sessionID string, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
		Data:      data,
	}
}

// Validate rejects events of unknown type.
func (e Event) Validate() error {
	switch e.Type {
	case EventProgress, EventToolCall, EventToolResult, EventError, EventCompletion:
		return nil
	default:
		return errUnknownType
	}
}

// ProgressData is streamed assistant text.
type ProgressData struct {
	Text  string `json:"text"`
	Round int    `json:"round"`
}

// ToolCallData announces one tool invocation.
type ToolCallData struct {
	ToolUseID string         `json:"tool_use_id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolResultData reports a finished tool invocation.
type ToolResultData struct {
	ToolUseID string `json:"tool_use_id"`
	Name      string `json:"name"`
	Output    string `json:"output"`
	IsError   bool   `json:"is_error"`
}

// ErrorData carries a run-level failure.
type ErrorData struct {
	Message string `json:"message"`
}

// CompletionData closes a run.
type CompletionData struct {
	Text       string `json:"text"`
	Rounds     int    `json:"rounds"`
	ToolCalls  int    `json:"tool_calls"`
	StopReason string `json:"stop_reason,omitempty"`
}

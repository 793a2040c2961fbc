package agent

import (
	"context"

	"github.com/zlgo/testgen-agent/pkg/event"
	"github.com/zlgo/testgen-agent/pkg/tool"
)

// Agent is the runtime surface callers drive: one user input in, a full
// multi-round tool conversation out.
type Agent interface {
	// Run executes a turn to completion and returns the collected result.
	Run(ctx context.Context, input string) (*RunResult, error)

	// RunStream executes a turn while emitting progress events on the
	// returned channel. The channel closes when the turn ends.
	RunStream(ctx context.Context, input string) (<-chan event.Event, error)

	// AddTool registers a tool the model may invoke during execution.
	AddTool(tool tool.Tool) error

	// WithHook returns a shallow copy of the agent with an extra hook.
	WithHook(hook Hook) Agent
}

// Hook intercepts turn and tool-call boundaries. Returning an error from a
// Pre hook aborts the guarded operation.
type Hook interface {
	PreRun(ctx context.Context, input string) error
	PostRun(ctx context.Context, result *RunResult) error
	PreToolCall(ctx context.Context, toolName string, params map[string]any) error
	PostToolCall(ctx context.Context, toolName string, call ToolCall) error
}

// NopHook offers a convenient zero-cost implementation for optional methods.
type NopHook struct{}

func (NopHook) PreRun(context.Context, string) error                      { return nil }
func (NopHook) PostRun(context.Context, *RunResult) error                 { return nil }
func (NopHook) PreToolCall(context.Context, string, map[string]any) error { return nil }
func (NopHook) PostToolCall(context.Context, string, ToolCall) error      { return nil }

package toolbuiltin

import (
	"context"
	"errors"
	"fmt"

	"github.com/zlgo/testgen-agent/pkg/todo"
	"github.com/zlgo/testgen-agent/pkg/tool"
)

const todoWriteDescription = `Update the shared todo list for the current session.

The list is replaced wholesale on every call, so always send the complete
list. Keep at most one item in_progress: mark an item in_progress before
starting it and completed immediately after finishing it. Each item needs
content (imperative form), activeForm (present continuous form), and status.`

var todoWriteSchema = tool.ObjectSchema(map[string]interface{}{
	"todos": map[string]interface{}{
		"type":        "array",
		"description": "The complete, updated todo list.",
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type": "string",
				},
				"content": map[string]interface{}{
					"type":      "string",
					"minLength": 1,
				},
				"status": map[string]interface{}{
					"type": "string",
					"enum": []string{"pending", "in_progress", "completed"},
				},
				"activeForm": map[string]interface{}{
					"type":      "string",
					"minLength": 1,
				},
			},
			"required": []string{"content", "status", "activeForm"},
		},
	},
}, "todos")

// TodoWriteTool replaces the shared todo board with a new list.
type TodoWriteTool struct {
	board *todo.Board

	// onWrite fires after a successful update; the agent loop uses it to
	// reset its reminder counter.
	onWrite func()
}

// NewTodoWriteTool wires the tool to a shared board.
func NewTodoWriteTool(board *todo.Board) *TodoWriteTool {
	return &TodoWriteTool{board: board}
}

// OnWrite registers a callback invoked after each successful update.
func (t *TodoWriteTool) OnWrite(fn func()) { t.onWrite = fn }

// Board exposes the underlying board (used by the console renderer).
func (t *TodoWriteTool) Board() *todo.Board { return t.board }

func (t *TodoWriteTool) Name() string { return "todo_write" }

func (t *TodoWriteTool) Description() string { return todoWriteDescription }

func (t *TodoWriteTool) Schema() *tool.JSONSchema { return todoWriteSchema }

func (t *TodoWriteTool) Execute(ctx context.Context, params map[string]interface{}) (*tool.ToolResult, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if t == nil || t.board == nil {
		return nil, errors.New("todo tool is not initialised")
	}

	items, err := parseTodoParams(params)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	view, err := t.board.Update(items)
	if err != nil {
		return tool.Failf("todo update rejected: %v", err), nil
	}
	if t.onWrite != nil {
		t.onWrite()
	}

	stats := t.board.Stats()
	summary := "No todos have been created."
	if stats.Total > 0 {
		summary = fmt.Sprintf("Status updated: %d completed, %d in progress.", stats.Completed, stats.InProgress)
	}

	return &tool.ToolResult{
		Success: true,
		Output:  view + "\n\n" + summary,
		Data: map[string]interface{}{
			"total":       stats.Total,
			"completed":   stats.Completed,
			"in_progress": stats.InProgress,
			"revision":    t.board.Revision(),
		},
	}, nil
}

func parseTodoParams(params map[string]interface{}) ([]map[string]any, error) {
	if params == nil {
		return nil, errors.New("params is nil")
	}
	raw, ok := params["todos"]
	if !ok {
		return nil, errors.New("todos is required")
	}
	list, ok := raw.([]interface{})
	if !ok {
		if arr, ok := raw.([]map[string]interface{}); ok {
			items := make([]map[string]any, len(arr))
			copy(items, arr)
			return items, nil
		}
		return nil, fmt.Errorf("todos must be an array, got %T", raw)
	}
	items := make([]map[string]any, len(list))
	for i, entry := range list {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("todos[%d] must be object, got %T", i, entry)
		}
		items[i] = obj
	}
	return items, nil
}

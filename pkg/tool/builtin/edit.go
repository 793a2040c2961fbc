package toolbuiltin

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/zlgo/testgen-agent/pkg/tool"
	"github.com/zlgo/testgen-agent/pkg/workspace"
)

var editTextSchema = tool.ObjectSchema(map[string]interface{}{
	"path": map[string]interface{}{
		"type":        "string",
		"description": "Path relative to the workspace root.",
	},
	"action": map[string]interface{}{
		"type":        "string",
		"description": "One of: replace, insert, delete_range.",
	},
	"find": map[string]interface{}{
		"type":        "string",
		"description": "Text to search for when action is replace.",
	},
	"replace": map[string]interface{}{
		"type":        "string",
		"description": "Replacement text for action replace; empty deletes matches.",
	},
	"insert_after": map[string]interface{}{
		"type":        "integer",
		"description": "0-based line index to insert after; -1 prepends.",
	},
	"new_text": map[string]interface{}{
		"type":        "string",
		"description": "Line inserted when action is insert.",
	},
	"range_start": map[string]interface{}{
		"type":        "integer",
		"description": "Inclusive 0-based start line for delete_range.",
	},
	"range_end": map[string]interface{}{
		"type":        "integer",
		"description": "Exclusive 0-based end line for delete_range.",
	},
}, "path", "action")

// EditTextTool applies small, precise edits to text files in the workspace.
type EditTextTool struct {
	ws *workspace.Workspace
}

func NewEditTextTool(ws *workspace.Workspace) *EditTextTool { return &EditTextTool{ws: ws} }

func (t *EditTextTool) Name() string { return "edit_text" }

func (t *EditTextTool) Description() string {
	return "Apply a precise edit to a text file: replace a substring, insert a line, or delete a line range."
}

func (t *EditTextTool) Schema() *tool.JSONSchema { return editTextSchema }

func (t *EditTextTool) Execute(ctx context.Context, params map[string]interface{}) (*tool.ToolResult, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	path, err := requiredString(params, "path")
	if err != nil {
		return nil, err
	}
	action, err := requiredString(params, "action")
	if err != nil {
		return nil, err
	}

	target, err := t.ws.Resolve(path)
	if err != nil {
		return tool.Failf("resolve %s: %v", path, err), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return tool.Failf("read %s: %v", path, err), nil
	}
	text := string(data)

	switch action {
	case "replace":
		return t.replace(target, text, params)
	case "insert":
		return t.insert(target, text, params)
	case "delete_range":
		return t.deleteRange(target, text, params)
	default:
		return tool.Failf("unsupported edit action %q", action), nil
	}
}

func (t *EditTextTool) replace(target, text string, params map[string]interface{}) (*tool.ToolResult, error) {
	find, err := optionalString(params, "find", "")
	if err != nil {
		return nil, err
	}
	if find == "" {
		return tool.Failf("replace requires find"), nil
	}
	repl, err := optionalString(params, "replace", "")
	if err != nil {
		return nil, err
	}
	updated := strings.ReplaceAll(text, find, repl)
	if err := os.WriteFile(target, []byte(updated), 0o644); err != nil {
		return tool.Failf("write %s: %v", t.ws.Rel(target), err), nil
	}
	return tool.Text("replace done (" + strconv.Itoa(len(updated)) + " bytes)"), nil
}

func (t *EditTextTool) insert(target, text string, params map[string]interface{}) (*tool.ToolResult, error) {
	after := -1
	if v, ok, err := optionalInt(params, "insert_after"); err != nil {
		return nil, err
	} else if ok {
		after = v
	}
	newText, err := optionalString(params, "new_text", "")
	if err != nil {
		return nil, err
	}

	rows := strings.Split(text, "\n")
	idx := after
	if idx < -1 {
		idx = -1
	}
	if idx > len(rows)-1 {
		idx = len(rows) - 1
	}
	updated := make([]string, 0, len(rows)+1)
	updated = append(updated, rows[:idx+1]...)
	updated = append(updated, newText)
	updated = append(updated, rows[idx+1:]...)

	if err := os.WriteFile(target, []byte(strings.Join(updated, "\n")), 0o644); err != nil {
		return tool.Failf("write %s: %v", t.ws.Rel(target), err), nil
	}
	return tool.Text("inserted after line " + strconv.Itoa(after)), nil
}

func (t *EditTextTool) deleteRange(target, text string, params map[string]interface{}) (*tool.ToolResult, error) {
	start, okStart, err := optionalInt(params, "range_start")
	if err != nil {
		return nil, err
	}
	end, okEnd, err := optionalInt(params, "range_end")
	if err != nil {
		return nil, err
	}
	if !okStart || !okEnd || end < start || start < 0 {
		return tool.Failf("delete_range requires 0 <= range_start <= range_end"), nil
	}

	rows := strings.Split(text, "\n")
	if start > len(rows) {
		start = len(rows)
	}
	if end > len(rows) {
		end = len(rows)
	}
	updated := append(append([]string{}, rows[:start]...), rows[end:]...)

	if err := os.WriteFile(target, []byte(strings.Join(updated, "\n")), 0o644); err != nil {
		return tool.Failf("write %s: %v", t.ws.Rel(target), err), nil
	}
	return tool.Text("deleted lines [" + strconv.Itoa(start) + ", " + strconv.Itoa(end) + ")"), nil
}


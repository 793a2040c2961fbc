package toolbuiltin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zlgo/testgen-agent/pkg/textutil"
	"github.com/zlgo/testgen-agent/pkg/tool"
	"github.com/zlgo/testgen-agent/pkg/workspace"
)

const defaultReadMaxChars = 100000

var readFileSchema = tool.ObjectSchema(map[string]interface{}{
	"path": map[string]interface{}{
		"type":        "string",
		"description": "Path relative to the workspace root.",
	},
	"start_line": map[string]interface{}{
		"type":        "integer",
		"description": "First line to include, 1-based.",
	},
	"end_line": map[string]interface{}{
		"type":        "integer",
		"description": "Last line to include; negative means end of file.",
	},
	"max_chars": map[string]interface{}{
		"type":        "integer",
		"description": "Truncate the result beyond this many characters.",
	},
}, "path")

// ReadFileTool reads UTF-8 text files from the workspace.
type ReadFileTool struct {
	ws *workspace.Workspace
}

func NewReadFileTool(ws *workspace.Workspace) *ReadFileTool { return &ReadFileTool{ws: ws} }

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Read a UTF-8 text file within the workspace, optionally sliced by line range."
}

func (t *ReadFileTool) Schema() *tool.JSONSchema { return readFileSchema }

func (t *ReadFileTool) Execute(ctx context.Context, params map[string]interface{}) (*tool.ToolResult, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	path, err := requiredString(params, "path")
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
	lines := strings.Split(string(data), "\n")

	start := 0
	if v, ok, err := optionalInt(params, "start_line"); err != nil {
		return nil, err
	} else if ok && v > 1 {
		start = v - 1
	}
	end := len(lines)
	if v, ok, err := optionalInt(params, "end_line"); err != nil {
		return nil, err
	} else if ok && v >= 0 {
		end = v
	}
	if start > len(lines) {
		start = len(lines)
	}
	if end < start {
		end = start
	}
	if end > len(lines) {
		end = len(lines)
	}

	maxChars := defaultReadMaxChars
	if v, ok, err := optionalInt(params, "max_chars"); err != nil {
		return nil, err
	} else if ok && v > 0 {
		maxChars = v
	}

	return tool.Text(textutil.Clamp(strings.Join(lines[start:end], "\n"), maxChars)), nil
}

var writeFileSchema = tool.ObjectSchema(map[string]interface{}{
	"path": map[string]interface{}{
		"type":        "string",
		"description": "Path relative to the workspace root.",
	},
	"content": map[string]interface{}{
		"type":        "string",
		"description": "Text written to the file.",
	},
	"mode": map[string]interface{}{
		"type":        "string",
		"description": "overwrite (default) or append.",
	},
}, "path", "content")

// WriteFileTool creates or overwrites UTF-8 text files in the workspace.
type WriteFileTool struct {
	ws *workspace.Workspace
}

func NewWriteFileTool(ws *workspace.Workspace) *WriteFileTool { return &WriteFileTool{ws: ws} }

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Description() string {
	return "Create or overwrite a UTF-8 text file; parent directories are created. Set mode=append to extend an existing file."
}

func (t *WriteFileTool) Schema() *tool.JSONSchema { return writeFileSchema }

func (t *WriteFileTool) Execute(ctx context.Context, params map[string]interface{}) (*tool.ToolResult, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	path, err := requiredString(params, "path")
	if err != nil {
		return nil, err
	}
	raw, ok := params["content"]
	if !ok {
		return nil, errors.New("content is required")
	}
	content, err := coerceString(raw)
	if err != nil {
		return nil, fmt.Errorf("content must be string: %w", err)
	}
	mode, err := optionalString(params, "mode", "overwrite")
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

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return tool.Failf("ensure directory for %s: %v", path, err), nil
	}

	switch mode {
	case "append":
		f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return tool.Failf("open %s for append: %v", path, err), nil
		}
		_, err = f.WriteString(content)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return tool.Failf("append %s: %v", path, err), nil
		}
	case "overwrite", "":
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			return tool.Failf("write %s: %v", path, err), nil
		}
	default:
		return tool.Failf("unsupported write mode %q", mode), nil
	}

	return &tool.ToolResult{
		Success: true,
		Output:  fmt.Sprintf("wrote %d bytes to %s", len(content), t.ws.Rel(target)),
		Data: map[string]interface{}{
			"path": t.ws.Rel(target),
			"size": len(content),
			"mode": mode,
		},
	}, nil
}

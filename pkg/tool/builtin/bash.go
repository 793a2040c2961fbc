package toolbuiltin

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/zlgo/testgen-agent/pkg/textutil"
	"github.com/zlgo/testgen-agent/pkg/tool"
	"github.com/zlgo/testgen-agent/pkg/workspace"
)

// Commands containing any of these substrings are refused outright.
var blockedCommandTokens = []string{"rm -rf /", "shutdown", "reboot", "sudo "}

var bashSchema = tool.ObjectSchema(map[string]interface{}{
	"command": map[string]interface{}{
		"type":        "string",
		"description": "Shell command executed inside the project workspace.",
	},
	"timeout_ms": map[string]interface{}{
		"type":        "integer",
		"description": "Optional timeout in milliseconds for this invocation.",
	},
}, "command")

// BashTool executes shell commands with the workspace as working directory.
type BashTool struct {
	ws             *workspace.Workspace
	defaultTimeout time.Duration
	maxResultChars int
}

// NewBashTool builds a bash tool rooted at ws.
func NewBashTool(ws *workspace.Workspace, defaultTimeout time.Duration, maxResultChars int) *BashTool {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	return &BashTool{ws: ws, defaultTimeout: defaultTimeout, maxResultChars: maxResultChars}
}

func (b *BashTool) Name() string { return "bash" }

func (b *BashTool) Description() string {
	return "Execute a shell command inside the project workspace. stdout and stderr are merged; long output is truncated."
}

func (b *BashTool) Schema() *tool.JSONSchema { return bashSchema }

func (b *BashTool) Execute(ctx context.Context, params map[string]interface{}) (*tool.ToolResult, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if b == nil || b.ws == nil {
		return nil, errors.New("bash tool is not initialised")
	}

	command, err := requiredString(params, "command")
	if err != nil {
		return nil, err
	}
	for _, token := range blockedCommandTokens {
		if strings.Contains(command, token) {
			return tool.Failf("blocked dangerous command"), nil
		}
	}

	timeout := b.defaultTimeout
	if ms, ok, err := optionalInt(params, "timeout_ms"); err != nil {
		return nil, err
	} else if ok && ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = b.ws.Root()
	raw, runErr := cmd.CombinedOutput()

	output := strings.TrimSpace(string(raw))
	if output == "" {
		output = "(no output)"
	}
	output = textutil.Clamp(output, b.maxResultChars)

	if runCtx.Err() == context.DeadlineExceeded {
		return tool.Failf("command timed out after %s", timeout), nil
	}
	if runErr != nil {
		return &tool.ToolResult{
			Success: false,
			Output:  fmt.Sprintf("%s\n(exit: %v)", output, runErr),
			Error:   runErr,
		}, nil
	}

	return &tool.ToolResult{
		Success: true,
		Output:  output,
		Data:    map[string]interface{}{"command": command},
	}, nil
}

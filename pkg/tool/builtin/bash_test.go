package toolbuiltin

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/zlgo/testgen-agent/pkg/workspace"
)

func newTestWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	return ws
}

func TestBashRunsInWorkspace(t *testing.T) {
	ws := newTestWorkspace(t)
	bash := NewBashTool(ws, 5*time.Second, 0)

	res, err := bash.Execute(context.Background(), map[string]interface{}{"command": "pwd"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(res.Output, ws.Root()) {
		t.Fatalf("pwd output %q not under %q", res.Output, ws.Root())
	}
}

func TestBashBlocksDangerousCommands(t *testing.T) {
	ws := newTestWorkspace(t)
	bash := NewBashTool(ws, 5*time.Second, 0)

	for _, command := range []string{"rm -rf / --no-preserve-root", "sudo whoami", "shutdown -h now", "reboot"} {
		res, err := bash.Execute(context.Background(), map[string]interface{}{"command": command})
		if err != nil {
			t.Fatalf("execute %q: %v", command, err)
		}
		if res.Success {
			t.Fatalf("command %q must be blocked", command)
		}
		if !strings.Contains(res.Output, "blocked") {
			t.Fatalf("output = %q", res.Output)
		}
	}
}

func TestBashReportsFailure(t *testing.T) {
	ws := newTestWorkspace(t)
	bash := NewBashTool(ws, 5*time.Second, 0)

	res, err := bash.Execute(context.Background(), map[string]interface{}{"command": "echo oops >&2; exit 3"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure result")
	}
	if !strings.Contains(res.Output, "oops") || !strings.Contains(res.Output, "exit") {
		t.Fatalf("output = %q", res.Output)
	}
}

func TestBashTimeout(t *testing.T) {
	ws := newTestWorkspace(t)
	bash := NewBashTool(ws, time.Minute, 0)

	res, err := bash.Execute(context.Background(), map[string]interface{}{
		"command":    "sleep 5",
		"timeout_ms": 50,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Success || !strings.Contains(res.Output, "timed out") {
		t.Fatalf("result = %+v", res)
	}
}

func TestBashClampsOutput(t *testing.T) {
	ws := newTestWorkspace(t)
	bash := NewBashTool(ws, 5*time.Second, 64)

	res, err := bash.Execute(context.Background(), map[string]interface{}{
		"command": "yes x | head -n 200",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(res.Output, "truncated") {
		t.Fatalf("expected truncation marker, got %q", res.Output)
	}
}

func TestBashEmptyCommandRejected(t *testing.T) {
	ws := newTestWorkspace(t)
	bash := NewBashTool(ws, 5*time.Second, 0)

	if _, err := bash.Execute(context.Background(), map[string]interface{}{"command": "  "}); err == nil {
		t.Fatal("expected error for empty command")
	}
}

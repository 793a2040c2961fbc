package session

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestDirBackendRoundTrip(t *testing.T) {
	backend, err := NewDirBackend(filepath.Join(t.TempDir(), ".agent_sessions"))
	if err != nil {
		t.Fatalf("backend: %v", err)
	}

	sess := newTestSession(t)
	if err := sess.Append(Message{Role: "user", Content: "生成测试用例"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := sess.Append(Message{
		Role:    "assistant",
		Content: "开始初始化",
		ToolCalls: []ToolCall{{
			ID:        "toolu_01",
			Name:      "initialize_test_gen",
			Arguments: map[string]any{"json_data": "{}"},
			Output:    "failed to initialize",
			IsError:   true,
		}},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := Persist(sess, backend); err != nil {
		t.Fatalf("persist: %v", err)
	}

	ids, err := backend.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 || ids[0] != "gen" {
		t.Fatalf("ids = %v", ids)
	}

	restored, err := Restore(backend, "gen")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	msgs, err := restored.List(Filter{})
	if err != nil {
		t.Fatalf("restored list: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %d", len(msgs))
	}
	if len(msgs[1].ToolCalls) != 1 || !msgs[1].ToolCalls[0].IsError {
		t.Fatalf("tool calls = %+v", msgs[1].ToolCalls)
	}
}

func TestRestoreMissingTranscript(t *testing.T) {
	backend, err := NewDirBackend(t.TempDir())
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	if _, err := Restore(backend, "nope"); !errors.Is(err, ErrTranscriptNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestDirBackendDeleteIdempotent(t *testing.T) {
	backend, err := NewDirBackend(t.TempDir())
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	if err := backend.Write("a", []byte("{}")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := backend.Delete("a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := backend.Delete("a"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestDirBackendRejectsEmptyName(t *testing.T) {
	backend, err := NewDirBackend(t.TempDir())
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	if err := backend.Write("  ", []byte("{}")); !errors.Is(err, ErrInvalidSessionID) {
		t.Fatalf("err = %v", err)
	}
}

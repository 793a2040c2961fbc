package todo

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func item(id, content, status string) map[string]any {
	return map[string]any{"id": id, "content": content, "status": status, "activeForm": "working"}
}

func TestBoardUpdate(t *testing.T) {
	tests := []struct {
		name    string
		items   []map[string]any
		wantErr error
		check   func(t *testing.T, b *Board)
	}{
		{
			name:  "valid list replaces board",
			items: []map[string]any{item("1", "read input", "completed"), item("2", "generate cases", "in_progress")},
			check: func(t *testing.T, b *Board) {
				t.Helper()
				snap := b.Snapshot()
				if len(snap) != 2 {
					t.Fatalf("snapshot len = %d", len(snap))
				}
				stats := b.Stats()
				if stats.Total != 2 || stats.Completed != 1 || stats.InProgress != 1 {
					t.Fatalf("stats = %+v", stats)
				}
			},
		},
		{
			name:  "missing id defaults to index",
			items: []map[string]any{{"content": "a", "status": "pending", "activeForm": "f"}},
			check: func(t *testing.T, b *Board) {
				t.Helper()
				if got := b.Snapshot()[0].ID; got != "1" {
					t.Fatalf("id = %q", got)
				}
			},
		},
		{
			name:  "numeric id coerced",
			items: []map[string]any{{"id": float64(7), "content": "a", "status": "pending", "activeForm": "f"}},
			check: func(t *testing.T, b *Board) {
				t.Helper()
				if got := b.Snapshot()[0].ID; got != "7" {
					t.Fatalf("id = %q", got)
				}
			},
		},
		{
			name:    "duplicate ids rejected",
			items:   []map[string]any{item("1", "a", "pending"), item("1", "b", "pending")},
			wantErr: ErrDuplicateID,
		},
		{
			name:    "second in_progress rejected",
			items:   []map[string]any{item("1", "a", "in_progress"), item("2", "b", "in_progress")},
			wantErr: ErrMultipleInProgress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBoard()
			_, err := b.Update(tt.items)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if tt.check != nil {
				tt.check(t, b)
			}
		})
	}
}

func TestBoardUpdateRejectsEmptyContent(t *testing.T) {
	b := NewBoard()
	if _, err := b.Update([]map[string]any{{"id": "1", "content": "  ", "status": "pending", "activeForm": "f"}}); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestBoardUpdateRejectsEmptyActiveForm(t *testing.T) {
	b := NewBoard()
	if _, err := b.Update([]map[string]any{{"id": "1", "content": "x", "status": "pending"}}); err == nil {
		t.Fatal("expected error for empty activeForm")
	}
}

func TestBoardUpdateRejectsUnknownStatus(t *testing.T) {
	b := NewBoard()
	if _, err := b.Update([]map[string]any{item("1", "x", "blocked")}); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestBoardUpdateCapsItems(t *testing.T) {
	items := make([]map[string]any, MaxItems+1)
	for i := range items {
		items[i] = item(fmt.Sprintf("%d", i+1), "task", "pending")
	}
	b := NewBoard()
	if _, err := b.Update(items); !errors.Is(err, ErrTooManyItems) {
		t.Fatalf("expected ErrTooManyItems, got %v", err)
	}
}

func TestBoardFailedUpdateKeepsItems(t *testing.T) {
	b := NewBoard()
	if _, err := b.Update([]map[string]any{item("1", "keep me", "pending")}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := b.Update([]map[string]any{item("1", "a", "in_progress"), item("2", "b", "in_progress")}); err == nil {
		t.Fatal("expected error")
	}
	snap := b.Snapshot()
	if len(snap) != 1 || snap[0].Content != "keep me" {
		t.Fatalf("board mutated by failed update: %+v", snap)
	}
	if b.Revision() != 1 {
		t.Fatalf("revision = %d", b.Revision())
	}
}

func TestBoardRender(t *testing.T) {
	b := NewBoard()
	if got := b.Render(); !strings.Contains(got, "No todos yet") {
		t.Fatalf("empty render = %q", got)
	}
	if _, err := b.Update([]map[string]any{item("1", "done task", "completed"), item("2", "open task", "pending")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got := b.Render()
	if !strings.Contains(got, "☒ done task") {
		t.Fatalf("expected checked mark, got %q", got)
	}
	if !strings.Contains(got, "☐ open task") {
		t.Fatalf("expected unchecked mark, got %q", got)
	}
}

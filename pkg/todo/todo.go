// Package todo maintains the shared todo board the agent plans with.
package todo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/zlgo/testgen-agent/pkg/config"
)

// MaxItems caps the board size; the model is expected to keep plans short.
const MaxItems = 20

var (
	// ErrTooManyItems reports a board update beyond MaxItems entries.
	ErrTooManyItems = errors.New("todo: list is limited to 20 items")
	// ErrDuplicateID reports two items sharing an id within one update.
	ErrDuplicateID = errors.New("todo: duplicate id")
	// ErrMultipleInProgress reports more than one in_progress item.
	ErrMultipleInProgress = errors.New("todo: only one task can be in_progress at a time")
)

var (
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	progressStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#78C8FF"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#228B22")).Strikethrough(true)
)

// Item is a single tracked task.
type Item struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Status     string `json:"status"`
	ActiveForm string `json:"activeForm"`
}

// Stats summarises board progress.
type Stats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
}

// Board holds the todo list shared across one agent session. The list is
// replaced wholesale on every update; there is no per-item mutation.
type Board struct {
	mu       sync.RWMutex
	items    []Item
	revision uint64
}

// NewBoard returns an empty board.
func NewBoard() *Board { return &Board{} }

// Update validates raw items and, when every invariant holds, replaces the
// board contents. It returns the rendered board view.
func (b *Board) Update(raw []map[string]any) (string, error) {
	cleaned := make([]Item, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	inProgress := 0

	for index, entry := range raw {
		if len(cleaned) >= MaxItems {
			return "", ErrTooManyItems
		}

		id := strings.TrimSpace(stringField(entry, "id"))
		if id == "" {
			id = strconv.Itoa(index + 1)
		}
		if _, dup := seen[id]; dup {
			return "", fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		seen[id] = struct{}{}

		content := strings.TrimSpace(stringField(entry, "content"))
		if content == "" {
			return "", fmt.Errorf("todo: item %s content cannot be empty", id)
		}

		status := strings.ToLower(strings.TrimSpace(stringField(entry, "status")))
		if status == "" {
			status = config.TodoStatuses[0]
		}
		if !config.ValidStatus(status) {
			return "", fmt.Errorf("todo: status must be one of %s", strings.Join(config.TodoStatuses[:], ", "))
		}
		if status == "in_progress" {
			inProgress++
		}

		activeForm := strings.TrimSpace(stringField(entry, "activeForm"))
		if activeForm == "" {
			return "", fmt.Errorf("todo: item %s activeForm cannot be empty", id)
		}

		cleaned = append(cleaned, Item{ID: id, Content: content, Status: status, ActiveForm: activeForm})
	}

	if inProgress > 1 {
		return "", ErrMultipleInProgress
	}

	b.mu.Lock()
	b.items = cleaned
	b.revision++
	b.mu.Unlock()

	return b.Render(), nil
}

// Render draws the checkbox board, one line per item.
func (b *Board) Render() string {
	b.mu.RLock()
	items := b.items
	b.mu.RUnlock()

	if len(items) == 0 {
		return pendingStyle.Render("☐ No todos yet")
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		mark := "☐"
		style := pendingStyle
		switch item.Status {
		case "completed":
			mark = "☒"
			style = completedStyle
		case "in_progress":
			style = progressStyle
		}
		lines = append(lines, style.Render(mark+" "+item.Content))
	}
	return strings.Join(lines, "\n")
}

// Stats counts items per status.
func (b *Board) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := Stats{Total: len(b.items)}
	for _, item := range b.items {
		switch item.Status {
		case "completed":
			s.Completed++
		case "in_progress":
			s.InProgress++
		}
	}
	return s
}

// Snapshot returns a copy of the current items.
func (b *Board) Snapshot() []Item {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.items) == 0 {
		return nil
	}
	dup := make([]Item, len(b.items))
	copy(dup, b.items)
	return dup
}

// Revision returns the number of successful updates so far.
func (b *Board) Revision() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

func stringField(entry map[string]any, key string) string {
	raw, ok := entry[key]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case float64:
		// JSON numbers arrive as float64; ids are commonly numeric.
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

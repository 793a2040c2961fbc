package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathEscapes reports an attempted file access outside the workspace root.
var ErrPathEscapes = errors.New("workspace: path escapes workspace")

// Workspace confines all file operations to a single root directory.
type Workspace struct {
	root string
}

// New validates root and returns a Workspace anchored there.
func New(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}
	return &Workspace{root: abs}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// Resolve joins path against the root and rejects any result that would
// land outside it. Absolute paths are accepted only when already inside.
func (w *Workspace) Resolve(path string) (string, error) {
	candidate := strings.TrimSpace(path)
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(w.root, candidate)
	}
	candidate = filepath.Clean(candidate)
	rel, err := filepath.Rel(w.root, candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, path)
	}
	return candidate, nil
}

// Rel rewrites an absolute path inside the workspace as root-relative for
// display. Paths outside the root are returned unchanged.
func (w *Workspace) Rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

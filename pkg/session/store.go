package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Backend defines the minimal persistence operations sessions require.
type Backend interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	List() ([]string, error)
	Delete(name string) error
}

// ErrTranscriptNotFound reports a restore for an id never persisted.
var ErrTranscriptNotFound = errors.New("session: transcript not found")

const transcriptExt = ".session.json"

// DirBackend stores one JSON transcript per session id inside a directory,
// typically <workspace>/.agent_sessions.
type DirBackend struct {
	dir string
}

// NewDirBackend ensures the directory exists and returns the backend.
func NewDirBackend(dir string) (*DirBackend, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("session: backend dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &DirBackend{dir: dir}, nil
}

func (b *DirBackend) path(name string) (string, error) {
	cleaned := filepath.Base(strings.TrimSpace(name))
	if cleaned == "" || cleaned == "." || cleaned == string(filepath.Separator) {
		return "", ErrInvalidSessionID
	}
	return filepath.Join(b.dir, cleaned+transcriptExt), nil
}

func (b *DirBackend) Read(name string) ([]byte, error) {
	p, err := b.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTranscriptNotFound, name)
	}
	return data, err
}

func (b *DirBackend) Write(name string, data []byte) error {
	p, err := b.path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (b *DirBackend) List() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), transcriptExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), transcriptExt))
	}
	sort.Strings(ids)
	return ids, nil
}

func (b *DirBackend) Delete(name string) error {
	p, err := b.path(name)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

var _ Backend = (*DirBackend)(nil)

// transcriptDocument is the persisted shape.
type transcriptDocument struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

// Persist writes the session transcript through the backend.
func Persist(s Session, backend Backend) error {
	if s == nil || backend == nil {
		return errors.New("session: persist requires session and backend")
	}
	messages, err := s.List(Filter{})
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(transcriptDocument{ID: s.ID(), Messages: messages}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	return backend.Write(s.ID(), data)
}

// Restore loads a persisted transcript into a fresh MemorySession.
func Restore(backend Backend, id string) (*MemorySession, error) {
	if backend == nil {
		return nil, errors.New("session: backend is required")
	}
	data, err := backend.Read(id)
	if err != nil {
		return nil, err
	}
	var doc transcriptDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}

	s, err := NewMemorySession(id)
	if err != nil {
		return nil, err
	}
	for _, msg := range doc.Messages {
		if err := s.Append(msg); err != nil {
			return nil, err
		}
	}
	return s, nil
}

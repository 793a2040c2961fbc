package session

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemorySession persists state in-process; one per CLI run.
type MemorySession struct {
	id          string
	mu          sync.RWMutex
	messages    []Message
	checkpoints map[string][]Message
	seq         uint64
	closed      bool
	now         func() time.Time
}

func NewMemorySession(id string) (*MemorySession, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidSessionID
	}
	return &MemorySession{
		id:          id,
		checkpoints: make(map[string][]Message),
		now:         time.Now,
	}, nil
}

func (s *MemorySession) ID() string { return s.id }

// Append adds msg to the transcript, filling in a sequential ID and a UTC
// timestamp when absent. Tool calls are deep-copied so the caller's slice
// stays independent.
func (s *MemorySession) Append(msg Message) error {
	if strings.TrimSpace(msg.Role) == "" {
		return fmt.Errorf("%w: role is required", ErrInvalidMessage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	s.seq++
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("%s-%06d", s.id, s.seq)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	msg.Timestamp = msg.Timestamp.UTC()
	msg.ToolCalls = copyToolCalls(msg.ToolCalls)
	s.messages = append(s.messages, msg)
	return nil
}

// List returns copies of the messages matching filter, oldest first.
func (s *MemorySession) List(filter Filter) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	role := strings.TrimSpace(filter.Role)
	remaining := max(filter.Offset, 0)

	var out []Message
	for _, msg := range s.messages {
		if role != "" && msg.Role != role {
			continue
		}
		if filter.StartTime != nil && msg.Timestamp.Before(filter.StartTime.UTC()) {
			continue
		}
		if filter.EndTime != nil && msg.Timestamp.After(filter.EndTime.UTC()) {
			continue
		}
		if remaining > 0 {
			remaining--
			continue
		}
		out = append(out, copyMessage(msg))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Checkpoint snapshots the transcript under name, overwriting any previous
// snapshot with that name.
func (s *MemorySession) Checkpoint(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidCheckpointName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.checkpoints[name] = copyMessages(s.messages)
	return nil
}

// Resume replaces the transcript with the named snapshot.
func (s *MemorySession) Resume(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidCheckpointName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	snapshot, ok := s.checkpoints[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCheckpointNotFound, name)
	}
	s.messages = copyMessages(snapshot)
	return nil
}

// Fork clones the transcript and checkpoints into a new session with its
// own id. Later appends on either side do not affect the other.
func (s *MemorySession) Fork(id string) (Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidSessionID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	checkpoints := make(map[string][]Message, len(s.checkpoints))
	for name, msgs := range s.checkpoints {
		checkpoints[name] = copyMessages(msgs)
	}
	return &MemorySession{
		id:          id,
		messages:    copyMessages(s.messages),
		checkpoints: checkpoints,
		seq:         uint64(len(s.messages)),
		now:         s.now,
	}, nil
}

// Close drops all state. Every later operation fails with ErrSessionClosed.
func (s *MemorySession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.messages = nil
	s.checkpoints = nil
	return nil
}

func copyMessages(src []Message) []Message {
	if len(src) == 0 {
		return nil
	}
	dst := make([]Message, len(src))
	for i, msg := range src {
		dst[i] = copyMessage(msg)
	}
	return dst
}

func copyMessage(msg Message) Message {
	msg.ToolCalls = copyToolCalls(msg.ToolCalls)
	return msg
}

func copyToolCalls(calls []ToolCall) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	dst := make([]ToolCall, len(calls))
	for i, call := range calls {
		if call.Arguments != nil {
			args := make(map[string]any, len(call.Arguments))
			for k, v := range call.Arguments {
				args[k] = v
			}
			call.Arguments = args
		}
		dst[i] = call
	}
	return dst
}

var _ Session = (*MemorySession)(nil)

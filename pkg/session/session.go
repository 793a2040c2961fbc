// Package session persists conversational transcripts for agent runs.
package session

import "errors"

var (
	ErrInvalidSessionID      = errors.New("session: id is required")
	ErrInvalidMessage        = errors.New("session: invalid message")
	ErrSessionClosed         = errors.New("session: closed")
	ErrCheckpointNotFound    = errors.New("session: checkpoint not found")
	ErrInvalidCheckpointName = errors.New("session: checkpoint name is required")
)

// Session records the turns of one conversation and supports snapshots.
type Session interface {
	ID() string
	Append(msg Message) error
	List(filter Filter) ([]Message, error)
	Checkpoint(name string) error
	Resume(name string) error
	Fork(id string) (Session, error)
	Close() error
}

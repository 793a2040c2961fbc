package event

import (
	"context"
	"errors"
	"sync"
)

// ErrStreamClosed marks a publish attempted after Close.
var ErrStreamClosed = errors.New("event stream closed")

// Stream 是单消费者的事件通道封装；发布端关闭后消费端读尽即结束。
// Single producer: the final Publish must happen before Close.
type Stream struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// NewStream allocates a buffered stream.
func NewStream(buffer int) *Stream {
	if buffer < 0 {
		buffer = 0
	}
	return &Stream{
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
}

// Publish validates and delivers an event, blocking until the consumer
// takes it, ctx ends, or the stream closes.
func (s *Stream) Publish(ctx context.Context, evt Event) error {
	if err := evt.Validate(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-s.done:
		return ErrStreamClosed
	default:
	}
	select {
	case s.ch <- evt:
		return nil
	case <-s.done:
		return ErrStreamClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events exposes the consumer side. The channel closes with the stream.
func (s *Stream) Events() <-chan Event { return s.ch }

// Close ends the stream; safe to call twice.
func (s *Stream) Close() {
	s.once.Do(func() {
		close(s.done)
		close(s.ch)
	})
}

package console

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a waiting indicator on its own goroutine. It stays
// silent when stdout is not a terminal.
type Spinner struct {
	Label string
	Out   io.Writer

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func (s *Spinner) Start() {
	if !isTTY() || s.Out == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	label := s.Label
	if label == "" {
		label = "Waiting for model"
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		start := time.Now()
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		index := 0
		for {
			select {
			case <-stop:
				fmt.Fprint(s.Out, "\r\x1b[2K")
				return
			case <-ticker.C:
				frame := spinnerFrames[index%len(spinnerFrames)]
				elapsed := time.Since(start).Seconds()
				fmt.Fprintf(s.Out, "\r%s", spinnerStyle.Render(fmt.Sprintf("%s %s (%.1fs)", frame, label, elapsed)))
				index++
			}
		}
	}(s.stop, s.done)
}

func (s *Spinner) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

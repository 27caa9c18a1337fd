package output

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Spinner displays a progress animation.
type Spinner struct {
	w        io.Writer
	message  string
	frames   []string
	interval time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	done    chan struct{}
	exited  chan struct{}
}

// NewSpinner creates a new spinner.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:        w,
		message:  message,
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		interval: 100 * time.Millisecond,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go func() {
		defer close(s.exited)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			s.mu.Lock()
			fmt.Fprintf(s.w, "\r%s %s", s.frames[i%len(s.frames)], s.message)
			s.mu.Unlock()
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// halt stops the animation and waits for the last frame to be written.
func (s *Spinner) halt() bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.stopped = true
	started := s.started
	close(s.done)
	s.mu.Unlock()

	if started {
		<-s.exited
	}
	return true
}

// Stop stops the spinner and clears the line.
func (s *Spinner) Stop() {
	if s.halt() {
		fmt.Fprint(s.w, "\r\033[K")
	}
}

// Success stops the spinner with a success message.
func (s *Spinner) Success(format string, args ...any) {
	if s.halt() {
		fmt.Fprint(s.w, "\r\033[K")
		OK(s.w, format, args...)
	}
}

// Fail stops the spinner with a failure message.
func (s *Spinner) Fail(format string, args ...any) {
	if s.halt() {
		fmt.Fprint(s.w, "\r\033[K")
		Fail(s.w, format, args...)
	}
}

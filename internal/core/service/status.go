package service

import (
	"sync"
	"time"

	"github.com/yndnr/guardian/internal/core/domain"
)

// Status is a point-in-time view of the control loop.
type Status struct {
	State         domain.SessionState `json:"state" yaml:"state"`
	Session       *domain.Session     `json:"session,omitempty" yaml:"session,omitempty"`
	LastDevice    *domain.Descriptor  `json:"last_device,omitempty" yaml:"last_device,omitempty"`
	LastCommand   string              `json:"last_command,omitempty" yaml:"last_command,omitempty"`
	LastCommandAt time.Time           `json:"last_command_at,omitempty" yaml:"last_command_at,omitempty"`
	LastError     string              `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	Sessions      int                 `json:"sessions" yaml:"sessions"`
	AuthFailures  int                 `json:"auth_failures" yaml:"auth_failures"`
	Commands      int                 `json:"commands" yaml:"commands"`
	StartedAt     time.Time           `json:"started_at" yaml:"started_at"`
}

// StatusTracker records loop progress for readers on other goroutines.
// Readers only ever see copies.
type StatusTracker struct {
	mu sync.RWMutex
	st Status
}

// NewStatusTracker creates a tracker in the idle state.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{st: Status{StartedAt: time.Now()}}
}

// Snapshot returns a copy of the current status.
func (t *StatusTracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := t.st
	if t.st.Session != nil {
		s := *t.st.Session
		out.Session = &s
	}
	if t.st.LastDevice != nil {
		d := *t.st.LastDevice
		out.LastDevice = &d
	}
	return out
}

// CurrentState returns the current loop state.
func (t *StatusTracker) CurrentState() domain.SessionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.st.State
}

func (t *StatusTracker) setState(s domain.SessionState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.State = s
	if t.st.Session != nil {
		t.st.Session.State = s
	}
}

func (t *StatusTracker) discovered(d domain.Descriptor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.LastDevice = &d
}

func (t *StatusTracker) beginSession(s domain.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.Session = &s
	t.st.Sessions++
}

func (t *StatusTracker) authenticated() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.st.Session != nil {
		t.st.Session.Authenticated = true
	}
}

func (t *StatusTracker) endSession() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.Session = nil
}

func (t *StatusTracker) authFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.AuthFailures++
}

func (t *StatusTracker) commandHandled(cmd string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.Commands++
	t.st.LastCommand = cmd
	t.st.LastCommandAt = time.Now()
	if t.st.Session != nil {
		t.st.Session.Commands++
	}
	if err != nil {
		t.st.LastError = err.Error()
	}
}

func (t *StatusTracker) failed(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.LastError = err.Error()
}

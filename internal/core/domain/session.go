package domain

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionIDPrefix is the prefix for session IDs.
const SessionIDPrefix = "gs-"

// SessionState is a state of the control loop.
type SessionState int

const (
	StateIdle SessionState = iota
	StateWaitingForDevice
	StateInitializing
	StateAuthenticating
	StateCommandLoop
	StateDisconnecting
)

// String returns the snake_case name of the state.
func (s SessionState) String() string {
	switch s {
	case StateWaitingForDevice:
		return "waiting_for_device"
	case StateInitializing:
		return "initializing"
	case StateAuthenticating:
		return "authenticating"
	case StateCommandLoop:
		return "command_loop"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "idle"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SessionState) UnmarshalText(text []byte) error {
	for st := StateIdle; st <= StateDisconnecting; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// Session is the transient period between discovering a device and
// disconnecting it. Sessions are never persisted.
type Session struct {
	// ID is the session identifier used for log correlation.
	// Format: gs-{ulid_lowercase}, 29 characters total.
	ID string `json:"id"`

	// Device is the descriptor reported at discovery time.
	Device Descriptor `json:"device"`

	// State is the current control loop state.
	State SessionState `json:"state"`

	// StartedAt is when the device was discovered.
	StartedAt time.Time `json:"started_at"`

	// Authenticated is set once the authentication gate accepted the token.
	Authenticated bool `json:"authenticated"`

	// Commands is the number of commands dispatched in this session.
	Commands int `json:"commands"`
}

// NewSession creates a session for a discovered device.
func NewSession(device Descriptor) (*Session, error) {
	id, err := GenerateSessionID()
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        id,
		Device:    device,
		State:     StateInitializing,
		StartedAt: time.Now(),
	}, nil
}

// GenerateSessionID generates a new session ID using ULID.
func GenerateSessionID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return SessionIDPrefix + strings.ToLower(id.String()), nil
}

// IsValidSessionID checks if a session ID has the expected format.
func IsValidSessionID(id string) bool {
	id = strings.ToLower(id)
	if !strings.HasPrefix(id, SessionIDPrefix) {
		return false
	}
	if len(id) != len(SessionIDPrefix)+ulid.EncodedSize {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(id[len(SessionIDPrefix):]))
	return err == nil
}

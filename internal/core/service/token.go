package service

import (
	"context"
	"time"

	"github.com/yndnr/guardian/internal/core/domain"
	"github.com/yndnr/guardian/internal/device"
)

// IdentityToken wraps a device channel and checks its identity against
// the configured key id. It adds identity, not transport behavior.
type IdentityToken struct {
	ch          device.Channel
	keyID       string
	initialized bool
}

// NewIdentityToken takes ownership of ch for the lifetime of a session.
func NewIdentityToken(ch device.Channel, keyID string) *IdentityToken {
	return &IdentityToken{
		ch:    ch,
		keyID: keyID,
	}
}

// Initialize connects the channel and verifies the descriptor.
//
// It fails with domain.ErrWrongDeviceType if the device is not a token and
// with domain.ErrIdentityMismatch if its id is not the configured key id.
func (t *IdentityToken) Initialize(ctx context.Context) error {
	t.initialized = false

	if err := t.ch.Connect(ctx); err != nil {
		return err
	}

	info, err := t.ch.Info(ctx)
	if err != nil {
		return err
	}
	if info.Type != domain.DeviceToken {
		return domain.ErrWrongDeviceType.WithDetails(info.Type.String())
	}
	if info.ID != t.keyID {
		return domain.ErrIdentityMismatch
	}

	t.initialized = true
	return nil
}

// Initialized reports whether Initialize succeeded since the last disconnect.
func (t *IdentityToken) Initialized() bool {
	return t.initialized
}

// ReadData reads up to size bytes from the token.
func (t *IdentityToken) ReadData(ctx context.Context, size int) ([]byte, error) {
	return t.ch.Read(ctx, size)
}

// WriteData writes data to the token.
func (t *IdentityToken) WriteData(ctx context.Context, data []byte) error {
	return t.ch.Write(ctx, data)
}

// WaitForCommand waits for the next command from the token.
// Commands are only accepted from an initialized token.
func (t *IdentityToken) WaitForCommand(ctx context.Context, timeout time.Duration) (string, error) {
	if !t.initialized {
		return "", domain.ErrTokenNotInitialized
	}
	return t.ch.WaitForCommand(ctx, timeout)
}

// Info returns the underlying channel's descriptor.
func (t *IdentityToken) Info(ctx context.Context) (domain.Descriptor, error) {
	return t.ch.Info(ctx)
}

// Disconnect disconnects the channel. The token is uninitialized
// afterwards, even if the disconnect fails.
func (t *IdentityToken) Disconnect(ctx context.Context) error {
	t.initialized = false
	return t.ch.Disconnect(ctx)
}

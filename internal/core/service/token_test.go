package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yndnr/guardian/internal/core/domain"
	"github.com/yndnr/guardian/internal/device/devicetest"
)

func TestIdentityToken_Initialize(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		ch      *devicetest.Channel
		keyID   string
		wantErr error
	}{
		{
			name:  "matching token",
			ch:    devicetest.NewToken("test_key_id", nil),
			keyID: "test_key_id",
		},
		{
			name:    "identity mismatch",
			ch:      devicetest.NewToken("wrong_id", nil),
			keyID:   "test_key_id",
			wantErr: domain.ErrIdentityMismatch,
		},
		{
			name:    "storage device",
			ch:      devicetest.NewChannel(domain.Descriptor{ID: "test_key_id", Type: domain.DeviceStorage}, nil),
			keyID:   "test_key_id",
			wantErr: domain.ErrWrongDeviceType,
		},
		{
			name: "connect failure",
			ch: func() *devicetest.Channel {
				ch := devicetest.NewToken("test_key_id", nil)
				ch.ConnectErr = domain.ErrDeviceIO
				return ch
			}(),
			keyID:   "test_key_id",
			wantErr: domain.ErrDeviceIO,
		},
		{
			name: "info failure",
			ch: func() *devicetest.Channel {
				ch := devicetest.NewToken("test_key_id", nil)
				ch.InfoErr = domain.ErrDeviceIO
				return ch
			}(),
			keyID:   "test_key_id",
			wantErr: domain.ErrDeviceIO,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := NewIdentityToken(tt.ch, tt.keyID)
			err := tok.Initialize(ctx)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Initialize() error = %v", err)
				}
				if !tok.Initialized() {
					t.Error("token should be initialized")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Initialize() error = %v, want %v", err, tt.wantErr)
			}
			if tok.Initialized() {
				t.Error("token must not be initialized after failure")
			}
		})
	}
}

func TestIdentityToken_WaitRequiresInitialize(t *testing.T) {
	ctx := context.Background()
	ch := devicetest.NewToken("k1", nil).QueueCommands("LOCK_SCREEN")
	tok := NewIdentityToken(ch, "k1")

	if _, err := tok.WaitForCommand(ctx, time.Second); !errors.Is(err, domain.ErrTokenNotInitialized) {
		t.Fatalf("WaitForCommand() before Initialize error = %v", err)
	}
	if ch.Waits != 0 {
		t.Errorf("channel Waits = %d, want 0", ch.Waits)
	}

	if err := tok.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	cmd, err := tok.WaitForCommand(ctx, time.Second)
	if err != nil || cmd != "LOCK_SCREEN" {
		t.Fatalf("WaitForCommand() = %q, %v", cmd, err)
	}

	if err := tok.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if tok.Initialized() {
		t.Error("token should be uninitialized after Disconnect")
	}
	if ch.Connected() {
		t.Error("channel should be disconnected")
	}
}

func TestIdentityToken_DisconnectErrorStillResets(t *testing.T) {
	ctx := context.Background()
	ch := devicetest.NewToken("k1", nil)
	ch.DisconnectErr = domain.ErrDeviceIO
	tok := NewIdentityToken(ch, "k1")

	if err := tok.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := tok.Disconnect(ctx); !errors.Is(err, domain.ErrDeviceIO) {
		t.Errorf("Disconnect() error = %v, want device io", err)
	}
	if tok.Initialized() {
		t.Error("token should be uninitialized after failed Disconnect")
	}
}

func TestIdentityToken_ReadWrite(t *testing.T) {
	ctx := context.Background()
	ch := devicetest.NewToken("k1", []byte("key-material"))
	tok := NewIdentityToken(ch, "k1")

	data, err := tok.ReadData(ctx, 3)
	if err != nil {
		t.Fatalf("ReadData() error = %v", err)
	}
	if string(data) != "key" {
		t.Errorf("ReadData(3) = %q, want %q", data, "key")
	}

	if err := tok.WriteData(ctx, []byte("ack")); err != nil {
		t.Fatalf("WriteData() error = %v", err)
	}
	if w := ch.Written(); len(w) != 1 || string(w[0]) != "ack" {
		t.Errorf("Written() = %q", w)
	}

	info, err := tok.Info(ctx)
	if err != nil || info.ID != "k1" {
		t.Errorf("Info() = %v, %v", info, err)
	}
}

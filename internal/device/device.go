package device

import (
	"context"
	"time"

	"github.com/yndnr/guardian/internal/core/domain"
)

// Channel is a connection to a single physical device.
//
// Operations fail with domain.ErrDeviceIO; WaitForCommand additionally
// returns domain.ErrTimeout when no command arrives in time. There is no
// built-in retry.
type Channel interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Read(ctx context.Context, size int) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Info(ctx context.Context) (domain.Descriptor, error)
	WaitForCommand(ctx context.Context, timeout time.Duration) (string, error)
}

// Directory enumerates devices and hands out channels.
//
// A Directory never keeps a channel it returned; ownership passes to the
// caller.
type Directory interface {
	List(ctx context.Context) ([]domain.Descriptor, error)
	// Get returns domain.ErrDeviceNotFound if no device has the id.
	Get(ctx context.Context, id string) (Channel, error)
	// WaitForDevice blocks until a device appears or timeout elapses
	// (domain.ErrTimeout).
	WaitForDevice(ctx context.Context, timeout time.Duration) (Discovery, error)
}

// Discovery is a discovered device, tagged by class.
// The set of variants is closed: Token, Storage and Other.
type Discovery interface {
	Channel() Channel
	Descriptor() domain.Descriptor
	discovered()
}

// Token is a discovered authentication token.
type Token struct {
	Ch   Channel
	Info domain.Descriptor
}

// Storage is a discovered removable storage device.
type Storage struct {
	Ch   Channel
	Info domain.Descriptor
}

// Other is a discovered device of an unrecognized class.
type Other struct {
	Ch   Channel
	Info domain.Descriptor
}

func (d Token) Channel() Channel                { return d.Ch }
func (d Token) Descriptor() domain.Descriptor   { return d.Info }
func (Token) discovered()                       {}
func (d Storage) Channel() Channel              { return d.Ch }
func (d Storage) Descriptor() domain.Descriptor { return d.Info }
func (Storage) discovered()                     {}
func (d Other) Channel() Channel                { return d.Ch }
func (d Other) Descriptor() domain.Descriptor   { return d.Info }
func (Other) discovered()                       {}

// Classify tags a channel by its descriptor type.
func Classify(ch Channel, info domain.Descriptor) Discovery {
	switch info.Type {
	case domain.DeviceToken:
		return Token{Ch: ch, Info: info}
	case domain.DeviceStorage:
		return Storage{Ch: ch, Info: info}
	default:
		return Other{Ch: ch, Info: info}
	}
}

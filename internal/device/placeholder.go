package device

import (
	"context"
	"time"

	"github.com/yndnr/guardian/internal/core/domain"
)

// Placeholder is a Directory with no hardware behind it. It lists no
// devices and every wait runs out its timeout.
type Placeholder struct{}

// NewPlaceholder creates a Placeholder directory.
func NewPlaceholder() *Placeholder {
	return &Placeholder{}
}

// List returns an empty list.
func (p *Placeholder) List(ctx context.Context) ([]domain.Descriptor, error) {
	return []domain.Descriptor{}, nil
}

// Get always fails with domain.ErrDeviceNotFound.
func (p *Placeholder) Get(ctx context.Context, id string) (Channel, error) {
	return nil, domain.ErrDeviceNotFound.WithDetails(id)
}

// WaitForDevice waits for the timeout (or ctx) and reports domain.ErrTimeout.
func (p *Placeholder) WaitForDevice(ctx context.Context, timeout time.Duration) (Discovery, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil, domain.ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

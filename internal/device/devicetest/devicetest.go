// Package devicetest provides scripted in-memory devices for tests.
//
// A Channel replays a fixed descriptor, key material and command queue
// and records every call. A Directory hands out queued discoveries and
// reports domain.ErrTimeout once the queue is empty, without sleeping.
package devicetest

import (
	"context"
	"sync"
	"time"

	"github.com/yndnr/guardian/internal/core/domain"
	"github.com/yndnr/guardian/internal/device"
)

// Channel is a scripted device.Channel.
type Channel struct {
	mu sync.Mutex

	descriptor domain.Descriptor
	data       []byte
	commands   []string

	// Injected failures.
	ConnectErr    error
	DisconnectErr error
	ReadErr       error
	InfoErr       error
	// CommandErr is returned once the command queue is drained.
	// Defaults to domain.ErrTimeout.
	CommandErr error

	connected bool
	written   [][]byte

	Connects    int
	Disconnects int
	Reads       int
	InfoCalls   int
	Waits       int
}

// NewChannel creates a channel with the given descriptor and key material.
func NewChannel(descriptor domain.Descriptor, data []byte) *Channel {
	return &Channel{
		descriptor: descriptor,
		data:       data,
	}
}

// NewToken creates a token channel.
func NewToken(id string, data []byte) *Channel {
	return NewChannel(domain.Descriptor{Name: "test-token", ID: id, Type: domain.DeviceToken}, data)
}

// QueueCommands appends commands returned by WaitForCommand in order.
func (c *Channel) QueueCommands(commands ...string) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, commands...)
	return c
}

// Connect implements device.Channel.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Connects++
	if c.ConnectErr != nil {
		return c.ConnectErr
	}
	c.connected = true
	return nil
}

// Disconnect implements device.Channel.
func (c *Channel) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Disconnects++
	c.connected = false
	return c.DisconnectErr
}

// Read implements device.Channel. It returns at most size bytes.
func (c *Channel) Read(ctx context.Context, size int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Reads++
	if c.ReadErr != nil {
		return nil, c.ReadErr
	}
	n := len(c.data)
	if size < n {
		n = size
	}
	out := make([]byte, n)
	copy(out, c.data[:n])
	return out, nil
}

// Write implements device.Channel.
func (c *Channel) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

// Info implements device.Channel.
func (c *Channel) Info(ctx context.Context) (domain.Descriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InfoCalls++
	if c.InfoErr != nil {
		return domain.Descriptor{}, c.InfoErr
	}
	return c.descriptor, nil
}

// WaitForCommand implements device.Channel. Queued commands are returned
// in order; afterwards CommandErr (or domain.ErrTimeout) is returned
// immediately.
func (c *Channel) WaitForCommand(ctx context.Context, timeout time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Waits++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(c.commands) > 0 {
		cmd := c.commands[0]
		c.commands = c.commands[1:]
		return cmd, nil
	}
	if c.CommandErr != nil {
		return "", c.CommandErr
	}
	return "", domain.ErrTimeout
}

// Connected reports whether the channel is currently connected.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Written returns a copy of all payloads passed to Write.
func (c *Channel) Written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.written))
	copy(out, c.written)
	return out
}

// Directory is a scripted device.Directory.
type Directory struct {
	mu      sync.Mutex
	pending []device.Discovery
	known   map[string]*Channel
	// WaitErr replaces domain.ErrTimeout once the queue is drained.
	WaitErr error
	Waits   int
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{known: make(map[string]*Channel)}
}

// Add queues a channel; it is classified by its descriptor.
func (d *Directory) Add(ch *Channel) *Directory {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, device.Classify(ch, ch.descriptor))
	d.known[ch.descriptor.ID] = ch
	return d
}

// List implements device.Directory.
func (d *Directory) List(ctx context.Context) ([]domain.Descriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Descriptor, 0, len(d.pending))
	for _, p := range d.pending {
		out = append(out, p.Descriptor())
	}
	return out, nil
}

// Get implements device.Directory.
func (d *Directory) Get(ctx context.Context, id string) (device.Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.known[id]
	if !ok {
		return nil, domain.ErrDeviceNotFound.WithDetails(id)
	}
	return ch, nil
}

// WaitForDevice implements device.Directory.
func (d *Directory) WaitForDevice(ctx context.Context, timeout time.Duration) (device.Discovery, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Waits++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(d.pending) == 0 {
		if d.WaitErr != nil {
			return nil, d.WaitErr
		}
		return nil, domain.ErrTimeout
	}
	next := d.pending[0]
	d.pending = d.pending[1:]
	return next, nil
}

// Remaining returns the number of queued discoveries.
func (d *Directory) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

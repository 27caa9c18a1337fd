package bridge

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/guardian/internal/core/domain"
	"github.com/yndnr/guardian/internal/device"
	"github.com/yndnr/guardian/internal/telemetry/logger"
)

// maxPending bounds attached-but-unclaimed bridge connections.
const maxPending = 16

type attached struct {
	ch   *Channel
	desc domain.Descriptor
}

// Directory is a device.Directory that accepts bridge connections on a
// Unix socket. Every accepted connection is asked for its descriptor
// and then queued until the control loop claims it.
type Directory struct {
	path      string
	ioTimeout time.Duration
	log       logger.Logger

	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup

	mu      sync.Mutex
	pending []attached
	ready   chan struct{}
}

// Options configures a bridge Directory.
type Options struct {
	SocketPath string
	IOTimeout  time.Duration
	Logger     logger.Logger
}

// Listen creates the socket and starts accepting bridge connections.
// A stale socket file left by a previous run is removed.
func Listen(opts Options) (*Directory, error) {
	if opts.SocketPath == "" {
		return nil, domain.ErrInvalidConfig.WithDetails("bridge socket path is required")
	}
	if opts.IOTimeout <= 0 {
		opts.IOTimeout = DefaultIOTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}

	if err := os.Remove(opts.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrDeviceIO.Wrap(err)
	}
	ln, err := net.Listen("unix", opts.SocketPath)
	if err != nil {
		return nil, domain.ErrDeviceIO.Wrap(err)
	}

	d := &Directory{
		path:      opts.SocketPath,
		ioTimeout: opts.IOTimeout,
		log:       opts.Logger.With("component", "bridge"),
		listener:  ln,
		ready:     make(chan struct{}, 1),
	}
	d.running.Store(true)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.acceptLoop()
	}()

	return d, nil
}

// Addr returns the socket path.
func (d *Directory) Addr() string {
	return d.path
}

func (d *Directory) acceptLoop() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			if !d.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			d.log.Warn("bridge accept failed", "error", err)
			continue
		}

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.attach(conn)
		}()
	}
}

// attach performs the INFO handshake and queues the device.
func (d *Directory) attach(conn net.Conn) {
	ch := NewChannel(conn, d.ioTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), d.ioTimeout)
	defer cancel()
	desc, err := ch.Info(ctx)
	if err != nil {
		d.log.Warn("bridge handshake failed", "error", err)
		_ = ch.Close()
		return
	}

	d.mu.Lock()
	if !d.running.Load() || len(d.pending) >= maxPending {
		d.mu.Unlock()
		d.log.Warn("bridge connection rejected", "device_id", desc.ID)
		_ = ch.Close()
		return
	}
	d.pending = append(d.pending, attached{ch: ch, desc: desc})
	d.mu.Unlock()

	d.log.Debug("bridge device attached", "device_id", desc.ID, "device_type", desc.Type.String())

	select {
	case d.ready <- struct{}{}:
	default:
	}
}

// List implements device.Directory. It reports attached devices that
// have not been claimed yet.
func (d *Directory) List(ctx context.Context) ([]domain.Descriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Descriptor, 0, len(d.pending))
	for _, a := range d.pending {
		out = append(out, a.desc)
	}
	return out, nil
}

// Get implements device.Directory. The device is claimed by the caller.
func (d *Directory) Get(ctx context.Context, id string) (device.Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, a := range d.pending {
		if a.desc.ID == id {
			d.pending = append(d.pending[:i], d.pending[i+1:]...)
			return a.ch, nil
		}
	}
	return nil, domain.ErrDeviceNotFound.WithDetails(id)
}

// WaitForDevice implements device.Directory.
func (d *Directory) WaitForDevice(ctx context.Context, timeout time.Duration) (device.Discovery, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if a, ok := d.pop(); ok {
			return device.Classify(a.ch, a.desc), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, domain.ErrTimeout
		case <-d.ready:
		}
	}
}

func (d *Directory) pop() (attached, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return attached{}, false
	}
	a := d.pending[0]
	d.pending = d.pending[1:]
	return a, true
}

// Close stops accepting, drops unclaimed devices and waits for the
// accept loop to finish (respecting ctx).
func (d *Directory) Close(ctx context.Context) error {
	d.running.Store(false)
	closeErr := d.listener.Close()

	d.mu.Lock()
	for _, a := range d.pending {
		_ = a.ch.Close()
	}
	d.pending = nil
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if errors.Is(closeErr, net.ErrClosed) {
			return nil
		}
		return closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

package bridge

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/yndnr/guardian/internal/core/domain"
)

// DefaultIOTimeout bounds a single request/reply exchange.
const DefaultIOTimeout = 5 * time.Second

// Channel is a device.Channel over one bridge connection.
//
// Requests are serialized. Once an exchange fails midway the connection
// is closed, because the framing can no longer be trusted.
type Channel struct {
	mu        sync.Mutex
	conn      net.Conn
	r         *bufio.Reader
	ioTimeout time.Duration
	broken    error
}

// NewChannel wraps a bridge connection.
func NewChannel(conn net.Conn, ioTimeout time.Duration) *Channel {
	if ioTimeout <= 0 {
		ioTimeout = DefaultIOTimeout
	}
	return &Channel{
		conn:      conn,
		r:         bufio.NewReaderSize(conn, maxLine),
		ioTimeout: ioTimeout,
	}
}

// Close closes the underlying connection.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked(net.ErrClosed)
}

func (c *Channel) closeLocked(reason error) error {
	if c.broken != nil {
		return nil
	}
	c.broken = reason
	return c.conn.Close()
}

// roundTrip sends one request and reads its reply. wait extends the
// deadline for requests that block on the bridge side.
func (c *Channel) roundTrip(ctx context.Context, req string, wait time.Duration) (Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broken != nil {
		return Reply{}, domain.ErrDeviceIO.Wrap(c.broken)
	}
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	// Cancellation unblocks the exchange by expiring the deadline.
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := c.conn.SetDeadline(time.Now().Add(wait + c.ioTimeout)); err != nil {
		c.closeLocked(err)
		return Reply{}, domain.ErrDeviceIO.Wrap(err)
	}

	line, err := c.exchange(req)
	if err != nil {
		c.closeLocked(err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Reply{}, ctxErr
		}
		return Reply{}, domain.ErrDeviceIO.Wrap(err)
	}

	reply, err := ParseReply(line)
	if err != nil {
		c.closeLocked(err)
		return Reply{}, domain.ErrDeviceIO.Wrap(err)
	}
	if reply.Kind == ReplyError {
		return Reply{}, domain.ErrDeviceIO.WithDetails(reply.Payload)
	}
	return reply, nil
}

func (c *Channel) exchange(req string) (string, error) {
	if _, err := c.conn.Write([]byte(req + "\n")); err != nil {
		return "", err
	}
	line, err := c.r.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("reply exceeds %d bytes", maxLine)
	}
	if err != nil {
		return "", err
	}
	return string(line), nil
}

func expectOK(r Reply, verb string) error {
	if r.Kind != ReplyOK {
		return domain.ErrDeviceIO.WithDetails(fmt.Sprintf("%s: unexpected reply %s", verb, r.Kind))
	}
	return nil
}

// Connect implements device.Channel.
func (c *Channel) Connect(ctx context.Context) error {
	r, err := c.roundTrip(ctx, VerbConnect, 0)
	if err != nil {
		return err
	}
	return expectOK(r, VerbConnect)
}

// Disconnect implements device.Channel. The connection is closed
// afterwards; the bridge reconnects to attach the device again.
func (c *Channel) Disconnect(ctx context.Context) error {
	r, err := c.roundTrip(ctx, VerbDisconnect, 0)
	closeErr := c.Close()
	if err != nil {
		return err
	}
	if err := expectOK(r, VerbDisconnect); err != nil {
		return err
	}
	if closeErr != nil {
		return domain.ErrDeviceIO.Wrap(closeErr)
	}
	return nil
}

// Read implements device.Channel.
func (c *Channel) Read(ctx context.Context, size int) ([]byte, error) {
	r, err := c.roundTrip(ctx, VerbRead+" "+strconv.Itoa(size), 0)
	if err != nil {
		return nil, err
	}
	if err := expectOK(r, VerbRead); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(r.Payload)
	if err != nil {
		return nil, domain.ErrDeviceIO.Wrap(err)
	}
	if len(data) > size {
		data = data[:size]
	}
	return data, nil
}

// Write implements device.Channel.
func (c *Channel) Write(ctx context.Context, data []byte) error {
	r, err := c.roundTrip(ctx, VerbWrite+" "+base64.StdEncoding.EncodeToString(data), 0)
	if err != nil {
		return err
	}
	return expectOK(r, VerbWrite)
}

// Info implements device.Channel.
func (c *Channel) Info(ctx context.Context) (domain.Descriptor, error) {
	r, err := c.roundTrip(ctx, VerbInfo, 0)
	if err != nil {
		return domain.Descriptor{}, err
	}
	if err := expectOK(r, VerbInfo); err != nil {
		return domain.Descriptor{}, err
	}
	var d domain.Descriptor
	if err := json.Unmarshal([]byte(r.Payload), &d); err != nil {
		return domain.Descriptor{}, domain.ErrDeviceIO.Wrap(err)
	}
	return d, nil
}

// WaitForCommand implements device.Channel.
func (c *Channel) WaitForCommand(ctx context.Context, timeout time.Duration) (string, error) {
	r, err := c.roundTrip(ctx, VerbWait+" "+strconv.FormatInt(timeout.Milliseconds(), 10), timeout)
	if err != nil {
		return "", err
	}
	switch r.Kind {
	case ReplyCommand:
		return r.Payload, nil
	case ReplyTimeout:
		return "", domain.ErrTimeout
	default:
		return "", domain.ErrDeviceIO.WithDetails(fmt.Sprintf("%s: unexpected reply %s", VerbWait, r.Kind))
	}
}

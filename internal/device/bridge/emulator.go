package bridge

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/yndnr/guardian/internal/core/domain"
	"github.com/yndnr/guardian/internal/telemetry/logger"
)

// Emulator plays the bridge side of the protocol for one device. It lets
// a token be exercised end to end without hardware.
type Emulator struct {
	Descriptor domain.Descriptor

	// Key is the raw key material served to READ.
	Key []byte

	// Commands feeds WAIT. A closed or nil channel only ever times out.
	Commands <-chan string

	// Outbox receives decoded WRITE payloads. Optional.
	Outbox io.Writer

	Logger logger.Logger
}

// Dial connects to a guardian bridge socket and serves until the device
// is disconnected or ctx is done.
func (e *Emulator) Dial(ctx context.Context, socketPath string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return err
	}
	return e.Serve(ctx, conn)
}

// Serve answers requests on conn until DISCONNECT, EOF or ctx is done.
// It closes conn before returning.
func (e *Emulator) Serve(ctx context.Context, conn net.Conn) error {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	log := e.Logger
	if log == nil {
		log = logger.Default()
	}
	s := &emulatorSession{e: e, commands: e.Commands}

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 4096), maxLine)
	for sc.Scan() {
		verb, arg := ParseRequest(sc.Text())
		reply := s.handle(ctx, verb, arg)
		log.Debug("bridge request", "verb", verb, "reply", reply.Kind)

		if _, err := io.WriteString(conn, reply.String()+"\n"); err != nil {
			return ctxOr(ctx, err)
		}
		if verb == VerbDisconnect && reply.Kind == ReplyOK {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return ctxOr(ctx, err)
	}
	return ctx.Err()
}

func ctxOr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

type emulatorSession struct {
	e         *Emulator
	connected bool
	commands  <-chan string
}

func errorReply(msg string) Reply {
	return Reply{Kind: ReplyError, Payload: msg}
}

func (s *emulatorSession) handle(ctx context.Context, verb, arg string) Reply {
	switch verb {
	case VerbInfo:
		b, err := json.Marshal(s.e.Descriptor)
		if err != nil {
			return errorReply(err.Error())
		}
		return Reply{Kind: ReplyOK, Payload: string(b)}

	case VerbConnect:
		s.connected = true
		return Reply{Kind: ReplyOK}

	case VerbDisconnect:
		s.connected = false
		return Reply{Kind: ReplyOK}
	}

	if !s.connected {
		return errorReply("not connected")
	}

	switch verb {
	case VerbRead:
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return errorReply("bad length")
		}
		data := s.e.Key
		if len(data) > n {
			data = data[:n]
		}
		return Reply{Kind: ReplyOK, Payload: base64.StdEncoding.EncodeToString(data)}

	case VerbWrite:
		data, err := base64.StdEncoding.DecodeString(arg)
		if err != nil {
			return errorReply("bad payload")
		}
		if s.e.Outbox != nil {
			if _, err := s.e.Outbox.Write(data); err != nil {
				return errorReply(err.Error())
			}
		}
		return Reply{Kind: ReplyOK}

	case VerbWait:
		ms, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || ms < 0 {
			return errorReply("bad timeout")
		}
		return s.wait(ctx, time.Duration(ms)*time.Millisecond)

	default:
		return errorReply("unknown verb " + verb)
	}
}

func (s *emulatorSession) wait(ctx context.Context, timeout time.Duration) Reply {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case cmd, ok := <-s.commands:
		if ok {
			return Reply{Kind: ReplyCommand, Payload: cmd}
		}
		s.commands = nil
		// Drained: behave like an idle token for the rest of the wait.
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	case <-timer.C:
	case <-ctx.Done():
	}
	return Reply{Kind: ReplyTimeout}
}

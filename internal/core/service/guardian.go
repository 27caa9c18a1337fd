package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/yndnr/guardian/internal/core/domain"
	"github.com/yndnr/guardian/internal/device"
	"github.com/yndnr/guardian/internal/telemetry/logger"
	"github.com/yndnr/guardian/internal/telemetry/metric"
)

// Default loop timings.
const (
	DefaultDeviceTimeout  = 60 * time.Second
	DefaultCommandTimeout = 30 * time.Second
	DefaultRetryInterval  = time.Second

	disconnectTimeout = 5 * time.Second
)

// Authenticator checks a token's key material.
type Authenticator interface {
	AuthenticateKey(ctx context.Context, src KeySource) error
}

// Outcome is the result of one control loop cycle.
type Outcome int

const (
	// OutcomeNoDevice means no device appeared or the wait failed.
	OutcomeNoDevice Outcome = iota
	// OutcomeIgnored means a non-token device was discarded.
	OutcomeIgnored
	// OutcomeRejected means the token failed initialization.
	OutcomeRejected
	// OutcomeAuthFailed means the token's key did not match.
	OutcomeAuthFailed
	// OutcomeCompleted means an authenticated session ran and ended.
	OutcomeCompleted
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRejected:
		return "rejected"
	case OutcomeAuthFailed:
		return "auth_failed"
	case OutcomeCompleted:
		return "completed"
	default:
		return "no_device"
	}
}

// Config wires a Guardian.
type Config struct {
	Directory  device.Directory
	Auth       Authenticator
	Dispatcher CommandHandler

	// KeyID is the descriptor id the token must report.
	KeyID string

	DeviceTimeout  time.Duration
	CommandTimeout time.Duration
	// RetryInterval is the minimum spacing between cycles.
	RetryInterval time.Duration

	Logger  logger.Logger
	Metrics *metric.Registry
	Status  *StatusTracker
}

// Guardian is the control loop. It owns at most one token session at a
// time and handles that session's commands strictly in arrival order.
type Guardian struct {
	dir        device.Directory
	auth       Authenticator
	dispatcher CommandHandler
	keyID      string

	deviceTimeout  time.Duration
	commandTimeout time.Duration
	limiter        *rate.Limiter

	logger  logger.Logger
	metrics *metric.Registry
	status  *StatusTracker
}

// NewGuardian validates cfg and creates a Guardian.
func NewGuardian(cfg Config) (*Guardian, error) {
	switch {
	case cfg.Directory == nil:
		return nil, domain.ErrInvalidConfig.WithDetails("device directory is required")
	case cfg.Auth == nil:
		return nil, domain.ErrInvalidConfig.WithDetails("authenticator is required")
	case cfg.Dispatcher == nil:
		return nil, domain.ErrInvalidConfig.WithDetails("dispatcher is required")
	case cfg.KeyID == "":
		return nil, domain.ErrInvalidConfig.WithDetails("key id is required")
	}

	g := &Guardian{
		dir:            cfg.Directory,
		auth:           cfg.Auth,
		dispatcher:     cfg.Dispatcher,
		keyID:          cfg.KeyID,
		deviceTimeout:  orDefault(cfg.DeviceTimeout, DefaultDeviceTimeout),
		commandTimeout: orDefault(cfg.CommandTimeout, DefaultCommandTimeout),
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		status:         cfg.Status,
	}
	g.limiter = rate.NewLimiter(rate.Every(orDefault(cfg.RetryInterval, DefaultRetryInterval)), 1)

	if g.logger == nil {
		g.logger = logger.Default()
	}
	if g.metrics == nil {
		g.metrics = metric.NewRegistry()
	}
	if g.status == nil {
		g.status = NewStatusTracker()
	}
	return g, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Status returns the tracker the loop reports to.
func (g *Guardian) Status() *StatusTracker {
	return g.status
}

// Run repeats Cycle until ctx is cancelled. It returns nil on shutdown.
func (g *Guardian) Run(ctx context.Context) error {
	g.logger.Info("guardian started",
		"key_id", g.keyID,
		"device_timeout", g.deviceTimeout.String(),
		"command_timeout", g.commandTimeout.String(),
	)
	defer g.status.setState(domain.StateIdle)

	for {
		if err := g.limiter.Wait(ctx); err != nil {
			break
		}
		g.Cycle(ctx)
		if ctx.Err() != nil {
			break
		}
	}

	g.logger.Info("guardian stopped")
	return nil
}

// Cycle runs one pass from WaitingForDevice back to WaitingForDevice.
// No error escapes a cycle; failures are logged and reflected in the
// returned Outcome.
func (g *Guardian) Cycle(ctx context.Context) Outcome {
	g.status.setState(domain.StateWaitingForDevice)

	disc, err := g.dir.WaitForDevice(ctx, g.deviceTimeout)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTimeout):
			g.logger.Debug("no device within timeout", "timeout", g.deviceTimeout.String())
		case ctx.Err() != nil:
		default:
			g.logger.Warn("device wait failed", "error", err)
			g.status.failed(err)
		}
		return OutcomeNoDevice
	}

	desc := disc.Descriptor()
	g.metrics.RecordDiscovery(desc.Type.String())
	g.status.discovered(desc)

	tok, ok := disc.(device.Token)
	if !ok {
		g.logger.Info("ignoring non-token device",
			"device_name", desc.Name,
			"device_id", desc.ID,
			"device_type", desc.Type.String(),
		)
		g.discard(ctx, disc)
		return OutcomeIgnored
	}

	return g.session(ctx, tok)
}

func (g *Guardian) session(ctx context.Context, tok device.Token) Outcome {
	sess, err := domain.NewSession(tok.Info)
	if err != nil {
		g.logger.Error("session id generation failed", "error", err)
		return OutcomeNoDevice
	}

	ctx = logger.WithLogger(logger.WithSessionID(ctx, sess.ID), g.logger)
	log := logger.L(ctx)

	g.metrics.IncSessionActive()
	defer g.metrics.DecSessionActive()
	g.status.beginSession(*sess)
	defer g.status.endSession()

	log.Info("token discovered", "device_name", sess.Device.Name, "device_id", sess.Device.ID)

	token := NewIdentityToken(tok.Ch, g.keyID)

	g.transition(log, domain.StateInitializing)
	if err := token.Initialize(ctx); err != nil {
		log.Warn("token initialization failed", "error", err)
		g.release(ctx, log, token)
		g.metrics.RecordSession("init_failed")
		return OutcomeRejected
	}

	g.transition(log, domain.StateAuthenticating)
	if err := g.auth.AuthenticateKey(ctx, token); err != nil {
		log.Warn("authentication failed")
		g.metrics.RecordAuthFailure("key_mismatch")
		g.status.authFailed()
		g.release(ctx, log, token)
		g.metrics.RecordSession("rejected")
		return OutcomeAuthFailed
	}
	g.status.authenticated()
	log.Info("token authenticated")

	g.transition(log, domain.StateCommandLoop)
	g.commandLoop(ctx, log, token)

	g.release(ctx, log, token)
	g.metrics.RecordSession("authenticated")
	return OutcomeCompleted
}

func (g *Guardian) commandLoop(ctx context.Context, log logger.Logger, token *IdentityToken) {
	for {
		cmd, err := token.WaitForCommand(ctx, g.commandTimeout)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTimeout):
				log.Info("no command within timeout", "timeout", g.commandTimeout.String())
			case ctx.Err() != nil:
				log.Info("command loop interrupted by shutdown")
			default:
				log.Warn("command wait failed", "error", err)
			}
			return
		}
		g.dispatch(ctx, cmd)
	}
}

func (g *Guardian) dispatch(ctx context.Context, cmd string) {
	ctx = logger.WithRequestID(ctx, uuid.NewString())
	log := logger.L(ctx).With("command", cmd)

	label := cmd
	if _, ok := domain.LookupAction(cmd); !ok {
		label = "unrecognized"
	}

	start := time.Now()
	out, err := g.dispatcher.HandleCommand(ctx, cmd)
	elapsed := time.Since(start)
	g.metrics.ObserveCommandDuration(label, elapsed.Seconds())
	g.status.commandHandled(cmd, err)

	switch {
	case err == nil:
		g.metrics.RecordCommand(label, "ok")
		log.Info("command succeeded", "output", out, "duration", elapsed.String())
	case errors.Is(err, domain.ErrUnknownCommand):
		g.metrics.RecordCommand(label, "unknown")
		log.Warn("unknown command")
	default:
		g.metrics.RecordCommand(label, "error")
		log.Error("command failed", "error", err, "duration", elapsed.String())
	}
}

// release disconnects the token. It runs even after shutdown has
// cancelled ctx.
func (g *Guardian) release(ctx context.Context, log logger.Logger, token *IdentityToken) {
	g.transition(log, domain.StateDisconnecting)

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
	defer cancel()
	if err := token.Disconnect(dctx); err != nil {
		log.Warn("disconnect failed", "error", err)
	}
	g.status.setState(domain.StateWaitingForDevice)
	log.Debug("state changed", "state", domain.StateWaitingForDevice.String())
}

// discard hands a non-token device back to its backend without ever
// connecting it. Backends holding a live connection close it here.
func (g *Guardian) discard(ctx context.Context, disc device.Discovery) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
	defer cancel()
	if err := disc.Channel().Disconnect(dctx); err != nil {
		g.logger.Debug("release of ignored device failed", "device_id", disc.Descriptor().ID, "error", err)
	}
}

func (g *Guardian) transition(log logger.Logger, s domain.SessionState) {
	g.status.setState(s)
	log.Debug("state changed", "state", s.String())
}

package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/guardian/internal/core/service"
	"github.com/yndnr/guardian/internal/device"
	"github.com/yndnr/guardian/internal/device/bridge"
	"github.com/yndnr/guardian/internal/device/volume"
	"github.com/yndnr/guardian/internal/infra/buildinfo"
	"github.com/yndnr/guardian/internal/infra/confloader"
	"github.com/yndnr/guardian/internal/infra/shutdown"
	"github.com/yndnr/guardian/internal/server/config"
	"github.com/yndnr/guardian/internal/server/httpserver"
	"github.com/yndnr/guardian/internal/telemetry/logger"
	"github.com/yndnr/guardian/internal/telemetry/metric"
)

const shutdownTimeout = 15 * time.Second

// RunCommand starts the daemon.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "run the guardian daemon in the foreground",
		Action: runDaemon,
	}
}

func runDaemon(c *cli.Context) error {
	configFile := ParseGlobalFlags(c).Config

	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting guardian",
		"version", info.Version,
		"commit", info.Commit,
		"config", configFile,
		"backend", cfg.Device.Backend,
		"key_id", cfg.Auth.KeyID,
		"expected_key_hash", config.Sanitize(cfg).Auth.ExpectedKeyHash,
	)

	h := shutdown.NewHandler(shutdownTimeout, log)

	d, err := newDaemon(cfg, log, metric.Global())
	if err != nil {
		return err
	}
	if err := d.start(h, configFile); err != nil {
		h.Trigger()
		h.Wait()
		return err
	}

	log.Info("guardian running, press Ctrl+C to stop")
	if err := h.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("guardian stopped gracefully")
	return nil
}

// initLogger initializes the structured logger and makes it the default.
func initLogger(cfg *config.GuardianConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

// daemon holds the wired components of a running guardian.
type daemon struct {
	cfg        *config.GuardianConfig
	log        logger.Logger
	metrics    *metric.Registry
	directory  device.Directory
	closeDir   func(context.Context) error
	dispatcher *service.Dispatcher
	status     *service.StatusTracker
	guardian   *service.Guardian
}

func newDaemon(cfg *config.GuardianConfig, log logger.Logger, reg *metric.Registry) (*daemon, error) {
	d := &daemon{cfg: cfg, log: log, metrics: reg}

	dir, closeDir, err := openDirectory(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open device backend: %w", err)
	}
	d.directory, d.closeDir = dir, closeDir

	gate, err := service.NewAuthGate(cfg.Auth.ExpectedKeyHash)
	if err != nil {
		closeDir(context.Background())
		return nil, err
	}

	d.dispatcher = service.NewDispatcher(service.DispatcherConfig{
		ScriptDir:     cfg.Dispatch.ScriptDir,
		PlatformDir:   cfg.Dispatch.PlatformDir,
		Shell:         cfg.Dispatch.Shell,
		StatusCommand: cfg.Dispatch.StatusCommand,
	})
	for _, check := range d.dispatcher.Preflight() {
		if !check.OK() {
			log.Warn("response script unavailable", "code", check.Code, "path", check.Path,
				"exists", check.Exists, "executable", check.Executable)
		}
	}

	d.status = service.NewStatusTracker()
	d.guardian, err = service.NewGuardian(service.Config{
		Directory:      dir,
		Auth:           gate,
		Dispatcher:     d.dispatcher,
		KeyID:          cfg.Auth.KeyID,
		DeviceTimeout:  cfg.Device.WaitTimeout,
		CommandTimeout: cfg.Device.CommandTimeout,
		RetryInterval:  cfg.Device.RetryInterval,
		Logger:         log,
		Metrics:        reg,
		Status:         d.status,
	})
	if err != nil {
		closeDir(context.Background())
		return nil, err
	}

	if err := reg.Register(metric.NewCollector(d.status)); err != nil {
		log.Warn("state collector not registered", "error", err)
	}
	return d, nil
}

// openDirectory creates the configured device backend and its cleanup.
func openDirectory(cfg *config.GuardianConfig, log logger.Logger) (device.Directory, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.Device.Backend {
	case config.BackendVolume:
		if _, err := os.Stat(cfg.Device.Volume.Root); err != nil {
			log.Warn("volume root not accessible yet", "root", cfg.Device.Volume.Root, "error", err)
		}
		return volume.NewDirectory(cfg.Device.Volume.Root, cfg.Device.Volume.PollInterval), noop, nil
	case config.BackendBridge:
		dir, err := bridge.Listen(bridge.Options{
			SocketPath: cfg.Device.Bridge.SocketPath,
			IOTimeout:  cfg.Device.Bridge.IOTimeout,
			Logger:     log,
		})
		if err != nil {
			return nil, nil, err
		}
		return dir, dir.Close, nil
	case config.BackendPlaceholder:
		log.Warn("placeholder device backend selected, no device will ever be discovered")
		return device.NewPlaceholder(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown device backend %q", cfg.Device.Backend)
	}
}

// start launches the control loop, the HTTP server and the config
// watcher. Hooks run in reverse: the loop drains first, the backend
// closes last.
func (d *daemon) start(h *shutdown.Handler, configFile string) error {
	h.OnShutdown("device backend", d.closeDir)

	if d.cfg.HTTP.Addr != "" {
		srv := httpserver.New(d.cfg.HTTP.Addr, httpserver.NewRouter(&httpserver.RouterConfig{
			Status:    d.status,
			Devices:   d.directory,
			Scripts:   d.dispatcher,
			Metrics:   d.metrics,
			Logger:    d.log,
			RateLimit: d.cfg.HTTP.RateLimit,
		}), d.log)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("start http server: %w", err)
		}
		h.OnShutdown("http server", srv.Shutdown)
		go func() {
			if err, ok := <-srv.Err(); ok && err != nil {
				h.Trigger()
			}
		}()
	}

	if configFile != "" {
		w, err := confloader.NewWatcher(confloader.WithWatcherLogger(d.log))
		if err != nil {
			d.log.Warn("config watcher unavailable", "error", err)
		} else if err := w.Watch(configFile); err != nil {
			w.Stop()
			d.log.Warn("config watcher unavailable", "error", err)
		} else {
			w.OnChange(func(path string) { reloadLogLevel(path, d.log) })
			w.StartAsync()
			h.OnShutdown("config watcher", func(context.Context) error { return w.Stop() })
		}
	}

	loopDone := make(chan error, 1)
	go func() { loopDone <- d.guardian.Run(h.Context()) }()
	h.OnShutdown("control loop", func(ctx context.Context) error {
		select {
		case err := <-loopDone:
			return err
		case <-ctx.Done():
			return errors.New("control loop did not stop in time")
		}
	})
	return nil
}

// reloadLogLevel applies log.level from a changed config file. Other
// settings need a restart.
func reloadLogLevel(path string, log logger.Logger) {
	cfg, err := loadConfig(path)
	if err != nil {
		log.Warn("config change ignored", "file", path, "error", err)
		return
	}
	if cfg.Log.Level == logger.GetLevel() {
		return
	}
	logger.SetLevel(cfg.Log.Level)
	log.Info("log level changed", "level", cfg.Log.Level)
}

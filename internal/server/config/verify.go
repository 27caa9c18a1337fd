package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/yndnr/guardian/internal/core/domain"
	"github.com/yndnr/guardian/internal/telemetry/logger"
	"github.com/yndnr/guardian/pkg/keydigest"
)

// Verify validates the configuration. It returns the first problem as
// domain.ErrInvalidConfig.
func Verify(cfg *GuardianConfig) error {
	if err := verifyAuth(&cfg.Auth); err != nil {
		return err
	}
	if err := verifyDispatch(&cfg.Dispatch); err != nil {
		return err
	}
	if err := verifyDevice(&cfg.Device); err != nil {
		return err
	}
	if err := verifyHTTP(&cfg.HTTP); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func invalid(format string, args ...any) error {
	return domain.ErrInvalidConfig.WithDetails(fmt.Sprintf(format, args...))
}

func verifyAuth(cfg *AuthSection) error {
	if cfg.ExpectedKeyHash == "" {
		return invalid("auth.expected_key_hash is required")
	}
	if _, err := keydigest.Parse(cfg.ExpectedKeyHash); err != nil {
		return invalid("auth.expected_key_hash must be %d hex characters", keydigest.HexLength)
	}
	if strings.TrimSpace(cfg.KeyID) == "" {
		return invalid("auth.key_id is required")
	}
	return nil
}

func verifyDispatch(cfg *DispatchSection) error {
	if cfg.ScriptDir == "" {
		return invalid("dispatch.script_dir is required")
	}
	if strings.ContainsAny(cfg.PlatformDir, `/\`) {
		return invalid("dispatch.platform_dir must be a single directory name")
	}
	return nil
}

func verifyDevice(cfg *DeviceSection) error {
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"device.wait_timeout", cfg.WaitTimeout},
		{"device.command_timeout", cfg.CommandTimeout},
		{"device.retry_interval", cfg.RetryInterval},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return invalid("%s must be positive", d.name)
		}
	}

	switch cfg.Backend {
	case BackendVolume:
		if cfg.Volume.Root == "" {
			return invalid("device.volume.root is required for the volume backend")
		}
	case BackendBridge:
		if cfg.Bridge.SocketPath == "" {
			return invalid("device.bridge.socket_path is required for the bridge backend")
		}
	case BackendPlaceholder:
	default:
		return invalid("device.backend %q is not one of %s, %s, %s",
			cfg.Backend, BackendVolume, BackendBridge, BackendPlaceholder)
	}
	return nil
}

func verifyHTTP(cfg *HTTPSection) error {
	if cfg.RateLimit < 0 {
		return invalid("http.rate_limit must not be negative")
	}
	if cfg.Addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return invalid("http.addr: %v", err)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return invalid("log.level %q is not valid", cfg.Level)
	}
	if cfg.Format == "" || !logger.ValidFormat(cfg.Format) {
		return invalid("log.format %q is not valid", cfg.Format)
	}
	return nil
}

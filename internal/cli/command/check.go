package command

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/guardian/internal/cli/output"
	"github.com/yndnr/guardian/internal/core/service"
	"github.com/yndnr/guardian/internal/server/config"
)

// CheckCommand validates configuration and response scripts without
// starting the daemon.
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "validate configuration and response scripts",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "show-config",
				Usage: "print the effective configuration (secrets masked)",
			},
		},
		Action: runCheck,
	}
}

func runCheck(c *cli.Context) error {
	w := stdout(c)

	cfg, err := loadConfig(ParseGlobalFlags(c).Config)
	if err != nil {
		output.Fail(w, "configuration: %v", err)
		return cli.Exit("", 1)
	}
	output.OK(w, "configuration valid (backend %s, key id %s)", cfg.Device.Backend, cfg.Auth.KeyID)

	if c.Bool("show-config") {
		if err := (&output.YAMLFormatter{}).Format(w, config.Sanitize(cfg)); err != nil {
			return err
		}
	}

	failed := false
	switch cfg.Device.Backend {
	case config.BackendVolume:
		if info, err := os.Stat(cfg.Device.Volume.Root); err != nil || !info.IsDir() {
			output.Warn(w, "volume root %s is not a directory yet", cfg.Device.Volume.Root)
		} else {
			output.OK(w, "volume root %s", cfg.Device.Volume.Root)
		}
	case config.BackendPlaceholder:
		output.Warn(w, "placeholder backend never discovers a device")
	}

	d := service.NewDispatcher(service.DispatcherConfig{
		ScriptDir:     cfg.Dispatch.ScriptDir,
		PlatformDir:   cfg.Dispatch.PlatformDir,
		Shell:         cfg.Dispatch.Shell,
		StatusCommand: cfg.Dispatch.StatusCommand,
	})
	for _, check := range d.Preflight() {
		switch {
		case check.OK():
			output.OK(w, "script %s: %s", check.Code, check.Path)
		case !check.Exists:
			failed = true
			output.Fail(w, "script %s: %s missing", check.Code, check.Path)
		default:
			failed = true
			output.Fail(w, "script %s: %s not executable", check.Code, check.Path)
		}
	}

	if failed {
		return cli.Exit("", 1)
	}
	return nil
}

package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/guardian/internal/cli/connection"
	"github.com/yndnr/guardian/internal/cli/output"
	"github.com/yndnr/guardian/internal/core/domain"
	"github.com/yndnr/guardian/internal/device/volume"
	"github.com/yndnr/guardian/internal/server/config"
)

// DevicesCommand lists devices.
func DevicesCommand() *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "list devices visible to guardian",
		Description: "By default the running daemon is asked. With --root the mount root\n" +
			"is scanned directly, which works without a daemon.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "root",
				Usage: "scan this volume mount root instead of asking the daemon",
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "with --root, wait for the next volume to appear",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "how long --wait waits",
				Value: config.DefaultWaitTimeout,
			},
		},
		Action: runDevices,
	}
}

func runDevices(c *cli.Context) error {
	root := c.String("root")
	if root == "" {
		if c.Bool("wait") {
			return cli.Exit("--wait needs --root", 2)
		}
		ctx, cancel := context.WithTimeout(c.Context, connection.DefaultTimeout)
		defer cancel()
		devices, err := newClient(c).Devices(ctx)
		if err != nil {
			return err
		}
		return renderDevices(c, devices)
	}

	dir := volume.NewDirectory(root, volume.DefaultPollInterval)
	if !c.Bool("wait") {
		devices, err := dir.List(c.Context)
		if err != nil {
			return err
		}
		return renderDevices(c, devices)
	}

	// Volumes already mounted are reported first; skip them.
	existing, err := dir.List(c.Context)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, d := range existing {
		seen[d.ID] = true
	}

	spin := output.NewSpinner(stderr(c), fmt.Sprintf("waiting for a volume under %s", root))
	spin.Start()
	deadline := time.Now().Add(c.Duration("timeout"))
	for {
		disc, err := dir.WaitForDevice(c.Context, time.Until(deadline))
		if errors.Is(err, domain.ErrTimeout) {
			spin.Fail("no new volume within %s", c.Duration("timeout"))
			return cli.Exit("", 1)
		}
		if err != nil {
			spin.Stop()
			return err
		}
		d := disc.Descriptor()
		if seen[d.ID] {
			delete(seen, d.ID)
			continue
		}
		spin.Success("found %s", d)
		return renderDevices(c, []domain.Descriptor{d})
	}
}

func renderDevices(c *cli.Context, devices []domain.Descriptor) error {
	if devices == nil {
		devices = []domain.Descriptor{}
	}
	if ParseGlobalFlags(c).Output == output.FormatTable && len(devices) == 0 {
		fmt.Fprintln(stdout(c), "no devices")
		return nil
	}
	return render(c, devices)
}

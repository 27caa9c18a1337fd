package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/guardian/internal/cli/output"
	"github.com/yndnr/guardian/internal/core/domain"
	"github.com/yndnr/guardian/internal/device/bridge"
	"github.com/yndnr/guardian/internal/server/config"
	"github.com/yndnr/guardian/internal/telemetry/logger"
)

// EmulateCommand attaches a software token to a daemon running the
// bridge backend.
func EmulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "emulate",
		Usage: "attach an emulated device to the bridge socket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "socket", Usage: "bridge socket path", Value: config.DefaultBridgeSocket},
			&cli.StringFlag{Name: "id", Usage: "device id", Required: true},
			&cli.StringFlag{Name: "name", Usage: "device name", Value: "emulated token"},
			&cli.StringFlag{Name: "type", Usage: "device type: token, storage, other", Value: "token"},
			&cli.StringFlag{Name: "key-file", Usage: "key material served to the daemon"},
			&cli.StringSliceFlag{Name: "command", Aliases: []string{"C"}, Usage: "command to send, repeatable, in order"},
		},
		Action: runEmulate,
	}
}

func runEmulate(c *cli.Context) error {
	typ, err := domain.ParseDeviceType(c.String("type"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	var key []byte
	if path := c.String("key-file"); path != "" {
		if key, err = os.ReadFile(path); err != nil {
			return err
		}
	}

	cmds := c.StringSlice("command")
	queue := make(chan string, len(cmds))
	for _, cmd := range cmds {
		queue <- cmd
	}
	close(queue)

	e := &bridge.Emulator{
		Descriptor: domain.Descriptor{Name: c.String("name"), ID: c.String("id"), Type: typ},
		Key:        key,
		Commands:   queue,
		Outbox:     stdout(c),
		Logger:     logger.Default(),
	}

	socket := c.String("socket")
	output.OK(stderr(c), "attaching %s to %s", e.Descriptor, socket)
	if err := e.Dial(c.Context, socket); err != nil && !errors.Is(err, c.Context.Err()) {
		return fmt.Errorf("emulate: %w", err)
	}
	output.OK(stderr(c), "detached")
	return nil
}

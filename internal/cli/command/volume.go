package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/guardian/internal/cli/output"
	"github.com/yndnr/guardian/internal/core/domain"
	"github.com/yndnr/guardian/internal/device/volume"
	"github.com/yndnr/guardian/pkg/keydigest"
)

// VolumeCommand manages token volumes.
func VolumeCommand() *cli.Command {
	return &cli.Command{
		Name:  "volume",
		Usage: "provision and drive token volumes",
		Subcommands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "make a mounted volume a token",
				ArgsUsage: "DIR",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "token id (auth.key_id)", Required: true},
					&cli.StringFlag{Name: "name", Usage: "display name"},
					&cli.StringFlag{Name: "key-file", Usage: "use this key material instead of generating one"},
					&cli.BoolFlag{Name: "force", Usage: "overwrite an existing manifest"},
				},
				Action: volumeInit,
			},
			{
				Name:      "send",
				Usage:     "queue a command on a token volume",
				ArgsUsage: "DIR COMMAND",
				Action:    volumeSend,
			},
		},
	}
}

func volumeInit(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: guardian volume init DIR --id ID", 2)
	}
	dir := c.Args().First()

	if _, err := volume.ReadManifest(dir); err == nil && !c.Bool("force") {
		return cli.Exit(fmt.Sprintf("%s already has a manifest (use --force)", dir), 1)
	}

	var key []byte
	if path := c.String("key-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if len(data) > keydigest.MaxKeyBytes {
			output.Warn(stderr(c), "only the first %d bytes of the key are used", keydigest.MaxKeyBytes)
		}
		key = data
	}

	name := c.String("name")
	if name == "" {
		name = c.String("id")
	}
	digest, err := volume.Provision(dir, volume.Manifest{Name: name, ID: c.String("id"), Type: domain.DeviceToken.String()}, key)
	if err != nil {
		return err
	}

	w := stdout(c)
	output.OK(w, "provisioned %s as token %s", dir, c.String("id"))
	fmt.Fprintf(w, "\nauth:\n  key_id: %s\n  expected_key_hash: %s\n", c.String("id"), digest)
	return nil
}

func volumeSend(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: guardian volume send DIR COMMAND", 2)
	}
	dir, cmd := c.Args().Get(0), c.Args().Get(1)
	if _, ok := domain.LookupAction(cmd); !ok {
		output.Warn(stderr(c), "%s is not a known command; guardian will reject it", cmd)
	}
	if err := volume.PushCommand(dir, cmd); err != nil {
		return err
	}
	output.OK(stdout(c), "queued %s", cmd)
	return nil
}

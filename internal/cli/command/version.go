package command

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/guardian/internal/cli/connection"
	"github.com/yndnr/guardian/internal/infra/buildinfo"
)

// VersionCommand prints build information.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print build information",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "remote", Usage: "ask the running daemon instead"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("remote") {
				return render(c, buildinfo.Get())
			}
			ctx, cancel := context.WithTimeout(c.Context, connection.DefaultTimeout)
			defer cancel()
			info, err := newClient(c).Version(ctx)
			if err != nil {
				return err
			}
			return render(c, info)
		},
	}
}

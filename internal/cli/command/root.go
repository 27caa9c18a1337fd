package command

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/guardian/internal/cli/connection"
	"github.com/yndnr/guardian/internal/cli/output"
	"github.com/yndnr/guardian/internal/infra/buildinfo"
	"github.com/yndnr/guardian/internal/infra/confloader"
	"github.com/yndnr/guardian/internal/server/config"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "guardian",
		Usage:                "gate privileged local commands behind a hardware token",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Before: func(c *cli.Context) error {
			if c.Bool("no-color") {
				output.SetColor(false)
			}
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
		Commands: []*cli.Command{
			RunCommand(),
			CheckCommand(),
			StatusCommand(),
			DevicesCommand(),
			DigestCommand(),
			VolumeCommand(),
			EmulateCommand(),
			VersionCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to the YAML configuration file",
			EnvVars: []string{"GUARDIAN_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "daemon HTTP address for status queries",
			EnvVars: []string{"GUARDIAN_SERVER"},
			Value:   config.DefaultHTTPAddr,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.BoolFlag{
			Name:    "no-color",
			Usage:   "disable colored output",
			EnvVars: []string{"NO_COLOR"},
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config string
	Server string
	Output output.Format
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		format = output.FormatTable
	}
	return &GlobalFlags{
		Config: c.String("config"),
		Server: c.String("server"),
		Output: format,
	}
}

// newClient creates a daemon client from the global flags.
func newClient(c *cli.Context) *connection.Client {
	return connection.NewClient(ParseGlobalFlags(c).Server)
}

// stdout is where command results go.
func stdout(c *cli.Context) io.Writer {
	return c.App.Writer
}

// stderr is where diagnostics go.
func stderr(c *cli.Context) io.Writer {
	return c.App.ErrWriter
}

// render writes data in the format selected by --output.
func render(c *cli.Context, data any) error {
	return output.NewFormatter(ParseGlobalFlags(c).Output).Format(stdout(c), data)
}

// loadConfig loads configuration from defaults, file and environment.
func loadConfig(configFile string) (*config.GuardianConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

package command

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/guardian/internal/device/volume"
	"github.com/yndnr/guardian/pkg/keydigest"
)

// DigestCommand prints the expected_key_hash for key material.
func DigestCommand() *cli.Command {
	return &cli.Command{
		Name:      "digest",
		Usage:     "print the SHA-256 digest of key material (first 1024 bytes)",
		ArgsUsage: "[FILE|-]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "volume",
				Usage: "read the key of a provisioned volume",
			},
		},
		Action: runDigest,
	}
}

func runDigest(c *cli.Context) error {
	var (
		sum string
		err error
	)
	switch {
	case c.String("volume") != "":
		sum, err = volume.KeyDigest(c.String("volume"))
	case c.NArg() == 0 || c.Args().First() == "-":
		sum, err = keydigest.SumReader(stdin(c))
	default:
		sum, err = digestFile(c.Args().First())
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout(c), sum)
	return nil
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return keydigest.SumReader(f)
}

// stdin returns the app's input, defaulting to os.Stdin.
func stdin(c *cli.Context) io.Reader {
	if c.App.Reader != nil {
		return c.App.Reader
	}
	return os.Stdin
}

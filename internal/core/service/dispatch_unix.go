//go:build !windows

package service

import (
	"context"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	defaultPlatformDir = "nix"
	defaultShell       = "/bin/sh"
	scriptExt          = ".sh"
)

func defaultStatusCommand() []string {
	return []string{"ps", "aux"}
}

// scriptCommand runs the script as `<shell> -c <path>`.
func (d *Dispatcher) scriptCommand(ctx context.Context, path string) *exec.Cmd {
	return exec.CommandContext(ctx, d.shell, "-c", shellQuote(path))
}

func isExecutable(path string) bool {
	return unix.Access(path, unix.X_OK) == nil
}

// shellQuote wraps s in single quotes for sh -c.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

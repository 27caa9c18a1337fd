//go:build windows

package service

import (
	"context"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

const (
	defaultPlatformDir = "win"
	defaultShell       = "cmd"
	scriptExt          = ".bat"
)

func defaultStatusCommand() []string {
	return []string{"tasklist"}
}

// scriptCommand runs the script as `cmd /C <path>` without a console window.
func (d *Dispatcher) scriptCommand(ctx context.Context, path string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "cmd", "/C", path)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NO_WINDOW,
		HideWindow:    true,
	}
	return cmd
}

// Windows has no execute bit; presence is enough.
func isExecutable(path string) bool {
	return true
}

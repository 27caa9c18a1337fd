package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/yndnr/guardian/internal/core/domain"
)

// CommandHandler executes an authenticated command.
type CommandHandler interface {
	HandleCommand(ctx context.Context, command string) (string, error)
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// ScriptDir is the root of the dispatch script tree.
	ScriptDir string

	// PlatformDir is the per-platform subdirectory (default "nix" or "win").
	PlatformDir string

	// Shell runs scripts on unix-like systems (default /bin/sh).
	// Ignored on Windows, where scripts run under cmd /C.
	Shell string

	// StatusCommand overrides the process listing used by CHECK_STATUS.
	StatusCommand []string
}

// Dispatcher maps commands to dispatch scripts or a status query.
// It is stateless; every call resolves a fresh script path.
type Dispatcher struct {
	dir       string
	shell     string
	statusCmd []string
}

// NewDispatcher creates a Dispatcher. Empty fields take platform defaults.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	platformDir := cfg.PlatformDir
	if platformDir == "" {
		platformDir = defaultPlatformDir
	}
	shell := cfg.Shell
	if shell == "" {
		shell = defaultShell
	}
	statusCmd := cfg.StatusCommand
	if len(statusCmd) == 0 {
		statusCmd = defaultStatusCommand()
	}

	return &Dispatcher{
		dir:       filepath.Join(cfg.ScriptDir, platformDir),
		shell:     shell,
		statusCmd: append([]string(nil), statusCmd...),
	}
}

// HandleCommand runs the action mapped to command and returns its
// standard output.
//
// Unrecognized commands fail with domain.ErrUnknownCommand before any
// filesystem access. Scripts exiting non-zero fail with
// domain.ErrScriptExecution carrying standard error; a failing process
// listing fails with domain.ErrStatusCheck.
func (d *Dispatcher) HandleCommand(ctx context.Context, command string) (string, error) {
	action, ok := domain.LookupAction(command)
	if !ok {
		return "", domain.ErrUnknownCommand.WithDetails(command)
	}

	switch action.Kind {
	case domain.ActionStatus:
		return d.checkStatus(ctx)
	default:
		return d.runScript(ctx, action.Code)
	}
}

// ScriptPath returns the resolved path of the script for code.
func (d *Dispatcher) ScriptPath(code string) string {
	return filepath.Join(d.dir, code+scriptExt)
}

// ScriptDir returns the platform script directory.
func (d *Dispatcher) ScriptDir() string {
	return d.dir
}

// ScriptExists reports whether the script for code is present.
func (d *Dispatcher) ScriptExists(code string) bool {
	_, err := os.Stat(d.ScriptPath(code))
	return err == nil
}

// ScriptCheck is the pre-flight result for one script.
type ScriptCheck struct {
	Code       string `json:"code" yaml:"code"`
	Path       string `json:"path" yaml:"path"`
	Exists     bool   `json:"exists" yaml:"exists"`
	Executable bool   `json:"executable" yaml:"executable"`
}

// OK reports whether the script can be dispatched.
func (c ScriptCheck) OK() bool {
	return c.Exists && c.Executable
}

// Preflight checks every script in the vocabulary.
func (d *Dispatcher) Preflight() []ScriptCheck {
	codes := domain.ScriptCodes()
	checks := make([]ScriptCheck, 0, len(codes))
	for _, code := range codes {
		path := d.ScriptPath(code)
		c := ScriptCheck{Code: code, Path: path}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			c.Exists = true
			c.Executable = isExecutable(path)
		}
		checks = append(checks, c)
	}
	return checks
}

func (d *Dispatcher) runScript(ctx context.Context, code string) (string, error) {
	cmd := d.scriptCommand(ctx, d.ScriptPath(code))

	stdout, stderr, err := run(cmd)
	if err != nil {
		return "", domain.ErrScriptExecution.
			WithDetails(fmt.Sprintf("%s: %s", code, failureText(stderr, err))).
			WithCause(err)
	}
	return stdout, nil
}

func (d *Dispatcher) checkStatus(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, d.statusCmd[0], d.statusCmd[1:]...)

	stdout, stderr, err := run(cmd)
	if err != nil {
		return "", domain.ErrStatusCheck.
			WithDetails(failureText(stderr, err)).
			WithCause(err)
	}
	return stdout, nil
}

// run waits for cmd to exit and returns its captured output.
func run(cmd *exec.Cmd) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// failureText prefers the process's standard error; processes that never
// started have none, so the start error is used instead.
func failureText(stderr string, err error) string {
	msg := strings.TrimSpace(stderr)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if msg == "" {
			return fmt.Sprintf("exit status %d", exitErr.ExitCode())
		}
		return msg
	}
	if msg == "" {
		return err.Error()
	}
	return msg + ": " + err.Error()
}

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	osexec "os/exec"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/tasktree/internal/task"
)

// ErrUnsupported is returned for run kinds a host cannot perform.
var ErrUnsupported = errors.New("not supported by this host")

// RunError reports a command that exited unsuccessfully.
type RunError struct {
	RunID    string
	Command  string
	ExitCode int
	Err      error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s: %q exited with code %d", e.RunID, e.Command, e.ExitCode)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// LocalHost runs commands in a local shell. Debug configurations and
// editor tasks need an editor and are unsupported.
type LocalHost struct {
	Shell     string
	ShellArgs []string
	Stdout    io.Writer
	Stderr    io.Writer
	Logger    *slog.Logger

	// Opener is the program used by Open. Empty prints the path instead.
	Opener string
}

// NewLocalHost returns a host using $SHELL (or /bin/sh) and the process's
// standard streams. The opener comes from $VISUAL or $EDITOR.
func NewLocalHost(logger *slog.Logger) *LocalHost {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	opener := os.Getenv("VISUAL")
	if opener == "" {
		opener = os.Getenv("EDITOR")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalHost{
		Shell:     shell,
		ShellArgs: []string{"-c"},
		Opener:    opener,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Logger:    logger,
	}
}

// StartDebug is unsupported locally.
func (h *LocalHost) StartDebug(ctx context.Context, t *task.Task) error {
	return fmt.Errorf("debug %q: %w", t.Label, ErrUnsupported)
}

// RunHostTask is unsupported locally.
func (h *LocalHost) RunHostTask(ctx context.Context, t *task.Task) error {
	return fmt.Errorf("editor task %q: %w", t.Label, ErrUnsupported)
}

// Open runs the opener on path, or prints the path when none is set.
func (h *LocalHost) Open(ctx context.Context, path string) error {
	if h.Opener == "" {
		_, err := fmt.Fprintln(h.Stdout, path)
		return err
	}
	cmd := osexec.CommandContext(ctx, h.Opener, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = h.Stdout
	cmd.Stderr = h.Stderr
	return cmd.Run()
}

// SendToTerminal runs commandLine through the shell in dir and waits for
// it to exit.
func (h *LocalHost) SendToTerminal(ctx context.Context, dir, commandLine string) error {
	if commandLine == "" {
		return fmt.Errorf("empty command")
	}
	runID := uuid.NewString()

	args := append(append([]string{}, h.ShellArgs...), commandLine)
	cmd := osexec.CommandContext(ctx, h.Shell, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = h.Stdout
	cmd.Stderr = h.Stderr
	cmd.Env = append(os.Environ(), "TASKTREE_RUN_ID="+runID)

	h.Logger.Info("running task", "run_id", runID, "command", commandLine, "dir", dir)
	start := time.Now()
	err := cmd.Run()
	h.Logger.Debug("task finished", "run_id", runID, "duration", time.Since(start), "error", err)
	if err == nil {
		return nil
	}

	var exitErr *osexec.ExitError
	if errors.As(err, &exitErr) {
		return &RunError{RunID: runID, Command: commandLine, ExitCode: exitErr.ExitCode(), Err: err}
	}
	return fmt.Errorf("run %s: %w", runID, err)
}

var _ Host = (*LocalHost)(nil)

// Package dispatch routes a task run to the host facility that executes
// its type.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// ErrMissingParam is returned when a positional parameter is left empty
// while a later one has a value.
var ErrMissingParam = errors.New("missing parameter value")

// ErrInvalidOption is returned when a value is not one of a parameter's
// options.
var ErrInvalidOption = errors.New("value not among parameter options")

// Host executes runs on behalf of the dispatcher.
type Host interface {
	// StartDebug starts the named debug configuration.
	StartDebug(ctx context.Context, t *task.Task) error

	// RunHostTask runs a task defined by the host's own task system.
	RunHostTask(ctx context.Context, t *task.Task) error

	// Open shows a file to the user.
	Open(ctx context.Context, path string) error

	// SendToTerminal runs a shell command line in dir.
	SendToTerminal(ctx context.Context, dir, commandLine string) error
}

// Dispatcher routes tasks to a Host.
type Dispatcher struct {
	host Host
	root string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRoot sets the workspace root, the directory for tasks without a cwd.
func WithRoot(root string) Option {
	return func(d *Dispatcher) {
		d.root = root
	}
}

// New creates a dispatcher.
func New(host Host, opts ...Option) *Dispatcher {
	d := &Dispatcher{host: host}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dir returns the directory t runs in: its cwd, else the workspace root.
func (d *Dispatcher) Dir(t *task.Task) string {
	if t.Cwd != "" {
		return t.Cwd
	}
	return d.root
}

// Run executes t with the given parameter values.
func (d *Dispatcher) Run(ctx context.Context, t *task.Task, values map[string]string) error {
	switch t.Type {
	case task.TypeLaunch:
		return d.host.StartDebug(ctx, t)
	case task.TypeVSCode:
		return d.host.RunHostTask(ctx, t)
	case task.TypeMarkdown:
		return d.host.Open(ctx, t.FilePath)
	}

	line, err := BuildCommandLine(t, values)
	if err != nil {
		return err
	}
	return d.host.SendToTerminal(ctx, d.Dir(t), line)
}

// BuildCommandLine renders t's command with parameter values appended per
// each parameter's format. A missing value falls back to the default and
// an empty value omits the parameter, except that a positional parameter
// cannot be left out ahead of one that is given. Bracket parameters are
// joined onto the command's last word as name[a,b].
func BuildCommandLine(t *task.Task, values map[string]string) (string, error) {
	parts := []string{t.Command}
	var afterDashDash, bracket []string
	skipped := ""

	for _, p := range t.Params {
		v, ok := values[p.Name]
		if !ok {
			v = p.Default
		}
		if len(p.Options) > 0 && v != "" && !slices.Contains(p.Options, v) {
			return "", fmt.Errorf("%w: %s=%q (want one of %s)", ErrInvalidOption, p.Name, v, strings.Join(p.Options, ", "))
		}
		if p.Format == task.FormatBracket {
			bracket = append(bracket, strings.ReplaceAll(v, ",", `\,`))
			continue
		}
		if v == "" {
			if p.Format == task.FormatPositional && skipped == "" {
				skipped = p.Name
			}
			continue
		}

		q := scan.ShellQuote(v)
		switch p.Format {
		case task.FormatFlag:
			parts = append(parts, "--"+p.Name, q)
		case task.FormatFlagEquals:
			parts = append(parts, "--"+p.Name+"="+q)
		case task.FormatDash:
			parts = append(parts, "-"+p.Name, q)
		case task.FormatAssign:
			parts = append(parts, p.Name+"="+q)
		case task.FormatDashDash:
			afterDashDash = append(afterDashDash, q)
		default:
			if skipped != "" {
				return "", fmt.Errorf("%w: %s", ErrMissingParam, skipped)
			}
			parts = append(parts, q)
		}
	}

	// Rake takes empty leading arguments, so only trailing ones go.
	for len(bracket) > 0 && bracket[len(bracket)-1] == "" {
		bracket = bracket[:len(bracket)-1]
	}
	if len(bracket) > 0 {
		head, name := "", t.Command
		if i := strings.LastIndexByte(t.Command, ' '); i >= 0 {
			head, name = t.Command[:i+1], t.Command[i+1:]
		}
		parts[0] = head + scan.ShellQuote(name+"["+strings.Join(bracket, ",")+"]")
	}

	if len(afterDashDash) > 0 {
		parts = append(parts, "--")
		parts = append(parts, afterDashDash...)
	}
	return strings.Join(parts, " "), nil
}

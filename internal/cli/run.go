package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/tasktree/internal/dispatch"
	"github.com/dshills/tasktree/internal/task"
)

func newRunCmd(a *app) *cobra.Command {
	var params []string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run <task-id>",
		Short: "Run a task in a local shell",
		Long: `Run a task in a local shell.

Parameters declared by the task are given as --param name=value. A
parameter without a value falls back to its default; an empty value
omits it. Use --dry-run to print the command line instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseParams(params)
			if err != nil {
				return err
			}
			c, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeQuietly(c)

			p := c.Provider()
			t, err := p.Task(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if dryRun {
				return printDryRun(cmd, c.Dispatcher(), t, values)
			}
			host := c.Host()
			host.Stdout = cmd.OutOrStdout()
			host.Stderr = cmd.ErrOrStderr()
			return c.Dispatcher().Run(cmd.Context(), t, values)
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Parameter value as name=value (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print what would run without running it")
	return cmd
}

func parseParams(raw []string) (map[string]string, error) {
	values := make(map[string]string, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q: want name=value", kv)
		}
		values[name] = value
	}
	return values, nil
}

func printDryRun(cmd *cobra.Command, d *dispatch.Dispatcher, t *task.Task, values map[string]string) error {
	out := cmd.OutOrStdout()
	switch t.Type {
	case task.TypeLaunch:
		fmt.Fprintf(out, "debug %q\n", t.Command)
		return nil
	case task.TypeVSCode:
		fmt.Fprintf(out, "host task %q\n", t.Label)
		return nil
	case task.TypeMarkdown:
		fmt.Fprintf(out, "open %s\n", t.FilePath)
		return nil
	}
	line, err := dispatch.BuildCommandLine(t, values)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "cd %s && %s\n", d.Dir(t), line)
	return nil
}

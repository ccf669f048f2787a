// Package cli implements the tasktree command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/tasktree/internal/config"
	"github.com/dshills/tasktree/internal/container"
	"github.com/dshills/tasktree/internal/logging"
)

// app carries the global flags shared by every command.
type app struct {
	workspace  string
	configPath string
	logLevel   string
	version    string
}

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{version: version}

	root := &cobra.Command{
		Use:   "tasktree",
		Short: "Discover, tag and run the dev tasks of a workspace",
		Long: `tasktree scans a workspace for task definitions (package.json scripts,
Makefile targets, shell scripts, Gradle and Cargo tasks, and more), groups
them into a tree by type and directory, and forwards a chosen task to a
terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	root.PersistentFlags().StringVarP(&a.workspace, "workspace", "w", "", "Workspace root (default: current directory)")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default: <workspace>/"+config.DefaultFile+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(
		newListCmd(a),
		newTreeCmd(a),
		newTagsCmd(a),
		newQuickCmd(a),
		newRunCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newVersionCmd(a),
	)
	return root
}

// Execute runs the command line with args until ctx is done.
func Execute(ctx context.Context, version string, args []string) error {
	root := NewRootCommand(version)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}

func (a *app) root() (string, error) {
	if a.workspace != "" {
		return a.workspace, nil
	}
	return os.Getwd()
}

// open loads configuration and wires services for the workspace.
// Callers must Close the container.
func (a *app) open(cmd *cobra.Command) (*container.Container, error) {
	root, err := a.root()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root, config.WithFile(a.configPath))
	if err != nil {
		return nil, err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return container.New(root, cfg, logger)
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}

package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dshills/tasktree/internal/container"
	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh tasks as workspace files change and print the tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeQuietly(c)

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			p := c.Provider()
			if err := p.Refresh(ctx); err != nil {
				return err
			}
			if !quiet {
				if err := printTree(ctx, out, p, terminalWidth(out)); err != nil {
					return err
				}
			}

			var mu sync.Mutex
			refresh := func(ctx context.Context, paths []string) error {
				mu.Lock()
				defer mu.Unlock()
				if err := p.Refresh(ctx); err != nil {
					return err
				}
				reportRefresh(out, paths, p.LastResult())
				if quiet {
					return nil
				}
				return printTree(ctx, out, p, terminalWidth(out))
			}
			return runWatcher(ctx, c, refresh)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print one summary line per refresh instead of the tree")
	return cmd
}

func reportRefresh(w io.Writer, paths []string, res *task.DiscoveryResult) {
	switch len(paths) {
	case 0:
		fmt.Fprintf(w, "\nscheduled refresh: %d tasks\n", res.Total())
	case 1:
		fmt.Fprintf(w, "\n%s changed: %d tasks\n", paths[0], res.Total())
	default:
		fmt.Fprintf(w, "\n%d files changed: %d tasks\n", len(paths), res.Total())
	}
}

// runWatcher watches the container's workspace, and runs the configured
// refresh schedule, until ctx is done.
func runWatcher(ctx context.Context, c *container.Container, refresh watch.RefreshFunc) error {
	cfg := c.Config()
	w, err := watch.New(c.Root(),
		watch.WithExcludes(cfg.Discovery.Exclude),
		watch.WithFilter(relevantFilter(c)),
		watch.WithDebounce(cfg.DebounceDuration()),
		watch.WithLogger(c.Logger()),
		watch.WithEvents(c.Bus()),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	if spec := cfg.Watch.RefreshSchedule; spec != "" {
		s, err := watch.NewSchedule(ctx, spec, refresh, c.Logger())
		if err != nil {
			return err
		}
		s.Start()
		defer s.Stop()
	}
	return w.Run(ctx, refresh)
}

// relevantFilter reports whether a changed workspace relative path can
// affect the task list: a file some source parses, the tag definition
// file, or the tag store.
func relevantFilter(c *container.Container) func(rel string) bool {
	root := c.Root()
	patterns := c.Discoverer().Patterns()
	tagFile := task.RelPath(root, c.Config().TagFilePath(root))
	store := task.RelPath(root, c.Config().StorePath(root))
	return func(rel string) bool {
		return rel == tagFile || rel == store || task.MatchAny(patterns, rel)
	}
}

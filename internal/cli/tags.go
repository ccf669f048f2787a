package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/tasktree/internal/provider"
	"github.com/dshills/tasktree/internal/tags"
)

func newTagsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Inspect and edit task tags",
	}
	cmd.AddCommand(
		newTagsListCmd(a),
		newTagsInitCmd(a),
		newTagsAddCmd(a),
		newTagsRemoveCmd(a),
		newTagsReorderCmd(a),
		newTagsPatternCmd(a),
	)
	return cmd
}

func newTagsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known tags and how many tasks carry each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeQuietly(c)

			p := c.Provider()
			all, err := p.GetAllTasks(cmd.Context())
			if err != nil {
				return err
			}
			names := p.GetAllTags()
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no tags defined")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TAG\tTASKS")
			for _, name := range names {
				n := 0
				for _, t := range all {
					if t.HasTag(name) {
						n++
					}
				}
				fmt.Fprintf(tw, "%s\t%d\n", name, n)
			}
			return tw.Flush()
		},
	}
}

func newTagsInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the tag definition file from a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeQuietly(c)

			path := c.Config().TagFilePath(c.Root())
			created, err := tags.EnsureFile(path)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", path)
			}
			return nil
		},
	}
}

func newTagsAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <tag> <task-id>",
		Short: "Add a task to a tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editTags(cmd, func(p *provider.Provider) error {
				return p.AddTaskToTag(cmd.Context(), args[1], args[0])
			})
		},
	}
}

func newTagsRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <tag> <task-id>",
		Short: "Remove a task from a tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editTags(cmd, func(p *provider.Provider) error {
				return p.RemoveTaskFromTag(cmd.Context(), args[1], args[0])
			})
		},
	}
}

func newTagsReorderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <tag> <task-id>...",
		Short: "Set the display order of a tag's tasks",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editTags(cmd, func(p *provider.Provider) error {
				return p.ReorderTag(cmd.Context(), args[0], args[1:])
			})
		},
	}
}

func newTagsPatternCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pattern <tag> <pattern>",
		Short: "Append a pattern to a tag in the tag definition file",
		Long: `Append a pattern to a tag in the tag definition file.

A pattern is a task id, a task label, or a glob such as "npm:*" or "*test*"
matched against ids, labels and workspace relative paths.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeQuietly(c)

			path := c.Config().TagFilePath(c.Root())
			if err := tags.AddPattern(path, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tag %q now matches %q\n", args[0], args[1])
			return nil
		},
	}
}

// editTags runs edit against a freshly wired provider.
func (a *app) editTags(cmd *cobra.Command, edit func(*provider.Provider) error) error {
	c, err := a.open(cmd)
	if err != nil {
		return err
	}
	defer closeQuietly(c)

	if err := edit(c.Provider()); err != nil {
		if errors.Is(err, provider.ErrReadOnlyTags) {
			return fmt.Errorf("%w: set tags.dialect = %q to edit memberships, or use \"tasktree tags pattern\"", err, "store")
		}
		return err
	}
	return nil
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/tasktree/internal/provider"
	"github.com/dshills/tasktree/internal/task"
)

// taskView is the serialized form of a task in CLI output.
type taskView struct {
	ID          string   `json:"id" yaml:"id"`
	Label       string   `json:"label" yaml:"label"`
	Type        string   `json:"type" yaml:"type"`
	Category    string   `json:"category" yaml:"category"`
	Command     string   `json:"command" yaml:"command"`
	File        string   `json:"file" yaml:"file"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

func newTaskView(root string, t *task.Task) taskView {
	return taskView{
		ID:          t.ID,
		Label:       t.Label,
		Type:        string(t.Type),
		Category:    t.Category,
		Command:     t.Command,
		File:        task.RelPath(root, t.FilePath),
		Tags:        t.Tags,
		Description: t.Description,
	}
}

type listOptions struct {
	filter string
	tag    string
	json   bool
	yaml   bool
}

func newListCmd(a *app) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.json && opts.yaml {
				return errors.New("--json and --yaml are mutually exclusive")
			}
			c, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeQuietly(c)

			p := c.Provider()
			applyFilters(p, opts.filter, opts.tag)
			list, err := p.VisibleTasks(cmd.Context())
			if err != nil {
				return err
			}
			return writeTasks(cmd.OutOrStdout(), p.Root(), list, opts)
		},
	}
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only tasks whose label, category, path or description contain this text")
	cmd.Flags().StringVar(&opts.tag, "tag", "", "Only tasks carrying this tag")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print JSON")
	cmd.Flags().BoolVar(&opts.yaml, "yaml", false, "Print YAML")
	return cmd
}

func applyFilters(p *provider.Provider, text, tag string) {
	if text != "" {
		p.SetTextFilter(text)
	}
	if tag != "" {
		p.SetTagFilter(tag)
	}
}

func writeTasks(w io.Writer, root string, list []*task.Task, opts listOptions) error {
	views := make([]taskView, 0, len(list))
	for _, t := range list {
		views = append(views, newTaskView(root, t))
	}

	switch {
	case opts.json:
		data, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case opts.yaml:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return err
		}
		return enc.Close()
	}

	if len(views) == 0 {
		_, err := fmt.Fprintln(w, "no tasks found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tLABEL\tCATEGORY\tID")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Type, v.Label, v.Category, v.ID)
	}
	return tw.Flush()
}

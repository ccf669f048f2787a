package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rivo/uniseg"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dshills/tasktree/internal/provider"
	"github.com/dshills/tasktree/internal/tree"
)

func newTreeCmd(a *app) *cobra.Command {
	var filter, tag, sortOrder string
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print tasks grouped by type and folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeQuietly(c)

			p := c.Provider()
			if sortOrder != "" {
				order, err := tree.ParseSortOrder(sortOrder)
				if err != nil {
					return err
				}
				p.SetSortOrder(order)
			}
			applyFilters(p, filter, tag)

			out := cmd.OutOrStdout()
			return printTree(cmd.Context(), out, p, terminalWidth(out))
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "Only tasks whose label, category, path or description contain this text")
	cmd.Flags().StringVar(&tag, "tag", "", "Only tasks carrying this tag")
	cmd.Flags().StringVar(&sortOrder, "sort", "", "Sort order: folder, name or type")
	return cmd
}

// terminalWidth returns the column count of w when it is a terminal, or 0.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}

// treePrinter draws the provider's tree with box drawing branches,
// expanding nodes the same way a tree view would.
type treePrinter struct {
	w     io.Writer
	p     *provider.Provider
	width int
}

func printTree(ctx context.Context, w io.Writer, p *provider.Provider, width int) error {
	tp := &treePrinter{w: w, p: p, width: width}
	categories, err := p.GetChildren(ctx, nil)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		_, err := fmt.Fprintln(w, "no tasks found")
		return err
	}
	for _, cat := range categories {
		tp.line(cat.Label + " (" + cat.Description + ")")
		if err := tp.children(ctx, cat, ""); err != nil {
			return err
		}
	}
	return nil
}

func (tp *treePrinter) children(ctx context.Context, node *tree.Node, prefix string) error {
	children, err := tp.p.GetChildren(ctx, node)
	if err != nil {
		return err
	}
	for i, child := range children {
		branch, indent := "├── ", "│   "
		if i == len(children)-1 {
			branch, indent = "└── ", "    "
		}
		tp.line(prefix + branch + nodeLabel(child))
		if child.Kind != tree.KindTask {
			if err := tp.children(ctx, child, prefix+indent); err != nil {
				return err
			}
		}
	}
	return nil
}

func nodeLabel(n *tree.Node) string {
	var b strings.Builder
	b.WriteString(n.Label)
	if n.Kind == tree.KindFolder {
		b.WriteString("/")
	}
	if n.Task != nil && len(n.Task.Tags) > 0 {
		b.WriteString(" [" + strings.Join(n.Task.Tags, ", ") + "]")
	}
	if n.Description != "" && n.Kind == tree.KindTask {
		b.WriteString("  " + n.Description)
	}
	return b.String()
}

func (tp *treePrinter) line(s string) {
	fmt.Fprintln(tp.w, truncate(s, tp.width))
}

// truncate shortens s to width display columns, ending in an ellipsis.
// A width of 0 or less disables truncation.
func truncate(s string, width int) string {
	if width <= 0 || uniseg.StringWidth(s) <= width {
		return s
	}
	var b strings.Builder
	used := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		w := g.Width()
		if used+w > width-1 {
			break
		}
		b.WriteString(g.Str())
		used += w
	}
	b.WriteString("…")
	return b.String()
}

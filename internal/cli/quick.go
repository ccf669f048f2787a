package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQuickCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "quick",
		Short: "List the tasks tagged quick, in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeQuietly(c)

			p := c.Provider()
			list, err := p.QuickTasks(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 && !asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), `no quick tasks; add one with "tasktree tags add quick <task-id>"`)
				return nil
			}
			return writeTasks(cmd.OutOrStdout(), p.Root(), list, listOptions{json: asJSON})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

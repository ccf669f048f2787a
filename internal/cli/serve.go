package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	var watchFiles bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task tree over an HTTP JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeQuietly(c)

			if addr == "" {
				addr = c.Config().Server.Addr
			}
			p := c.Provider()
			if err := p.Refresh(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "serving %d tasks on http://%s/api\n", p.LastResult().Total(), addr)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return c.APIServer().Run(ctx, addr)
			})
			if watchFiles {
				g.Go(func() error {
					return runWatcher(ctx, c, func(ctx context.Context, _ []string) error {
						return p.Refresh(ctx)
					})
				})
			}
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config server.addr)")
	cmd.Flags().BoolVar(&watchFiles, "watch", false, "Refresh tasks when workspace files change")
	return cmd
}

package cli

import (
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"oversee-cli/internal/format"
)

func newSummaryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Count inbound, outbound and requisition documents of the current branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			branch, err := app.branch(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}

			var inbound, outbound, requisitions int
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				rows, err := client.InboundInvoices(ctx, branch)
				inbound = len(rows)
				return err
			})
			g.Go(func() error {
				rows, err := client.OutboundInvoices(ctx, branch)
				outbound = len(rows)
				return err
			})
			g.Go(func() error {
				rows, err := client.Requisitions(ctx, branch)
				requisitions = len(rows)
				return err
			})
			if err := g.Wait(); err != nil {
				return writeErr(cmd, err)
			}

			counts := map[string]int{
				"inbound":      inbound,
				"outbound":     outbound,
				"requisitions": requisitions,
			}
			return writeOut(cmd, app, format.Output{
				Data:   counts,
				Meta:   map[string]any{"branch": branch},
				Header: []string{"List", "Documents"},
				Rows: [][]string{
					{"inbound", strconv.Itoa(inbound)},
					{"outbound", strconv.Itoa(outbound)},
					{"requisitions", strconv.Itoa(requisitions)},
				},
			})
		},
	}
}

package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"oversee-cli/internal/checking"
	"oversee-cli/internal/listsync"
	"oversee-cli/internal/model"
)

func newInboundCheckCmd(app *App) *cobra.Command {
	var qty string

	cmd := &cobra.Command{
		Use:   "check <nf> <item-id>",
		Short: "Confirm the quantity received for one item of an inbound invoice",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			nf := strings.TrimSpace(args[0])
			id, err := strconv.ParseInt(strings.TrimSpace(args[1]), 10, 64)
			if err != nil || id <= 0 {
				return writeErr(cmd, checking.ErrInvalidItem)
			}
			q, err := decimal.NewFromString(strings.TrimSpace(qty))
			if err != nil || q.IsNegative() {
				return writeErr(cmd, checking.ErrInvalidQty)
			}

			sess, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			branch, err := app.branch(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}

			list := listsync.NewController[model.LineItem](func(ctx context.Context) ([]model.LineItem, error) {
				return client.InboundItems(ctx, branch, nf)
			})
			defer list.Dispose()
			if err := list.Load(ctx); err != nil {
				return writeErr(cmd, err)
			}

			wf := checking.New(checking.Scope{Branch: branch, DocumentID: nf, User: sess.User}, checking.ListStore{List: list}, client)
			if err := wf.Select(id); err != nil {
				if _, ok := list.Find(func(it model.LineItem) bool { return it.ID == id }); !ok {
					return writeErr(cmd, errNotFound("item", args[1]))
				}
				return writeErr(cmd, err)
			}
			if err := wf.SetQuantity(q); err != nil {
				return writeErr(cmd, err)
			}
			res, err := wf.Submit(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": res.Item,
				"meta": map[string]any{
					"branch":   branch,
					"document": nf,
					"outcome":  res.Outcome.String(),
					"state":    res.ItemState.String(),
					"reloaded": res.Reloaded,
				},
			})
		},
	}

	cmd.Flags().StringVar(&qty, "qty", "", "Quantity received (clamped to the item's quantity)")
	_ = cmd.MarkFlagRequired("qty")
	return cmd
}

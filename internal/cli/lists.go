package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"oversee-cli/internal/api"
	"oversee-cli/internal/export"
	"oversee-cli/internal/format"
	"oversee-cli/internal/listfilter"
	"oversee-cli/internal/listsync"
	"oversee-cli/internal/model"
)

// fetchList loads a whole list once and narrows it to query, the same way the
// TUI's list screens do.
func fetchList[T listfilter.Searchable](ctx context.Context, fetch listsync.FetchFunc[T], query string) (listsync.Snapshot[T], error) {
	ctrl := listsync.NewController(fetch)
	defer ctrl.Dispose()
	if err := ctrl.Load(ctx); err != nil {
		return listsync.Snapshot[T]{}, err
	}
	ctrl.SetQuery(strings.TrimSpace(query))
	return ctrl.Snapshot(), nil
}

func listOutput[T any](snap listsync.Snapshot[T], branch string, t export.Table) format.Output {
	meta := map[string]any{
		"branch": branch,
		"total":  snap.Total,
		"shown":  len(snap.Displayed),
	}
	if snap.Query != "" {
		meta["query"] = snap.Query
	}
	return format.Output{Data: snap.Displayed, Meta: meta, Header: t.Header, Rows: t.Strings()}
}

// documentKind groups the three document lists: how to fetch the headers,
// how to fetch one document's items and how to tabulate both.
type documentKind[T listfilter.Searchable] struct {
	name      string
	short     string
	docArg    string
	withCheck bool
	list      func(c *api.Client, ctx context.Context, branch string) ([]T, error)
	items     func(c *api.Client, ctx context.Context, branch, doc string) ([]model.LineItem, error)
	table     func([]T) export.Table
}

var (
	inboundKind = documentKind[model.InboundInvoice]{
		name:      "inbound",
		short:     "Inbound invoices (NF de entrada)",
		docArg:    "<nf>",
		withCheck: true,
		list:      (*api.Client).InboundInvoices,
		items:     (*api.Client).InboundItems,
		table:     export.InboundInvoicesTable,
	}
	outboundKind = documentKind[model.OutboundInvoice]{
		name:   "outbound",
		short:  "Outbound invoices (NF de saída)",
		docArg: "<nf>",
		list:   (*api.Client).OutboundInvoices,
		items:  (*api.Client).OutboundItems,
		table:  export.OutboundInvoicesTable,
	}
	requisitionsKind = documentKind[model.Requisition]{
		name:   "requisitions",
		short:  "Requisitions",
		docArg: "<number>",
		list:   (*api.Client).Requisitions,
		items:  (*api.Client).RequisitionItems,
		table:  export.RequisitionsTable,
	}
)

func newInboundCmd(app *App) *cobra.Command {
	cmd := newDocumentCmd(app, inboundKind)
	cmd.AddCommand(newInboundCheckCmd(app))
	return cmd
}

func newOutboundCmd(app *App) *cobra.Command { return newDocumentCmd(app, outboundKind) }

func newRequisitionsCmd(app *App) *cobra.Command { return newDocumentCmd(app, requisitionsKind) }

func newDocumentCmd[T listfilter.Searchable](app *App, kind documentKind[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind.name,
		Short: kind.short,
	}
	cmd.AddCommand(newDocumentListCmd(app, kind))
	cmd.AddCommand(newDocumentItemsCmd(app, kind))
	return cmd
}

func newDocumentListCmd[T listfilter.Searchable](app *App, kind documentKind[T]) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents of the current branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			branch, err := app.branch(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			snap, err := fetchList[T](ctx, func(ctx context.Context) ([]T, error) {
				return kind.list(client, ctx, branch)
			}, query)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, listOutput(snap, branch, kind.table(snap.Displayed)))
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Search text (accents and case are ignored)")
	return cmd
}

func newDocumentItemsCmd[T listfilter.Searchable](app *App, kind documentKind[T]) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "items " + kind.docArg,
		Short: "List the line items of one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			doc := strings.TrimSpace(args[0])
			branch, err := app.branch(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			snap, err := fetchList[model.LineItem](ctx, func(ctx context.Context) ([]model.LineItem, error) {
				return kind.items(client, ctx, branch, doc)
			}, query)
			if err != nil {
				return writeErr(cmd, err)
			}
			out := listOutput(snap, branch, export.LineItemsTable(snap.Displayed, kind.withCheck))
			out.Meta["document"] = doc
			return writeOut(cmd, app, out)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Search text (accents and case are ignored)")
	return cmd
}

package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"oversee-cli/internal/export"
	"oversee-cli/internal/model"
)

func newBranchesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branches",
		Short: "Branch (filial) commands",
	}
	cmd.AddCommand(newBranchesListCmd(app))
	cmd.AddCommand(newBranchesUseCmd(app))
	return cmd
}

func newBranchesListCmd(app *App) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the branches the signed-in user can work on",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			snap, err := fetchList[model.Branch](cmd.Context(), func(ctx context.Context) ([]model.Branch, error) {
				return client.Branches(ctx)
			}, query)
			if err != nil {
				return writeErr(cmd, err)
			}
			current := ""
			if sess, err := app.session(cmd.Context()); err == nil {
				current = sess.Branch.Code
			}
			return writeOut(cmd, app, listOutput(snap, current, export.BranchesTable(snap.Displayed)))
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Search by code or name")
	return cmd
}

func newBranchesUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use <code>",
		Short: "Select the branch later commands work on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			code := strings.TrimSpace(args[0])
			if _, err := app.session(ctx); err != nil {
				return writeErr(cmd, err)
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			branches, err := client.Branches(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			var picked *model.Branch
			for i := range branches {
				if branches[i].Code == code {
					picked = &branches[i]
					break
				}
			}
			if picked == nil {
				return writeErr(cmd, errNotFound("branch", code))
			}
			if err := app.store.SetBranch(ctx, *picked); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": picked})
		},
	}
}

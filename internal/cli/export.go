package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"oversee-cli/internal/export"
	"oversee-cli/internal/listfilter"
	"oversee-cli/internal/model"
)

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write lists to spreadsheets or printable sheets",
	}
	cmd.AddCommand(newExportListCmd(app, inboundKind))
	cmd.AddCommand(newExportListCmd(app, outboundKind))
	cmd.AddCommand(newExportListCmd(app, requisitionsKind))
	cmd.AddCommand(newExportInboundItemsCmd(app))
	return cmd
}

func newExportListCmd[T listfilter.Searchable](app *App, kind documentKind[T]) *cobra.Command {
	var (
		xlsxPath string
		query    string
	)

	cmd := &cobra.Command{
		Use:   kind.name,
		Short: "Export the " + kind.name + " list of the current branch",
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
			t := kind.table(snap.Displayed)
			if err := writeFile(xlsxPath, func(w io.Writer) error {
				return export.WriteXLSX(w, kind.name, t)
			}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"path": xlsxPath, "rows": len(t.Rows)}})
		},
	}

	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Spreadsheet to write")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Only export rows matching this search")
	_ = cmd.MarkFlagRequired("xlsx")
	return cmd
}

func newExportInboundItemsCmd(app *App) *cobra.Command {
	var (
		xlsxPath string
		pdfPath  string
	)

	cmd := &cobra.Command{
		Use:   "inbound-items <nf>",
		Short: "Export the items of an inbound invoice (spreadsheet or conference sheet)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (xlsxPath == "") == (pdfPath == "") {
				return writeErr(cmd, errUsage("pass exactly one of --xlsx or --pdf"))
			}
			ctx := cmd.Context()
			nf := strings.TrimSpace(args[0])
			branch, err := app.branch(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			snap, err := fetchList[model.LineItem](ctx, func(ctx context.Context) ([]model.LineItem, error) {
				return client.InboundItems(ctx, branch, nf)
			}, "")
			if err != nil {
				return writeErr(cmd, err)
			}

			path := xlsxPath
			render := func(w io.Writer) error {
				return export.WriteXLSX(w, "NF "+nf, export.LineItemsTable(snap.Displayed, true))
			}
			if pdfPath != "" {
				path = pdfPath
				sheet := export.Sheet{
					Title:     "Conferência NF " + nf,
					Subtitle:  "Filial " + branch,
					PrintedAt: time.Now(),
					Items:     snap.Displayed,
				}
				render = func(w io.Writer) error { return export.CheckingSheetPDF(w, sheet) }
			}
			if err := writeFile(path, render); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"path": path, "rows": len(snap.Displayed)}})
		},
	}

	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Spreadsheet to write")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Conference sheet (PDF) to write")
	return cmd
}

// writeFile renders into a temp file next to path and renames it into place,
// so a failed render never leaves a truncated file behind.
func writeFile(path string, render func(io.Writer) error) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errUsage("output path is empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := render(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

package cli

import (
	"github.com/spf13/cobra"

	"oversee-cli/internal/store"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Local configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := store.ConfigPath()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": app.cfg,
				"meta": map[string]any{
					"path":            path,
					"effectiveApiUrl": app.APIURL,
					"timeout":         app.timeout().String(),
					"debounce":        app.cfg.Debounce().String(),
					"navLock":         app.cfg.NavLock().String(),
				},
			})
		},
	})
	return cmd
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"oversee-cli/internal/api"
	"oversee-cli/internal/apperr"
	"oversee-cli/internal/format"
	"oversee-cli/internal/logging"
	"oversee-cli/internal/store"
	"oversee-cli/internal/tui"
)

var log = logrus.StandardLogger().WithField("package", "cli")

type App struct {
	APIURL     string
	Branch     string
	PrettyJSON bool
	Format     string
	LogLevel   string

	cfg      *store.GlobalConfig
	store    store.Store
	closeLog func() error
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "oversee",
		Short:         "Oversee: inbound/outbound invoices and requisitions from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  oversee

  # Sign in and pick a branch
  oversee login --token "$TOKEN"
  oversee branches use 1

  # Scriptable commands
  oversee inbound list --query "ração"
  oversee inbound items 1001
  oversee inbound check 1001 3 --qty 10
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				if err := runTUI(cmd.Context(), app); err != nil {
					return writeErr(cmd, err)
				}
				return nil
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		tuiMode := cmd == cmd.Root() && len(args) == 0
		if err := app.init(tuiMode); err != nil {
			return writeErr(cmd, err)
		}
		return nil
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.closeLog != nil {
			return app.closeLog()
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", envOr("OVERSEE_API_URL", os.Getenv("EXPO_PUBLIC_API_URL")), "API base URL (overrides apiUrl in config.json)")
	cmd.PersistentFlags().StringVar(&app.Branch, "branch", envOr("OVERSEE_BRANCH", ""), "Branch code (overrides the branch chosen with `oversee branches use`)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("OVERSEE_FORMAT", "json"), "Output format (json|table)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("OVERSEE_LOG_LEVEL", ""), "Log level (trace|debug|info|warn|error)")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newBranchesCmd(app))
	cmd.AddCommand(newInboundCmd(app))
	cmd.AddCommand(newOutboundCmd(app))
	cmd.AddCommand(newRequisitionsCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newSummaryCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

func (app *App) init(tuiMode bool) error {
	cfg, err := store.LoadConfig()
	if err != nil {
		return err
	}
	app.cfg = cfg
	st, err := store.Open()
	if err != nil {
		return err
	}
	app.store = st

	if app.APIURL == "" {
		app.APIURL = cfg.APIURL
	}
	level := app.LogLevel
	if level == "" {
		level = cfg.LogLevel
	}
	opts := logging.Options{Level: level}
	if tuiMode {
		opts.File = cfg.LogFile
		if opts.File == "" {
			opts.File = filepath.Join(st.Dir, "oversee.log")
		}
		if level == "" {
			opts.Level = "info"
		}
	}
	closeLog, err := logging.Setup(opts)
	if err != nil {
		return err
	}
	app.closeLog = closeLog
	return nil
}

func runTUI(ctx context.Context, app *App) error {
	client, err := app.client()
	if err != nil {
		return err
	}
	return tui.Run(ctx, tui.Options{
		Client:    client,
		Store:     app.store,
		Branch:    app.Branch,
		Debounce:  app.cfg.Debounce(),
		NavWindow: app.cfg.NavLock(),
		Profile:   app.cfg.Profile(),
	})
}

func (app *App) timeout() time.Duration {
	if v := strings.TrimSpace(os.Getenv("OVERSEE_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return app.cfg.Timeout()
}

func (app *App) client() (*api.Client, error) {
	caPath := envOr("OVERSEE_CA_PATH", app.cfg.CAPath)
	return api.New(api.Config{
		BaseURL: app.APIURL,
		Timeout: app.timeout(),
		CAPath:  caPath,
		Tokens:  app.store,
	})
}

func (app *App) session(ctx context.Context) (store.Session, error) {
	return app.store.LoadSession(ctx)
}

// branch resolves the branch code: --branch/OVERSEE_BRANCH, then the session.
func (app *App) branch(ctx context.Context) (string, error) {
	if b := strings.TrimSpace(app.Branch); b != "" {
		return b, nil
	}
	sess, err := app.session(ctx)
	if err != nil && !errors.Is(err, store.ErrNoSession) {
		return "", err
	}
	if sess.HasBranch() {
		return sess.Branch.Code, nil
	}
	return "", errors.New("no branch selected; run `oversee branches use <code>` (or pass --branch)")
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

// writeErr prints the user-facing message once; the process then exits non-zero.
func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), apperr.UserMessage(err))
	return err
}

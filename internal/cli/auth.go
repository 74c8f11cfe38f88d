package cli

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"oversee-cli/internal/model"
	"oversee-cli/internal/store"
)

func newLoginCmd(app *App) *cobra.Command {
	var (
		token    string
		userID   string
		userName string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the bearer token used for API calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			token = strings.TrimSpace(token)
			if token == "" {
				return writeErr(cmd, errUsage("--token is required"))
			}
			user, err := store.UserFromToken(token)
			if err != nil {
				log.WithError(err).Debug("token carries no readable claims")
			}
			if v := strings.TrimSpace(userID); v != "" {
				user.ID = v
			}
			if v := strings.TrimSpace(userName); v != "" {
				user.Name = v
			}
			if user.ID == "" {
				return writeErr(cmd, errUsage("could not read the user from the token; pass --user-id"))
			}

			sess := store.Session{Token: token, User: user, UpdatedAt: time.Now().UTC()}
			// Keep the chosen branch when the same user signs in again.
			if prev, err := app.session(cmd.Context()); err == nil && prev.User.ID == user.ID {
				sess.Branch = prev.Branch
			}
			if err := app.store.SaveSession(cmd.Context(), sess); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": sess})
		},
	}

	cmd.Flags().StringVar(&token, "token", envOr("OVERSEE_TOKEN", ""), "Bearer token")
	cmd.Flags().StringVar(&userID, "user-id", "", "User id (when the token does not carry one)")
	cmd.Flags().StringVar(&userName, "user-name", "", "User display name")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := app.session(ctx)
			if errors.Is(err, store.ErrNoSession) {
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"loggedOut": false}})
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			// The server side is best-effort; the local session goes regardless.
			if app.APIURL != "" {
				if client, err := app.client(); err == nil {
					if err := client.Logout(ctx); err != nil {
						log.WithError(err).Warn("server logout failed")
					}
				}
			}
			if err := app.store.ClearSession(ctx); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"loggedOut": true, "user": sess.User}})
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.session(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			var branch *model.Branch
			if sess.HasBranch() {
				b := sess.Branch
				branch = &b
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"user":      sess.User,
				"branch":    branch,
				"apiUrl":    app.APIURL,
				"updatedAt": sess.UpdatedAt,
			}})
		},
	}
}

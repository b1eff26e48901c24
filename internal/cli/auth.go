package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	apperrors "upstox-analyst/internal/errors"
)

// addAuthCommands adds authentication commands.
func addAuthCommands(rootCmd *cobra.Command, app *App) {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication with Upstox",
		Long:  "Login, logout, and check authentication status with the Upstox API.",
	}

	authCmd.AddCommand(newLoginCmd(app))
	authCmd.AddCommand(newLogoutCmd(app))
	authCmd.AddCommand(newAuthStatusCmd(app))

	rootCmd.AddCommand(authCmd)
}

func newLoginCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to Upstox",
		Long: `Opens the Upstox authorization page in your browser and waits for the
redirect. The access token is stored locally and is valid until the next
03:30 IST token lapse.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Info("Opening browser for Upstox authorization...")
			output.Dim("Waiting for redirect (up to 2 minutes)")

			session, err := app.Auth.Login(cmd.Context())
			if err != nil {
				if errors.Is(err, apperrors.ErrInvalidCredentials) {
					output.Error("Login failed: %v", err)
					output.Println("Set UPSTOX_CLIENT_ID and UPSTOX_CLIENT_SECRET, or add them to credentials.toml.")
					return err
				}
				output.Error("Login failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{
					"status":     "authenticated",
					"expires_at": session.ExpiresAt.Format(time.RFC3339),
				})
			}
			output.Success("✓ Logged in to Upstox")
			output.Printf("Session valid until %s\n", session.ExpiresAt.Format("02 Jan 2006 15:04 MST"))
			return nil
		},
	}
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored Upstox session",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Auth.Logout(); err != nil {
				output.Error("Logout failed: %v", err)
				return err
			}
			output.Success("✓ Logged out")
			return nil
		},
	}
}

func newAuthStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			session, err := app.Auth.Status()
			switch {
			case err == nil:
				if output.IsJSON() {
					return output.JSON(map[string]string{
						"status":     "authenticated",
						"expires_at": session.ExpiresAt.Format(time.RFC3339),
					})
				}
				output.Success("Authenticated")
				output.Printf("Session valid until %s\n", session.ExpiresAt.Format("02 Jan 2006 15:04 MST"))
			case errors.Is(err, apperrors.ErrSessionExpired):
				if output.IsJSON() {
					return output.JSON(map[string]string{"status": "expired"})
				}
				output.Warning("Session expired, run 'upstox-analyst auth login'")
			case errors.Is(err, apperrors.ErrNotAuthenticated):
				if output.IsJSON() {
					return output.JSON(map[string]string{"status": "not_authenticated"})
				}
				output.Warning("Not logged in, run 'upstox-analyst auth login'")
			default:
				return err
			}
			return nil
		},
	}
}

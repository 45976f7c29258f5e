package commands

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/launchkit-dev/launchkit/internal/cli/userconfig"
)

// NewLoginCmd creates the login command
func NewLoginCmd(opts ...Option) *cobra.Command {
	var email, password, serverAlias string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a launchkit server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, newDeps(opts), serverAlias, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set LAUNCHKIT_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set LAUNCHKIT_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias to use")

	return cmd
}

func runLogin(cmd *cobra.Command, d *deps, serverAlias, email, password string) error {
	out := cmd.OutOrStdout()

	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("LAUNCHKIT_EMAIL")
	}
	if password == "" {
		password = os.Getenv("LAUNCHKIT_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or LAUNCHKIT_EMAIL env var)")
	}

	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or LAUNCHKIT_PASSWORD env var)")
		}
		fmt.Fprint(out, "Password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(bytePassword)
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "Logging in to %s (%s)...\n", server.Alias, server.URL)

	resp, err := d.newClient(server.URL).SignIn(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := d.tokens.SaveToken(server.URL, resp.Token); err != nil {
		return fmt.Errorf("failed to save authentication token: %w", err)
	}
	if err := userconfig.RememberSession(server.URL, resp.User.Email, time.Now()); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to record session")
	}

	fmt.Fprintln(out, "✓ Login successful!")
	if resp.User.Name != "" {
		fmt.Fprintf(out, "  User: %s (%s)\n", resp.User.Name, resp.User.Email)
	} else {
		fmt.Fprintf(out, "  User: %s\n", resp.User.Email)
	}

	return nil
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/launchkit-dev/launchkit/internal/authui"
	"github.com/launchkit-dev/launchkit/internal/cli/userconfig"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(opts ...Option) *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out of a launchkit server",
		Long: `Sign out of a launchkit server.

The session is revoked on the server and the stored token is removed.
If the server cannot be reached the local token is still removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd, newDeps(opts), serverAlias)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias to use")

	return cmd
}

func runLogout(cmd *cobra.Command, d *deps, serverAlias string) error {
	out := cmd.OutOrStdout()

	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	provider := &cliSessionProvider{
		api:       d.newClient(server.URL),
		tokens:    d.tokens,
		serverURL: server.URL,
	}

	fmt.Fprintf(out, "Signing out of %s (%s)...\n", server.Alias, server.URL)

	nav := &cliNavigator{}
	flow := authui.NewLogoutFlow(provider, nav, d.logger)
	if err := flow.Run(cmd.Context()); err != nil {
		return err
	}
	d.sessions.Clear()
	if err := userconfig.ForgetSession(server.URL); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to clear last known session")
	}

	fmt.Fprintln(out, "✓ Signed out")
	fmt.Fprintf(out, "Run '%s' to sign in again.\n", commandFor(nav.Target()))

	return nil
}

package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/launchkit-dev/launchkit/internal/authui"
	"github.com/launchkit-dev/launchkit/internal/cli/config"
	"github.com/launchkit-dev/launchkit/internal/cli/userconfig"
)

// NewStatusCmd creates the status command
func NewStatusCmd(opts ...Option) *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show who you are signed in as",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, newDeps(opts), serverAlias)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias to use")

	return cmd
}

func runStatus(cmd *cobra.Command, d *deps, serverAlias string) error {
	ctx := cmd.Context()
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

	known, hasKnown, err := userconfig.LastSession(server.URL)
	if err != nil {
		d.logger.Warn().Err(err).Msg("Failed to read last known session")
	}

	// Load before subscribing so the first snapshot belongs to this query
	d.sessions.Load(ctx, provider.GetSession)
	updates, unsubscribe := d.sessions.Subscribe()
	defer unsubscribe()

	for {
		select {
		case snap := <-updates:
			view := authui.Render(snap)
			if view.Kind == authui.StatusLoading {
				printLoading(out, server, known, hasKnown)
				continue
			}
			printStatus(out, server, view)
			rememberStatus(d, server.URL, view)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func printLoading(out io.Writer, server *config.Server, known userconfig.KnownSession, hasKnown bool) {
	if hasKnown {
		fmt.Fprintf(out, "Loading session from %s (last signed in as %s)...\n", server.URL, known.Email)
		return
	}
	fmt.Fprintf(out, "Loading session from %s...\n", server.URL)
}

// rememberStatus keeps the user state in step with what the server reported
func rememberStatus(d *deps, serverURL string, view authui.StatusView) {
	var err error
	if view.Kind == authui.StatusSignedIn {
		err = userconfig.RememberSession(serverURL, view.Email, time.Now())
	} else {
		err = userconfig.ForgetSession(serverURL)
	}
	if err != nil {
		d.logger.Warn().Err(err).Msg("Failed to update last known session")
	}
}

func printStatus(out io.Writer, server *config.Server, view authui.StatusView) {
	switch view.Kind {
	case authui.StatusSignedIn:
		fmt.Fprintf(out, "Signed in to %s as %s\n", server.Alias, view.Email)
	default:
		fmt.Fprintf(out, "Not signed in to %s\n", server.Alias)
	}

	for _, action := range view.Actions {
		fmt.Fprintf(out, "  %s: run '%s'\n", action.Label, commandFor(action.Route))
	}
}

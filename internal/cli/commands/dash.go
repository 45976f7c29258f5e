package commands

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"
)

// NewDashCmd creates the dash command
func NewDashCmd(opts ...Option) *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "dash",
		Short: "Open the web app in browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := newDeps(opts)

			server, err := getSelectedServer(serverAlias)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Opening %s (%s)...\n", server.Alias, server.URL)

			if err := d.openBrowser(server.URL); err != nil {
				return fmt.Errorf("failed to open browser: %w\nPlease visit: %s", err, server.URL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias to use")

	return cmd
}

// openBrowser opens the URL in the default browser
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

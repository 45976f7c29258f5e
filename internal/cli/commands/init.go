package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/launchkit-dev/launchkit/internal/cli/config"
)

// NewInitCmd creates the init command
func NewInitCmd(opts ...Option) *cobra.Command {
	var alias string
	var skipBrowser bool

	cmd := &cobra.Command{
		Use:   "init <server-url>",
		Short: "Register a launchkit server in this project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, newDeps(opts), args[0], alias, skipBrowser)
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "Alias for the server (defaults to production, then server-N)")
	cmd.Flags().BoolVar(&skipBrowser, "no-browser", false, "Do not open the sign up page")

	return cmd
}

func runInit(cmd *cobra.Command, d *deps, rawURL, alias string, skipBrowser bool) error {
	out := cmd.OutOrStdout()

	serverURL, err := config.NormalizeServerURL(rawURL)
	if err != nil {
		return err
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Fprintf(out, "Found existing %s\n", config.ConfigFileName)
	} else {
		cfg = &config.Config{
			Servers: []config.Server{},
		}
		isNewConfig = true
	}

	if _, err := cfg.GetServerByURL(serverURL); err == nil {
		fmt.Fprintf(out, "Server %s already exists in %s\n", serverURL, config.ConfigFileName)
	} else {
		if alias == "" {
			if len(cfg.Servers) == 0 {
				alias = "production"
			} else {
				alias = fmt.Sprintf("server-%d", len(cfg.Servers)+1)
			}
		}
		if _, err := cfg.GetServerByAlias(alias); err == nil {
			return fmt.Errorf("alias '%s' is already used in %s", alias, config.ConfigFileName)
		}

		cfg.Servers = append(cfg.Servers, config.Server{
			URL:   serverURL,
			Alias: alias,
		})

		if err := config.Save(configPath, cfg); err != nil {
			return err
		}

		if isNewConfig {
			fmt.Fprintf(out, "✓ Created ./%s with server %s (%s)\n", config.ConfigFileName, serverURL, alias)
		} else {
			fmt.Fprintf(out, "✓ Added server %s (%s) to ./%s\n", serverURL, alias, config.ConfigFileName)
		}
	}

	signupURL := serverURL + "/signup"
	if !skipBrowser {
		fmt.Fprintf(out, "\nOpening sign up page at %s...\n", signupURL)
		if err := d.openBrowser(signupURL); err != nil {
			fmt.Fprintf(out, "⚠ Could not open browser automatically: %v\n", err)
			fmt.Fprintf(out, "Please visit: %s\n", signupURL)
		}
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintf(out, "  1. Create an account at %s\n", signupURL)
	fmt.Fprintln(out, "  2. Run 'launchkit login' to authenticate")

	return nil
}

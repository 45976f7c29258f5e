package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/launchkit-dev/launchkit/internal/cli/auth"
	"github.com/launchkit-dev/launchkit/internal/cli/client"
	"github.com/launchkit-dev/launchkit/internal/cli/config"
	"github.com/launchkit-dev/launchkit/internal/cli/serverselect"
	"github.com/launchkit-dev/launchkit/internal/session"
)

// deps are the collaborators shared by the commands. Tests swap them through
// Options; the defaults talk to the OS keyring and the real server.
type deps struct {
	tokens      auth.TokenStore
	newClient   func(baseURL string) *client.Client
	sessions    *session.Store
	openBrowser func(url string) error
	logger      zerolog.Logger
}

// Option overrides a command dependency
type Option func(*deps)

// WithTokenStore replaces the keyring-backed token store
func WithTokenStore(store auth.TokenStore) Option {
	return func(d *deps) { d.tokens = store }
}

// WithClientFactory replaces how API clients are built
func WithClientFactory(fn func(baseURL string) *client.Client) Option {
	return func(d *deps) { d.newClient = fn }
}

// WithSessionStore replaces the process-wide session store
func WithSessionStore(store *session.Store) Option {
	return func(d *deps) { d.sessions = store }
}

// WithBrowser replaces the function that opens URLs
func WithBrowser(fn func(url string) error) Option {
	return func(d *deps) { d.openBrowser = fn }
}

// WithLogger sets the logger used for warnings
func WithLogger(logger zerolog.Logger) Option {
	return func(d *deps) { d.logger = logger }
}

func newDeps(opts []Option) *deps {
	d := &deps{
		tokens: auth.Default,
		newClient: func(baseURL string) *client.Client {
			return client.New(baseURL)
		},
		sessions:    session.Default,
		openBrowser: openBrowser,
		logger: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.WarnLevel).
			With().Timestamp().Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// getSelectedServer loads the config and returns the selected server.
// This is common logic used by most commands.
// If you need the config object itself, call config.LoadFromCurrentDir() separately.
func getSelectedServer(alias string) (*config.Server, error) {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'launchkit init' to create a configuration file", err)
	}

	server, err := serverselect.ResolveServer(cfg, alias)
	if err != nil {
		return nil, err
	}

	if server.URL == "" {
		return nil, fmt.Errorf("server URL is empty. Please edit %s and add a valid URL", config.ConfigFileName)
	}

	return server, nil
}

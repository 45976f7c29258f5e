package commands

import (
	"context"
	"errors"
	"sync"

	"github.com/launchkit-dev/launchkit/internal/authui"
	"github.com/launchkit-dev/launchkit/internal/cli/auth"
	"github.com/launchkit-dev/launchkit/internal/cli/client"
)

// cliSessionProvider backs the session with the token stored in the keyring
// for one server
type cliSessionProvider struct {
	api       *client.Client
	tokens    auth.TokenStore
	serverURL string
}

func (p *cliSessionProvider) GetSession(ctx context.Context) (*authui.Session, error) {
	token, err := p.tokens.LoadToken(p.serverURL)
	if errors.Is(err, auth.ErrNotLoggedIn) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p.api.GetSession(ctx, token)
}

// SignOut revokes the session on the server and forgets the local token.
// The local token is removed even when the server call fails.
func (p *cliSessionProvider) SignOut(ctx context.Context) error {
	token, err := p.tokens.LoadToken(p.serverURL)
	if errors.Is(err, auth.ErrNotLoggedIn) {
		return nil
	}
	if err != nil {
		return err
	}

	signOutErr := p.api.SignOut(ctx, token)
	if err := p.tokens.DeleteToken(p.serverURL); err != nil {
		return errors.Join(signOutErr, err)
	}
	return signOutErr
}

// commandFor maps a route to the command that performs it
func commandFor(route string) string {
	switch route {
	case authui.LoginPath:
		return "launchkit login"
	case authui.LogoutPath:
		return "launchkit logout"
	default:
		return "launchkit dash"
	}
}

// cliNavigator records where a flow sent the user so the command can name
// the next step once the flow has finished
type cliNavigator struct {
	mu     sync.Mutex
	target string
}

func (n *cliNavigator) Replace(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.target = path
}

func (n *cliNavigator) Push(path string) {
	n.Replace(path)
}

// Target returns the last route navigated to
func (n *cliNavigator) Target() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target
}

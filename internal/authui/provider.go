// Package authui presents the authentication state and runs the sign-out flow.
//
// It consumes two capabilities: a SessionProvider that owns the session
// (lookup and sign-out) and a Navigator that moves the user between routes.
// The HTTP server and the CLI each supply their own implementations.
package authui

import (
	"context"
	"fmt"
	"time"
)

// Routes surfaced by the flows
const (
	LoginPath  = "/login"
	LogoutPath = "/logout"
)

// User is the identity attached to a session
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is the current authenticated identity. A nil *Session means
// unauthenticated.
type Session struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// Snapshot is the observable session state: the session (if any) and
// whether the lookup is still in flight.
type Snapshot struct {
	Session *Session
	Pending bool
}

// SessionProvider supplies session state and the sign-out capability.
// SignOut blocks until the provider answers; callers that must not block
// run it on their own goroutine.
type SessionProvider interface {
	GetSession(ctx context.Context) (*Session, error)
	SignOut(ctx context.Context) error
}

// Navigator moves the user to another route
type Navigator interface {
	// Replace swaps the current history entry, so back-navigation cannot
	// return to the previous screen
	Replace(path string)
	// Push is normal forward navigation
	Push(path string)
}

// SignOutFailure is raised when the provider could not sign out
type SignOutFailure struct {
	Err error
}

func (e *SignOutFailure) Error() string {
	return fmt.Sprintf("sign out failed: %v", e.Err)
}

func (e *SignOutFailure) Unwrap() error {
	return e.Err
}

package auth

import "time"

// SessionData represents the authenticated session context for a request
type SessionData struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`

	// Token is the raw session token the request presented
	Token string `json:"-"`

	// Refreshed is set when the lookup extended the session expiry
	Refreshed bool `json:"-"`
}

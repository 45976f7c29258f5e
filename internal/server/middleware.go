package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/launchkit-dev/launchkit/internal/auth"
)

const (
	bearerPrefix = "Bearer "

	// SessionCookieName carries the session token for browsers
	SessionCookieName = "launchkit.session_token"

	sessionContextKey = "session"
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set(sessionContextKey, sessionData)
}

// GetSessionData returns the session resolved by SessionMiddleware, if any
func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get(sessionContextKey)
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok && sessionData != nil
}

func extractBearerToken(authHeader string) string {
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
}

// requestToken returns the session token of the request. The Authorization
// header wins over the cookie so the CLI is never confused by a stale cookie.
func requestToken(c *gin.Context) (token string, fromCookie bool) {
	if token := extractBearerToken(c.GetHeader("Authorization")); token != "" {
		return token, false
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

func (s *Server) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, maxAge, "/", "", s.config.Auth.CookieSecure, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", s.config.Auth.CookieSecure, true)
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.AbortWithStatusJSON(statusCode, gin.H{"error": message})
}

// SessionMiddleware resolves the session of the request without enforcing it.
// Browsers presenting a dead session cookie get it cleared; a sliding refresh
// re-issues the cookie with the new expiry.
func (s *Server) SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, fromCookie := requestToken(c)
		if token == "" {
			c.Next()
			return
		}

		sessionData, err := s.auth.GetSession(c.Request.Context(), token)
		switch {
		case err == nil:
			setSession(c, sessionData)
			if fromCookie && sessionData.Refreshed {
				s.setSessionCookie(c, token, sessionData.ExpiresAt)
			}
		case errors.Is(err, auth.ErrSessionNotFound), errors.Is(err, auth.ErrInvalidToken):
			if fromCookie {
				s.clearSessionCookie(c)
			}
		default:
			s.logger.Error().Err(err).Msg("Failed to resolve session")
		}

		c.Next()
	}
}

// RequireSession rejects requests without a valid session
func (s *Server) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetSessionData(c); !ok {
			respondWithError(c, s.logger, http.StatusUnauthorized, errors.New("no session"), "Unauthorized")
			return
		}
		c.Next()
	}
}

// loggingMiddleware logs every request with zerolog and records request metrics
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), duration)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

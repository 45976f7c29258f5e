package server

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	csrfSessionKey = "csrf_token"
	csrfFormField  = "csrf_token"
)

// issueCSRFToken returns the CSRF token of the form session, creating one if needed
func issueCSRFToken(c *gin.Context) (string, error) {
	session := sessions.Default(c)
	if token, ok := session.Get(csrfSessionKey).(string); ok && token != "" {
		return token, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}
	token := hex.EncodeToString(buf)

	session.Set(csrfSessionKey, token)
	if err := session.Save(); err != nil {
		return "", fmt.Errorf("failed to save form session: %w", err)
	}
	return token, nil
}

// validCSRFToken compares the submitted form token with the session one
func validCSRFToken(c *gin.Context) bool {
	expected, _ := sessions.Default(c).Get(csrfSessionKey).(string)
	submitted := c.PostForm(csrfFormField)
	if expected == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1
}

package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/launchkit-dev/launchkit/internal/auth"
	"github.com/launchkit-dev/launchkit/internal/models"
)

// SignUpRequest represents an email sign-up request
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignInRequest represents an email sign-in request
type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserDetail represents user information returned in responses
type UserDetail struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	Image         string    `json:"image,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// AuthResponse is returned by sign-up and sign-in
type AuthResponse struct {
	Redirect bool       `json:"redirect"`
	Token    string     `json:"token"`
	User     UserDetail `json:"user"`
}

// SessionDetail is the session part of the get-session response
type SessionDetail struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionUser is the user part of the get-session response
type SessionUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SessionResponse is returned by get-session for an authenticated request
type SessionResponse struct {
	Session SessionDetail `json:"session"`
	User    SessionUser   `json:"user"`
}

func userDetail(u models.User) UserDetail {
	return UserDetail{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Image:         u.Image,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// authErrorStatus maps auth errors to a status code and a user-facing message
func authErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrEmailPasswordDisabled):
		return http.StatusBadRequest, "Email and password authentication is not enabled"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusUnprocessableEntity, "User already exists"
	case errors.Is(err, auth.ErrInvalidEmail):
		return http.StatusBadRequest, "Invalid email"
	case errors.Is(err, auth.ErrPasswordTooShort):
		return http.StatusBadRequest, "Password too short"
	case errors.Is(err, auth.ErrPasswordTooLong):
		return http.StatusBadRequest, "Password too long"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// @Summary Sign up with email
// @Description Creates a user with an email/password account and opens a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignUpRequest true "Sign-up request"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/auth/sign-up/email [post]
func (s *Server) signUpEmail(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.auth.SignUpEmail(c.Request.Context(), auth.SignUpInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	s.metrics.RecordSignUp(err == nil)
	if err != nil {
		status, message := authErrorStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error().Err(err).Msg("Failed to sign up")
		}
		c.JSON(status, gin.H{"error": message})
		return
	}

	s.setSessionCookie(c, result.Token, result.ExpiresAt)
	s.logger.Info().Str("user_id", result.User.ID).Str("email", result.User.Email).Msg("User signed up")

	c.JSON(http.StatusOK, AuthResponse{
		Token: result.Token,
		User:  userDetail(result.User),
	})
}

// @Summary Sign in with email
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignInRequest true "Sign-in request"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/sign-in/email [post]
func (s *Server) signInEmail(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.auth.SignInEmail(c.Request.Context(), auth.SignInInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	s.metrics.RecordSignIn(err == nil)
	if err != nil {
		status, message := authErrorStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error().Err(err).Msg("Failed to sign in")
		}
		c.JSON(status, gin.H{"error": message})
		return
	}

	s.setSessionCookie(c, result.Token, result.ExpiresAt)
	s.logger.Info().Str("user_id", result.User.ID).Str("email", result.User.Email).Msg("User signed in")

	c.JSON(http.StatusOK, AuthResponse{
		Token: result.Token,
		User:  userDetail(result.User),
	})
}

// @Summary Get session
// @Description Returns the current session, or null when unauthenticated
// @Tags auth
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /api/auth/get-session [get]
func (s *Server) getSession(c *gin.Context) {
	sessionData, ok := GetSessionData(c)
	if !ok {
		c.JSON(http.StatusOK, nil)
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		Session: SessionDetail{
			ID:        sessionData.SessionID,
			UserID:    sessionData.UserID,
			ExpiresAt: sessionData.ExpiresAt,
		},
		User: SessionUser{
			ID:    sessionData.UserID,
			Name:  sessionData.Name,
			Email: sessionData.Email,
		},
	})
}

// @Summary Sign out
// @Description Revokes the current session and clears the session cookie
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/auth/sign-out [post]
func (s *Server) signOut(c *gin.Context) {
	token, fromCookie := requestToken(c)
	if fromCookie {
		s.clearSessionCookie(c)
	}
	if token == "" {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	err := s.auth.SignOut(c.Request.Context(), token)
	if errors.Is(err, auth.ErrInvalidToken) {
		// Nothing to revoke
		err = nil
	}
	s.metrics.RecordSignOut(err == nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to sign out")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign out"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/launchkit-dev/launchkit/internal/auth"
	"github.com/launchkit-dev/launchkit/internal/authui"
)

type stackItem struct {
	Name        string
	Description string
}

var stack = []stackItem{
	{"Gin", "HTTP router and HTML rendering"},
	{"PostgreSQL / SQLite", "Relational database"},
	{"GORM", "ORM and schema migration"},
	{"MinIO (S3)", "Object storage"},
	{"Sessions", "Email and password authentication"},
	{"Asynq", "Background jobs on Redis"},
	{"Prometheus", "Metrics"},
	{"zerolog", "Structured logging"},
	{"Cobra", "Command-line client"},
}

type homeData struct {
	Title  string
	Stack  []stackItem
	Status authui.StatusView
}

type formData struct {
	Title     string
	CSRFToken string
	Error     string
	Name      string
	Email     string
}

// toSession converts auth session data to the presentation session
func toSession(data *auth.SessionData) *authui.Session {
	if data == nil {
		return nil
	}
	return &authui.Session{
		ID:        data.SessionID,
		ExpiresAt: data.ExpiresAt,
		User: authui.User{
			ID:    data.UserID,
			Name:  data.Name,
			Email: data.Email,
		},
	}
}

func (s *Server) homePage(c *gin.Context) {
	var snapshot authui.Snapshot
	if data, ok := GetSessionData(c); ok {
		snapshot.Session = toSession(data)
	}

	c.HTML(http.StatusOK, "home.tmpl", homeData{
		Title:  "launchkit",
		Stack:  stack,
		Status: authui.Render(snapshot),
	})
}

func (s *Server) renderForm(c *gin.Context, name string, status int, data formData) {
	token, err := issueCSRFToken(c)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to issue csrf token")
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}
	data.CSRFToken = token
	c.HTML(status, name, data)
}

func (s *Server) loginPage(c *gin.Context) {
	if _, ok := GetSessionData(c); ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	s.renderForm(c, "login.tmpl", http.StatusOK, formData{Title: "Sign In"})
}

func (s *Server) submitLogin(c *gin.Context) {
	data := formData{
		Title: "Sign In",
		Email: strings.TrimSpace(c.PostForm("email")),
	}

	if !validCSRFToken(c) {
		data.Error = "Your form expired, please try again"
		s.renderForm(c, "login.tmpl", http.StatusForbidden, data)
		return
	}

	result, err := s.auth.SignInEmail(c.Request.Context(), auth.SignInInput{
		Email:     data.Email,
		Password:  c.PostForm("password"),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	s.metrics.RecordSignIn(err == nil)
	if err != nil {
		status, message := authErrorStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error().Err(err).Msg("Failed to sign in")
		}
		data.Error = message
		s.renderForm(c, "login.tmpl", status, data)
		return
	}

	s.setSessionCookie(c, result.Token, result.ExpiresAt)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) signupPage(c *gin.Context) {
	if _, ok := GetSessionData(c); ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	s.renderForm(c, "signup.tmpl", http.StatusOK, formData{Title: "Sign Up"})
}

func (s *Server) submitSignup(c *gin.Context) {
	data := formData{
		Title: "Sign Up",
		Name:  strings.TrimSpace(c.PostForm("name")),
		Email: strings.TrimSpace(c.PostForm("email")),
	}

	if !validCSRFToken(c) {
		data.Error = "Your form expired, please try again"
		s.renderForm(c, "signup.tmpl", http.StatusForbidden, data)
		return
	}

	result, err := s.auth.SignUpEmail(c.Request.Context(), auth.SignUpInput{
		Name:      data.Name,
		Email:     data.Email,
		Password:  c.PostForm("password"),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	s.metrics.RecordSignUp(err == nil)
	if err != nil {
		status, message := authErrorStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error().Err(err).Msg("Failed to sign up")
		}
		data.Error = message
		s.renderForm(c, "signup.tmpl", status, data)
		return
	}

	s.setSessionCookie(c, result.Token, result.ExpiresAt)
	c.Redirect(http.StatusSeeOther, "/")
}

// logoutPage runs the logout flow for the request's session. The page renders
// nothing: the response is always a redirect to the login route.
func (s *Server) logoutPage(c *gin.Context) {
	token, _ := requestToken(c)

	nav := &redirectNavigator{}
	flow := authui.NewLogoutFlow(&serverSessionProvider{auth: s.auth, token: token}, nav, s.logger)

	if err := flow.Run(c.Request.Context()); err != nil {
		// Client went away before the provider answered
		s.logger.Debug().Err(err).Msg("Logout request cancelled")
		c.Abort()
		return
	}

	s.metrics.RecordSignOut(flow.Failure() == nil)
	s.clearSessionCookie(c)
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusSeeOther, nav.Target())
}

// serverSessionProvider is the session provider of one HTTP request
type serverSessionProvider struct {
	auth  *auth.Auth
	token string
}

func (p *serverSessionProvider) GetSession(ctx context.Context) (*authui.Session, error) {
	if p.token == "" {
		return nil, nil
	}
	data, err := p.auth.GetSession(ctx, p.token)
	if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrInvalidToken) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toSession(data), nil
}

func (p *serverSessionProvider) SignOut(ctx context.Context) error {
	if p.token == "" {
		return nil
	}
	err := p.auth.SignOut(ctx, p.token)
	if errors.Is(err, auth.ErrInvalidToken) {
		return nil
	}
	return err
}

// redirectNavigator records where the flow navigated. The handler turns the
// target into a 303 once the flow completes, so the flow goroutine never
// touches the response.
type redirectNavigator struct {
	mu     sync.Mutex
	target string
}

func (n *redirectNavigator) Replace(path string) {
	n.mu.Lock()
	n.target = path
	n.mu.Unlock()
}

func (n *redirectNavigator) Push(path string) {
	n.Replace(path)
}

func (n *redirectNavigator) Target() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target
}

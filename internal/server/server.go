// Package server
//
// @title launchkit API
// @version 1.0
// @description Starter application API: email/password sessions and file uploads
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/launchkit-dev/launchkit/internal/auth"
	"github.com/launchkit-dev/launchkit/internal/config"
	"github.com/launchkit-dev/launchkit/internal/metrics"
	"github.com/launchkit-dev/launchkit/internal/storage"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const formSessionName = "launchkit.form"

// TaskEnqueuer is satisfied by *asynq.Client
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dependencies are the services the server is wired to
type Dependencies struct {
	DB    *gorm.DB
	Auth  *auth.Auth
	Store storage.ObjectStore

	// Queue receives background tasks. Nil runs them inline.
	Queue TaskEnqueuer

	Metrics  metrics.Recorder
	Gatherer prometheus.Gatherer
}

// Server represents the HTTP server
type Server struct {
	router      *gin.Engine
	db          *gorm.DB
	config      *config.Config
	logger      zerolog.Logger
	auth        *auth.Auth
	store       storage.ObjectStore
	queue       TaskEnqueuer
	metrics     metrics.Recorder
	gatherer    prometheus.Gatherer
	authLimiter *ipRateLimiter
	version     string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string, deps Dependencies) (*Server, error) {
	if deps.DB == nil || deps.Auth == nil || deps.Store == nil {
		return nil, errors.New("server requires a database, auth service and object store")
	}
	if cfg.Server.FormSecret == "" {
		return nil, errors.New("server requires a form secret")
	}

	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	server := &Server{
		db:          deps.DB,
		config:      cfg,
		logger:      zlog,
		auth:        deps.Auth,
		store:       deps.Store,
		queue:       deps.Queue,
		metrics:     recorder,
		gatherer:    deps.Gatherer,
		authLimiter: newIPRateLimiter(cfg.Server.AuthRateLimit),
		version:     version,
	}

	if err := server.setupRouter(); err != nil {
		return nil, err
	}

	return server, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() error {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	tmpl, err := template.ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return err
	}
	s.router.SetHTMLTemplate(tmpl)

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.router.GET("/health", s.healthCheck)
	if s.gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(metrics.Handler(s.gatherer)))
	}

	s.router.Use(s.SessionMiddleware())

	// Server-rendered pages. Forms carry a CSRF token kept in a signed cookie session.
	formStore := cookie.NewStore([]byte(s.config.Server.FormSecret))
	formStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(time.Hour.Seconds()),
		HttpOnly: true,
		Secure:   s.config.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	pages := s.router.Group("/")
	pages.Use(sessions.Sessions(formSessionName, formStore))
	{
		pages.GET("", s.homePage)
		pages.GET("login", s.loginPage)
		pages.POST("login", s.authLimiter.middleware(s.logger), s.submitLogin)
		pages.GET("signup", s.signupPage)
		pages.POST("signup", s.authLimiter.middleware(s.logger), s.submitSignup)
		pages.GET("logout", s.logoutPage)
	}

	api := s.router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		authRoutes.POST("/sign-up/email", s.authLimiter.middleware(s.logger), s.signUpEmail)
		authRoutes.POST("/sign-in/email", s.authLimiter.middleware(s.logger), s.signInEmail)
		authRoutes.GET("/get-session", s.getSession)
		authRoutes.POST("/sign-out", s.signOut)

		uploads := api.Group("/uploads")
		uploads.Use(s.RequireSession())
		{
			uploads.POST("", s.createUpload)
			uploads.GET("", s.listUploads)
			uploads.GET("/:id", s.downloadUpload)
			uploads.DELETE("/:id", s.deleteUpload)
		}
	}

	return nil
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// GetDB returns the database connection for use by workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Start serves HTTP until SIGINT or SIGTERM, then shuts down gracefully
func (s *Server) Start() error {
	addr := s.config.Server.Addr

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		s.logger.Error().Err(err).Msg("HTTP server error")
		return err
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

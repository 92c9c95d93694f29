// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: config comes in from main, and New builds
// every dependency in one place:
//
//	sqlite.DB → repositories
//	TokenService + SessionRepository → SessionManager
//	UserRepository + GitHubProvider + SessionManager → AuthService → AuthHandler
//	ImageRepository → ImageService → ImageHandler, EditorHandler
//
// Each layer only receives what it needs. Services get repository
// interfaces, handlers get services.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/og-studio/internal/auth"
	"github.com/sakif/og-studio/internal/config"
	"github.com/sakif/og-studio/internal/handler"
	"github.com/sakif/og-studio/internal/middleware"
	sqliteRepo "github.com/sakif/og-studio/internal/repository/sqlite"
	"github.com/sakif/og-studio/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and the context every editor
// WebSocket watches. Start closes both on the way out.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	sweeper *auth.Sweeper

	editorCtx     context.Context
	cancelEditors context.CancelFunc
}

// New opens the database, builds every service and handler, and registers
// the routes.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	editorCtx, cancelEditors := context.WithCancel(context.Background())

	s := &Server{
		router:        chi.NewRouter(),
		config:        cfg,
		logger:        logger,
		db:            db,
		sweeper:       auth.NewSweeper(db.Sessions(), cfg.SessionSweepInterval, logger),
		editorCtx:     editorCtx,
		cancelEditors: cancelEditors,
	}

	if err := s.setupRoutes(); err != nil {
		cancelEditors()
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /auth/github/login        → redirect to GitHub (only with GitHub credentials)
// GET    /auth/github/callback     → finish login, set session cookie
// POST   /auth/logout              → revoke session
// GET    /api/me                   → current user                  [auth]
// GET    /api/images               → list images                   [auth]
// POST   /api/images               → create image                  [auth]
// GET    /api/images/{id}          → get image                     [auth]
// PUT    /api/images/{id}          → rename / replace elements     [auth]
// DELETE /api/images/{id}          → delete image                  [auth]
// GET    /api/images/{id}/editor   → editor WebSocket              [auth]
//
// Middleware runs in the order it's added: RequestID, RealIP, Logger,
// Recoverer.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.SessionSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	sessions, err := auth.NewSessionManager(s.db.Sessions(), tokens, auth.SessionConfig{
		TTL:    s.config.SessionTTL,
		Secure: s.config.CookieSecure,
	})
	if err != nil {
		return fmt.Errorf("creating session manager: %w", err)
	}

	github := auth.NewGitHubProvider(
		s.config.GitHubClientID,
		s.config.GitHubClientSecret,
		s.config.GitHubCallbackURL,
	)

	authService := service.NewAuthService(s.db.Users(), github, sessions, s.logger)
	imageService := service.NewImageService(s.db.Images(), s.logger)

	authHandler := handler.NewAuthHandler(authService, github, sessions, s.config.CookieSecure, s.logger)
	imageHandler := handler.NewImageHandler(imageService, s.logger)
	editorHandler := handler.NewEditorHandler(s.editorCtx, imageService, handler.EditorConfig{
		AllowedOrigin: s.config.EditorAllowedOrigin,
		HistoryLimit:  s.config.EditorHistoryLimit,
	}, s.logger)

	// === Auth Routes ===
	if s.config.GitHubEnabled() {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	} else {
		s.logger.Warn("GITHUB_CLIENT_ID / GITHUB_CLIENT_SECRET not set, GitHub login is disabled")
	}
	s.router.With(auth.OptionalAuth(sessions)).Post("/auth/logout", authHandler.HandleLogout)

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(sessions))

		r.Get("/me", authHandler.HandleMe)

		r.Get("/images", imageHandler.HandleList)
		r.Post("/images", imageHandler.HandleCreate)
		r.Get("/images/{id}", imageHandler.HandleGetByID)
		r.Put("/images/{id}", imageHandler.HandleUpdate)
		r.Delete("/images/{id}", imageHandler.HandleDelete)
		r.Get("/images/{id}/editor", editorHandler.HandleEditor)
	})

	return nil
}

// Handler returns the router, for tests that drive the server through
// httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops the session sweeper, closes open editor connections and
// releases the database. Start calls it on the way out; tests that never
// Start call it directly.
func (s *Server) Close() error {
	s.sweeper.Stop()
	s.cancelEditors()
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// On SIGINT/SIGTERM:
//  1. Stop accepting new connections.
//  2. Tell every editor WebSocket to close (hijacked connections are not
//     tracked by http.Server, so Shutdown alone would leave them open).
//  3. Wait up to 30s for in-flight requests.
//  4. Stop the session sweeper and close the database.
//
// Expired sessions are purged once before the listener opens, then every
// SESSION_SWEEP_INTERVAL.
func (s *Server) Start() error {
	defer s.Close()

	s.sweeper.Start()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	srv.RegisterOnShutdown(s.cancelEditors)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("githubLogin", s.config.GitHubEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// AuthService is the business logic layer for GitHub login. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ GitHubClient (OAuth)  ↘ SessionIssuer (sessions)
//
// KEY RESPONSIBILITIES:
//   - Orchestrate the GitHub OAuth callback: exchange the code, find-or-create
//     the user, open a session
//   - Keep HTTP concerns (cookies, redirects, status codes) out of it

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/og-studio/internal/apperror"
	"github.com/sakif/og-studio/internal/auth"
	"github.com/sakif/og-studio/internal/model"
	"github.com/sakif/og-studio/internal/repository"
)

// GitHubClient exchanges an authorization code for the GitHub profile.
// *auth.GitHubProvider implements it.
type GitHubClient interface {
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// SessionIssuer opens and closes login sessions.
// *auth.SessionManager implements it.
type SessionIssuer interface {
	CreateSession(ctx context.Context, userID string) (*model.Session, error)
	InvalidateSession(ctx context.Context, sessionID string) error
}

// AuthService handles the authentication business logic.
type AuthService struct {
	users    repository.UserRepository
	github   GitHubClient
	sessions SessionIssuer
	logger   *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	github GitHubClient,
	sessions SessionIssuer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		github:   github,
		sessions: sessions,
		logger:   logger,
	}
}

// LoginResult is what a successful callback produces: the user and the
// fresh session the handler turns into a cookie.
type LoginResult struct {
	User    *model.User
	Session *model.Session
	Created bool // the user signed in for the first time
}

// LoginWithGitHub completes the OAuth callback for an authorization code.
//
//  1. Exchange the code for the GitHub profile (one outbound round trip).
//  2. Look the user up by GitHub ID.
//  3. Not found: insert a new user. Name falls back to the login handle.
//     An existing user is never rewritten.
//  4. Create a new session for the user.
//
// Nothing is retried. If the insert fails no session is created. A code
// GitHub refused comes back wrapping apperror.ErrInvalidCode.
func (s *AuthService) LoginWithGitHub(ctx context.Context, code string) (*LoginResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperror.ValidationFailed("code", "authorization code is required")
	}

	ghUser, err := s.github.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user, created, err := s.findOrCreateUser(ctx, ghUser)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: creating session for user %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", ghUser.Login),
		slog.Bool("new", created),
	)

	return &LoginResult{User: user, Session: session, Created: created}, nil
}

func (s *AuthService) findOrCreateUser(ctx context.Context, ghUser *auth.GitHubUser) (*model.User, bool, error) {
	user, err := s.users.GetByGitHubID(ctx, ghUser.ID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, false, fmt.Errorf("service/auth: looking up user (githubID=%d): %w", ghUser.ID, err)
	}

	name := ghUser.Name
	if name == "" {
		name = ghUser.Login
	}

	user = &model.User{
		ID:        xid.New().String(),
		GitHubID:  ghUser.ID,
		Name:      name,
		AvatarURL: ghUser.AvatarURL,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("service/auth: creating user (githubID=%d): %w", ghUser.ID, err)
	}

	return user, true, nil
}

// GetUserByID returns the user for the given internal ID. Used by /api/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}

// Logout revokes a session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.InvalidateSession(ctx, sessionID); err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}
	s.logger.Info("session closed", slog.String("sessionID", sessionID))
	return nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sakif/og-studio/internal/apperror"
	"github.com/sakif/og-studio/internal/model"
	"github.com/sakif/og-studio/internal/repository"
)

// SessionCookieName is the cookie that carries the signed session reference.
const SessionCookieName = "auth_session"

// SessionConfig controls session lifetime and cookie attributes.
type SessionConfig struct {
	CookieName string        // defaults to SessionCookieName
	TTL        time.Duration // how long a fresh session lives
	Secure     bool          // set the Secure attribute (HTTPS deployments)
}

// SessionManager creates, validates and revokes login sessions.
//
// Sessions live in the sessions table; the cookie only holds a JWT whose jti
// names the row. Deleting the row revokes the cookie even though the JWT
// itself is still unexpired.
type SessionManager struct {
	sessions repository.SessionRepository
	tokens   *TokenService
	cfg      SessionConfig
	now      func() time.Time
}

// NewSessionManager wires a SessionManager. A zero TTL is rejected because
// every session would be born expired.
func NewSessionManager(sessions repository.SessionRepository, tokens *TokenService, cfg SessionConfig) (*SessionManager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("auth: session TTL must be positive")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = SessionCookieName
	}
	return &SessionManager{
		sessions: sessions,
		tokens:   tokens,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

// CookieName returns the name of the session cookie.
func (m *SessionManager) CookieName() string {
	return m.cfg.CookieName
}

// CreateSession stores a fresh session for userID. Sessions are never
// reused: every login gets its own row.
func (m *SessionManager) CreateSession(ctx context.Context, userID string) (*model.Session, error) {
	session := &model.Session{
		UserID:    userID,
		ExpiresAt: m.now().Add(m.cfg.TTL),
	}
	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("auth: creating session: %w", err)
	}
	return session, nil
}

// SessionCookie serialises a session into the cookie the browser keeps.
//
//   - HttpOnly: JavaScript cannot read it (XSS can't steal the session)
//   - SameSite=Lax: sent on top-level navigations, which the OAuth redirect
//     back to "/" is, but not on cross-site subrequests
func (m *SessionManager) SessionCookie(session *model.Session) (*http.Cookie, error) {
	value, err := m.tokens.Sign(session.ID, session.UserID, session.ExpiresAt)
	if err != nil {
		return nil, err
	}

	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// BlankSessionCookie returns a cookie that tells the browser to drop the
// session cookie.
func (m *SessionManager) BlankSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ValidateSession checks a cookie value and returns the live session it
// points at.
//
// Rejections (bad signature, unknown session, expired session, user mismatch)
// are apperror.ErrUnauthorized. An expired row is deleted on the way out.
// Storage failures are returned as they are.
func (m *SessionManager) ValidateSession(ctx context.Context, cookieValue string) (*model.Session, error) {
	claims, err := m.tokens.Parse(cookieValue)
	if err != nil {
		return nil, apperror.Unauthorized(err.Error())
	}

	session, err := m.sessions.GetByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("session not found")
		}
		return nil, fmt.Errorf("auth: loading session: %w", err)
	}

	if session.Expired(m.now()) {
		if err := m.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("auth: deleting expired session: %w", err)
		}
		return nil, apperror.Unauthorized("session expired")
	}

	if session.UserID != claims.Subject {
		return nil, apperror.Unauthorized("session does not belong to token subject")
	}

	return session, nil
}

// InvalidateSession deletes a session. Deleting one that is already gone is
// not an error, so logout is idempotent.
func (m *SessionManager) InvalidateSession(ctx context.Context, sessionID string) error {
	if err := m.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("auth: invalidating session: %w", err)
	}
	return nil
}

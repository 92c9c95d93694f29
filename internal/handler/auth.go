package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/xid"
	"github.com/sakif/og-studio/internal/apperror"
	"github.com/sakif/og-studio/internal/auth"
	"github.com/sakif/og-studio/internal/service"
)

// StateCookieName holds the anti-forgery state between login and callback.
const StateCookieName = "github_oauth_state"

// stateMaxAge is how long the user has to approve the app on GitHub.
const stateMaxAge = 600

// AuthHandler manages the GitHub OAuth login flow and session management.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → check state, let AuthService log the user in, set the session cookie
//   - HandleLogout         → revoke the session row and clear the cookie
//   - HandleMe             → return the currently logged-in user's profile
type AuthHandler struct {
	auth         *service.AuthService
	github       *auth.GitHubProvider
	sessions     *auth.SessionManager
	cookieSecure bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	github *auth.GitHubProvider,
	sessions *auth.SessionManager,
	cookieSecure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:         authService,
		github:       github,
		sessions:     sessions,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// A random state is stored in a short-lived HttpOnly cookie. The callback
// only proceeds when GitHub hands the same value back.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusFound)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Require code, state and the state cookie, and state == cookie.
//     Otherwise 400 before anything leaves the server.
//  2. AuthService exchanges the code, finds or creates the user and opens
//     a session. A code GitHub refused is a 400; every other failure a 500.
//  3. Set the session cookie and redirect to /.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")

	stateCookie, err := r.Cookie(StateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state is single-use whatever happens next.
	h.clearStateCookie(w)

	if code == "" || state == "" {
		h.logger.Warn("auth callback: missing code or state",
			slog.Bool("hasCode", code != ""),
			slog.Bool("hasState", state != ""),
		)
		http.Error(w, "missing OAuth code or state", http.StatusBadRequest)
		return
	}

	if state != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch",
			slog.String("expected", stateCookie.Value),
			slog.String("got", state),
		)
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	result, err := h.auth.LoginWithGitHub(r.Context(), code)
	if err != nil {
		if errors.Is(err, apperror.ErrInvalidCode) {
			h.logger.Warn("auth callback: GitHub rejected the code", slog.String("error", err.Error()))
			http.Error(w, "invalid OAuth code", http.StatusBadRequest)
			return
		}
		h.logger.Error("auth callback: login failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	cookie, err := h.sessions.SessionCookie(result.Session)
	if err != nil {
		h.logger.Error("auth callback: signing session cookie failed",
			slog.String("userID", result.User.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, cookie)

	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// HandleLogout revokes the current session and clears the cookie.
//
// HTTP: POST /auth/logout
//
// Runs behind OptionalAuth: a request without a valid session still gets
// the blank cookie, so logging out twice is harmless.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := auth.SessionIDFromContext(r.Context()); ok {
		if err := h.auth.Logout(r.Context(), sessionID); err != nil {
			h.logger.Error("logout failed",
				slog.String("sessionID", sessionID),
				slog.String("error", err.Error()),
			)
			writeError(w, err)
			return
		}
	}

	http.SetCookie(w, h.sessions.BlankSessionCookie())
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me
// Auth: Required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("HandleMe: user lookup failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/sakif/og-studio/internal/apperror"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. A plain string key could be
// read or shadowed by any package that knows the string. Only this package
// can create a contextKey, so only this package can read or write these values.
type contextKey string

const (
	userIDKey    contextKey = "userID"
	sessionIDKey contextKey = "sessionID"
)

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the session cookie, validates it against the sessions table and
// stores the user and session IDs in the request context. Without a valid
// session it returns 401 Unauthorized and stops the request chain.
//
// MIDDLEWARE PATTERN IN GO:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... before ...
//	        next.ServeHTTP(w, r)
//	        // ... after ...
//	    })
//	}
func RequireAuth(sessions *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := authenticate(r, sessions)
			if err != nil {
				if errors.Is(err, apperror.ErrUnauthorized) || errors.Is(err, http.ErrNoCookie) {
					writeJSONError(w, http.StatusUnauthorized, `{"error":"unauthorized","message":"valid authentication required"}`)
					return
				}
				writeJSONError(w, http.StatusInternalServerError, `{"error":"internal_error","message":"an unexpected error occurred"}`)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the user identity if a valid session is present, but
// never blocks the request.
//
// Handlers check for the user via UserIDFromContext; ("", false) means the
// request is anonymous.
func OptionalAuth(sessions *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ctx, err := authenticate(r, sessions); err == nil {
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
//
//	userID, ok := auth.UserIDFromContext(r.Context())
//	if !ok {
//	    // anonymous user
//	}
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// SessionIDFromContext returns the ID of the session that authenticated the
// request.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// authenticate reads the session cookie and, when it is valid, returns the
// request context enriched with the user and session IDs.
func authenticate(r *http.Request, sessions *SessionManager) (context.Context, error) {
	cookie, err := r.Cookie(sessions.CookieName())
	if err != nil {
		// http.ErrNoCookie: anonymous, not a failure
		return nil, err
	}

	session, err := sessions.ValidateSession(r.Context(), cookie.Value)
	if err != nil {
		return nil, err
	}

	ctx := context.WithValue(r.Context(), userIDKey, session.UserID)
	ctx = context.WithValue(ctx, sessionIDKey, session.ID)
	return ctx, nil
}

func writeJSONError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/og-studio/internal/auth"
	"github.com/sakif/og-studio/internal/model"
	sqliteRepo "github.com/sakif/og-studio/internal/repository/sqlite"
	"github.com/sakif/og-studio/internal/service"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGitHub stands in for github.com and api.github.com and counts every
// outbound call the server makes.
type fakeGitHub struct {
	tokenStatus int
	tokenType   string
	tokenBody   string
	userStatus  int
	userBody    string

	tokenCalls atomic.Int32
	userCalls  atomic.Int32
}

func okGitHub() *fakeGitHub {
	return &fakeGitHub{
		tokenStatus: http.StatusOK,
		tokenType:   "application/json",
		tokenBody:   `{"access_token":"gho_abc","token_type":"bearer","scope":"read:user"}`,
		userStatus:  http.StatusOK,
		userBody:    `{"id":42,"login":"octocat","name":"The Octocat","avatar_url":"https://a/42"}`,
	}
}

func (f *fakeGitHub) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		w.Header().Set("Content-Type", f.tokenType)
		w.WriteHeader(f.tokenStatus)
		_, _ = w.Write([]byte(f.tokenBody))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		f.userCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.userStatus)
		_, _ = w.Write([]byte(f.userBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeGitHub) calls() int {
	return int(f.tokenCalls.Load() + f.userCalls.Load())
}

// testEnv wires the real services over an in-memory database, the way
// internal/server does, with GitHub replaced by fakeGitHub.
type testEnv struct {
	db       *sqliteRepo.DB
	github   *fakeGitHub
	sessions *auth.SessionManager
	images   *service.ImageService
	router   chi.Router

	cancelEditors context.CancelFunc
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, editorCfg ...EditorConfig) *testEnv {
	t.Helper()
	logger := discardLogger()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gh := okGitHub()
	srv := gh.server(t)
	provider := auth.NewGitHubProvider("client-id", "client-secret", "http://localhost/auth/github/callback",
		auth.WithEndpoint(oauth2.Endpoint{
			AuthURL:   srv.URL + "/login/oauth/authorize",
			TokenURL:  srv.URL + "/login/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		}),
		auth.WithUserURL(srv.URL+"/user"),
	)

	tokens, err := auth.NewTokenService("handler-test-secret-0123")
	require.NoError(t, err)
	sessions, err := auth.NewSessionManager(db.Sessions(), tokens, auth.SessionConfig{TTL: time.Hour})
	require.NoError(t, err)

	authService := service.NewAuthService(db.Users(), provider, sessions, logger)
	imageService := service.NewImageService(db.Images(), logger)

	cfg := EditorConfig{HistoryLimit: 100}
	if len(editorCfg) > 0 {
		cfg = editorCfg[0]
	}
	shutdownCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	authHandler := NewAuthHandler(authService, provider, sessions, false, logger)
	imageHandler := NewImageHandler(imageService, logger)
	editorHandler := NewEditorHandler(shutdownCtx, imageService, cfg, logger)

	r := chi.NewRouter()
	r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
	r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	r.With(auth.OptionalAuth(sessions)).Post("/auth/logout", authHandler.HandleLogout)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(sessions))
		r.Get("/api/me", authHandler.HandleMe)
		r.Get("/api/images", imageHandler.HandleList)
		r.Post("/api/images", imageHandler.HandleCreate)
		r.Get("/api/images/{id}", imageHandler.HandleGetByID)
		r.Put("/api/images/{id}", imageHandler.HandleUpdate)
		r.Delete("/api/images/{id}", imageHandler.HandleDelete)
		r.Get("/api/images/{id}/editor", editorHandler.HandleEditor)
	})

	return &testEnv{
		db:            db,
		github:        gh,
		sessions:      sessions,
		images:        imageService,
		router:        r,
		cancelEditors: cancel,
	}
}

// login creates a user with a live session and returns the user and the
// session cookie to send with requests.
func (e *testEnv) login(t *testing.T, githubID int64, name string) (*model.User, *http.Cookie) {
	t.Helper()
	user := &model.User{GitHubID: githubID, Name: name}
	require.NoError(t, e.db.Users().Create(context.Background(), user))

	session, err := e.sessions.CreateSession(context.Background(), user.ID)
	require.NoError(t, err)
	cookie, err := e.sessions.SessionCookie(session)
	require.NoError(t, err)
	return user, cookie
}

// do runs one request through the router.
func (e *testEnv) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// responseCookie finds a Set-Cookie by name.
func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Package config loads the server configuration from environment variables.
//
// Every setting has an env var; the struct tags below are the full list.
// Defaults are chosen for local development: a SQLite file under data/,
// non-secure cookies, and a callback URL on localhost.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinSessionSecretLength matches the minimum the token service accepts.
const MinSessionSecretLength = 16

// Config holds everything cmd/server needs to build the server.
type Config struct {
	Port     int    `env:"PORT"      envDefault:"8080"`
	DBPath   string `env:"DB_PATH"   envDefault:"data/ogstudio.db"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// SessionSecret signs the session cookie. Generate one with:
	//   SESSION_SECRET=$(openssl rand -hex 32)
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL"   envDefault:"720h"`
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"false"`

	// SessionSweepInterval is how often expired session rows are purged.
	// Zero purges once at startup only.
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1h"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `env:"GITHUB_CALLBACK_URL"`

	// EditorAllowedOrigin restricts which Origin may open an editor
	// WebSocket. Empty means same-origin only.
	EditorAllowedOrigin string `env:"EDITOR_ALLOWED_ORIGIN"`
	EditorHistoryLimit  int    `env:"EDITOR_HISTORY_LIMIT" envDefault:"100"`
}

// Load parses the environment into a Config, fills derived defaults and
// validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that have no safe default.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	if len(c.SessionSecret) < MinSessionSecretLength {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d characters", MinSessionSecretLength))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.SessionSweepInterval < 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must not be negative"))
	}
	if c.EditorHistoryLimit < 1 {
		errs = append(errs, errors.New("EDITOR_HISTORY_LIMIT must be at least 1"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// GitHubEnabled reports whether GitHub OAuth credentials are configured.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// SlogLevel returns LOG_LEVEL as a slog level. Validate has already
// rejected unknown names, so this falls back to Info only for a zero Config.
func (c Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", name)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/og-studio/internal/apperror"
	"github.com/sakif/og-studio/internal/model"
	"github.com/sakif/og-studio/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the users table store.
type UserDB struct {
	conn *sql.DB
}

// Create inserts a new user. The ID is generated here (xid) when the caller
// hasn't set one, and CreatedAt is stamped.
//
// A second row for the same github_id violates the UNIQUE constraint and is
// reported as apperror.ErrConflict.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = xid.New().String()
	}
	user.CreatedAt = time.Now().UTC()

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (id, github_id, name, avatar_url, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.ID,
		user.GitHubID,
		user.Name,
		user.AvatarURL,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", fmt.Sprintf("github:%d", user.GitHubID))
		}
		return fmt.Errorf("sqlite: inserting user (githubID=%d): %w", user.GitHubID, err)
	}

	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`SELECT id, github_id, name, avatar_url, created_at
		 FROM users WHERE id = ?`,
		id,
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return user, nil
}

// GetByGitHubID retrieves a user by their GitHub account ID.
// Returns apperror.ErrNotFound if this GitHub account has never logged in.
func (u *UserDB) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`SELECT id, github_id, name, avatar_url, created_at
		 FROM users WHERE github_id = ?`,
		githubID,
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
		}
		return nil, fmt.Errorf("sqlite: getting user by github_id %d: %w", githubID, err)
	}

	return user, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.GitHubID,
		&user.Name,
		&user.AvatarURL,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// isUniqueViolation recognises SQLite's UNIQUE / PRIMARY KEY constraint
// failure. The driver reports it as extended code 2067 (or 1555 for a
// primary key); matching the message keeps this file free of the driver's
// internal error types.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

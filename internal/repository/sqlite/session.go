package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/og-studio/internal/apperror"
	"github.com/sakif/og-studio/internal/model"
	"github.com/sakif/og-studio/internal/repository"
)

var _ repository.SessionRepository = (*SessionDB)(nil)

// SessionDB is the sessions table store.
//
// expires_at is kept as unix milliseconds so that expiry checks are plain
// integer comparisons in SQL.
type SessionDB struct {
	conn *sql.DB
}

// Create inserts a new session row. The ID is generated when empty.
func (s *SessionDB) Create(ctx context.Context, session *model.Session) error {
	if session.ID == "" {
		session.ID = xid.New().String()
	}
	session.CreatedAt = time.Now().UTC()
	session.ExpiresAt = session.ExpiresAt.UTC()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at)
		 VALUES (?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.ExpiresAt.UnixMilli(),
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting session for user %s: %w", session.UserID, err)
	}

	return nil
}

// GetByID retrieves a session. Expired rows are still returned; the caller
// decides what to do with them.
func (s *SessionDB) GetByID(ctx context.Context, id string) (*model.Session, error) {
	var (
		session   model.Session
		expiresMs int64
	)

	err := s.conn.QueryRowContext(ctx,
		`SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?`,
		id,
	).Scan(&session.ID, &session.UserID, &expiresMs, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("sqlite: getting session %s: %w", id, err)
	}

	session.ExpiresAt = time.UnixMilli(expiresMs).UTC()
	return &session, nil
}

// Delete removes a session. Returns apperror.ErrNotFound if it didn't exist.
func (s *SessionDB) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting session %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("session", id)
	}

	return nil
}

// DeleteExpired removes every session that expired at or before now and
// returns how many rows went away.
func (s *SessionDB) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`,
		now.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting expired sessions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}

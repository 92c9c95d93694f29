// Package repository declares the storage interfaces the services depend on.
// internal/repository/sqlite is the only implementation; service tests use
// in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/og-studio/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository stores accounts created by the GitHub login callback.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
}

// SessionRepository stores login sessions keyed by session ID.
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ImageRepository stores image layouts and their element lists.
type ImageRepository interface {
	Create(ctx context.Context, image *model.Image) error
	GetByID(ctx context.Context, id string) (*model.Image, error)
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]model.Image, error)
	Update(ctx context.Context, image *model.Image) error
	Delete(ctx context.Context, id string) error
}

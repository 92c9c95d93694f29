package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/og-studio/internal/apperror"
	"github.com/sakif/og-studio/internal/model"
	"github.com/sakif/og-studio/internal/repository"
)

var _ repository.ImageRepository = (*ImageDB)(nil)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ImageDB is the images table store.
//
// The element list is one JSON document per image. The editor always loads
// and saves the whole list, so there is no per-element table.
type ImageDB struct {
	conn *sql.DB
}

// Create inserts a new image. ID and timestamps are filled in on the
// caller's struct.
func (i *ImageDB) Create(ctx context.Context, image *model.Image) error {
	elements, err := encodeElements(image.Elements)
	if err != nil {
		return err
	}

	image.ID = xid.New().String()
	now := time.Now().UTC()
	image.CreatedAt = now
	image.UpdatedAt = now

	_, err = i.conn.ExecContext(ctx,
		`INSERT INTO images (id, user_id, name, elements, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		image.ID,
		image.UserID,
		image.Name,
		elements,
		image.CreatedAt,
		image.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating image: %w", err)
	}

	return nil
}

// GetByID retrieves one image including its elements.
// Returns apperror.ErrNotFound if the image doesn't exist.
func (i *ImageDB) GetByID(ctx context.Context, id string) (*model.Image, error) {
	var (
		image    model.Image
		elements string
	)

	err := i.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name, elements, created_at, updated_at
		 FROM images
		 WHERE id = ?`,
		id,
	).Scan(
		&image.ID,
		&image.UserID,
		&image.Name,
		&elements,
		&image.CreatedAt,
		&image.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("image", id)
		}
		return nil, fmt.Errorf("sqlite: getting image %s: %w", id, err)
	}

	image.Elements, err = decodeElements(elements)
	if err != nil {
		return nil, fmt.Errorf("sqlite: image %s: %w", id, err)
	}

	return &image, nil
}

// ListByUser returns a user's images, newest first. Elements are not
// loaded; use GetByID for that.
func (i *ImageDB) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Image, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := i.conn.QueryContext(ctx,
		`SELECT id, user_id, name, created_at, updated_at
		 FROM images
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		userID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing images: %w", err)
	}
	defer rows.Close()

	images := make([]model.Image, 0, limit)

	for rows.Next() {
		var img model.Image
		if err := rows.Scan(
			&img.ID, &img.UserID, &img.Name,
			&img.CreatedAt, &img.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning image row: %w", err)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating images: %w", err)
	}

	return images, nil
}

// Update writes the name and element list of an existing image and bumps
// updated_at. Returns apperror.ErrNotFound if the image doesn't exist.
func (i *ImageDB) Update(ctx context.Context, image *model.Image) error {
	elements, err := encodeElements(image.Elements)
	if err != nil {
		return err
	}

	image.UpdatedAt = time.Now().UTC()

	result, err := i.conn.ExecContext(ctx,
		`UPDATE images
		 SET name = ?, elements = ?, updated_at = ?
		 WHERE id = ?`,
		image.Name,
		elements,
		image.UpdatedAt,
		image.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating image %s: %w", image.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("image", image.ID)
	}

	return nil
}

// Delete removes an image. Returns apperror.ErrNotFound if it didn't exist.
func (i *ImageDB) Delete(ctx context.Context, id string) error {
	result, err := i.conn.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting image %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("image", id)
	}

	return nil
}

func encodeElements(elements []model.Element) (string, error) {
	if elements == nil {
		elements = []model.Element{}
	}
	b, err := json.Marshal(elements)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding elements: %w", err)
	}
	return string(b), nil
}

func decodeElements(raw string) ([]model.Element, error) {
	elements := []model.Element{}
	if raw == "" {
		return elements, nil
	}
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		return nil, fmt.Errorf("decoding elements: %w", err)
	}
	return elements, nil
}

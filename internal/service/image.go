// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, not *sqlite.DB, so tests pass
// in-memory fakes and the service never imports the sqlite package.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/og-studio/internal/apperror"
	"github.com/sakif/og-studio/internal/editor"
	"github.com/sakif/og-studio/internal/model"
	"github.com/sakif/og-studio/internal/repository"
	"golang.org/x/text/unicode/norm"
)

// Validation constants.
const (
	MaxImageNameLength = 100
	MaxElements        = 500
	DefaultListLimit   = 20
	MaxListLimit       = 100
)

// ImageService handles business logic for image layouts.
//
// Every method takes the caller's user ID. An image owned by someone else is
// reported as not found, never as forbidden, so IDs of other users' images
// can't be probed.
type ImageService struct {
	repo   repository.ImageRepository
	logger *slog.Logger
}

// NewImageService creates a new ImageService.
func NewImageService(repo repository.ImageRepository, logger *slog.Logger) *ImageService {
	return &ImageService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates and saves a new image. elements may be nil for a blank
// canvas.
func (s *ImageService) Create(ctx context.Context, userID, name string, elements []model.Element) (*model.Image, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if err := validateElements(elements); err != nil {
		return nil, err
	}
	if elements == nil {
		elements = []model.Element{}
	}

	image := &model.Image{
		UserID:   userID,
		Name:     name,
		Elements: elements,
	}

	if err := s.repo.Create(ctx, image); err != nil {
		s.logger.Error("failed to create image",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating image: %w", err)
	}

	s.logger.Info("image created",
		slog.String("id", image.ID),
		slog.String("userID", userID),
	)

	return image, nil
}

// Get returns one of the user's images with its elements.
func (s *ImageService) Get(ctx context.Context, userID, id string) (*model.Image, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "image ID is required")
	}

	image, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if image.UserID != userID {
		return nil, apperror.NotFound("image", id)
	}

	return image, nil
}

// List returns the user's images, newest first.
//
// limit is clamped to 1-100 (default 20); offset can't be negative.
func (s *ImageService) List(ctx context.Context, userID string, limit, offset int) ([]model.Image, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	images, err := s.repo.ListByUser(ctx, userID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("failed to list images", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing images: %w", err)
	}

	return images, nil
}

// Update renames an image and/or replaces its elements.
// An empty name leaves the name unchanged; nil elements leave the elements
// unchanged.
func (s *ImageService) Update(ctx context.Context, userID, id, name string, elements []model.Element) (*model.Image, error) {
	image, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(name) != "" {
		if image.Name, err = validateName(name); err != nil {
			return nil, err
		}
	}

	if elements != nil {
		if err := validateElements(elements); err != nil {
			return nil, err
		}
		image.Elements = elements
	}

	if err := s.repo.Update(ctx, image); err != nil {
		s.logger.Error("failed to update image",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating image: %w", err)
	}

	s.logger.Info("image updated", slog.String("id", image.ID))
	return image, nil
}

// SaveElements replaces the element list of an image. The editor calls it
// after every change.
func (s *ImageService) SaveElements(ctx context.Context, userID, id string, elements []model.Element) error {
	if elements == nil {
		elements = []model.Element{}
	}
	_, err := s.Update(ctx, userID, id, "", elements)
	return err
}

// Delete removes one of the user's images.
func (s *ImageService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("image deleted", slog.String("id", id))
	return nil
}

// Loader returns the editor.Loader that opens images as userID sees them.
// SplashImageID always resolves to the built-in placeholder layout.
func (s *ImageService) Loader(userID string) editor.Loader {
	return editor.LoaderFunc(func(ctx context.Context, imageID string) ([]model.Element, error) {
		if imageID == editor.SplashImageID {
			return splashElements(), nil
		}
		image, err := s.Get(ctx, userID, imageID)
		if err != nil {
			if errors.Is(err, apperror.ErrValidation) {
				return nil, apperror.NotFound("image", imageID)
			}
			return nil, err
		}
		return image.Elements, nil
	})
}

// validateName trims and NFC-normalizes name, so a decomposed "é" counts
// as one character.
func validateName(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return "", apperror.ValidationFailed("name", "image name is required")
	}
	if utf8.RuneCountInString(name) > MaxImageNameLength {
		return "", apperror.ValidationFailed("name",
			fmt.Sprintf("image name must be %d characters or less", MaxImageNameLength))
	}
	return name, nil
}

func validateElements(elements []model.Element) error {
	if len(elements) > MaxElements {
		return apperror.ValidationFailed("elements",
			fmt.Sprintf("an image can hold at most %d elements", MaxElements))
	}

	seen := make(map[string]struct{}, len(elements))
	for i, el := range elements {
		if el.ID == "" {
			return apperror.ValidationFailed("elements", fmt.Sprintf("element %d has no id", i))
		}
		if _, dup := seen[el.ID]; dup {
			return apperror.ValidationFailed("elements", fmt.Sprintf("duplicate element id %q", el.ID))
		}
		seen[el.ID] = struct{}{}
		if !el.Type.Valid() {
			return apperror.ValidationFailed("elements", fmt.Sprintf("element %q has unknown type %q", el.ID, el.Type))
		}
	}
	return nil
}

// splashElements is the placeholder layout shown on the splash screen.
func splashElements() []model.Element {
	return []model.Element{
		{
			ID: "splash-background", Type: model.ElementBox, Name: "Background",
			Width: editor.CanvasWidth, Height: editor.CanvasHeight,
			Visible: true, Opacity: 100, BackgroundColor: "#ffffff",
		},
		{
			ID: "splash-title", Type: model.ElementText, Name: "Title",
			X: 100, Y: 220, Width: 1000, Height: 90, Visible: true, Opacity: 100,
			Content: "OG Studio", FontFamily: "Inter", FontWeight: 700, FontSize: 80,
			LineHeight: 1, Color: "#000000", Align: "center",
		},
		{
			ID: "splash-subtitle", Type: model.ElementText, Name: "Subtitle",
			X: 100, Y: 330, Width: 1000, Height: 50, Visible: true, Opacity: 100,
			Content: "Create or pick an image to start editing", FontFamily: "Inter",
			FontWeight: 400, FontSize: 36, LineHeight: 1, Color: "#6b7280", Align: "center",
		},
	}
}

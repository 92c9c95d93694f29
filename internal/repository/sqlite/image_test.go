package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sakif/og-studio/internal/apperror"
	"github.com/sakif/og-studio/internal/model"
	"github.com/sakif/og-studio/internal/repository"
)

func createTestImage(t *testing.T, db *DB, userID, name string, elements []model.Element) *model.Image {
	t.Helper()
	image := &model.Image{UserID: userID, Name: name, Elements: elements}
	if err := db.Images().Create(context.Background(), image); err != nil {
		t.Fatalf("failed to create test image: %v", err)
	}
	return image
}

func sampleElements() []model.Element {
	return []model.Element{
		{
			ID: "bg", Type: model.ElementBox, Name: "Background",
			Width: 1200, Height: 630, Visible: true, Opacity: 100,
			BackgroundColor: "#ffffff",
		},
		{
			ID: "title", Type: model.ElementText, Name: "Title",
			X: 80, Y: 120, Width: 1040, Height: 100, Visible: true, Opacity: 100,
			Content: "Hello", FontFamily: "Inter", FontWeight: 700, FontSize: 64,
			LineHeight: 1.2, Color: "#000000", Align: "left",
		},
	}
}

func TestImageCreate(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 1, "alice")

	image := createTestImage(t, db, user.ID, "Launch card", nil)

	if image.ID == "" {
		t.Error("Create() did not set image.ID")
	}
	if image.CreatedAt.IsZero() || image.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}
}

func TestImageGetByID_RoundTripsElements(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 1, "alice")
	want := sampleElements()
	created := createTestImage(t, db, user.ID, "Launch card", want)

	found, err := db.Images().GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if found.UserID != user.ID {
		t.Errorf("UserID = %q, want %q", found.UserID, user.ID)
	}
	if found.Name != "Launch card" {
		t.Errorf("Name = %q, want %q", found.Name, "Launch card")
	}
	if diff := cmp.Diff(want, found.Elements); diff != "" {
		t.Errorf("Elements mismatch (-want +got):\n%s", diff)
	}
}

func TestImageGetByID_EmptyElementsIsNotNil(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 1, "alice")
	created := createTestImage(t, db, user.ID, "Blank", nil)

	found, err := db.Images().GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Elements == nil || len(found.Elements) != 0 {
		t.Errorf("Elements = %#v, want empty non-nil slice", found.Elements)
	}
}

func TestImageGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Images().GetByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestImageListByUser(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, 1, "alice")
	bob := createTestUser(t, db, 2, "bob")

	for i := 0; i < 3; i++ {
		createTestImage(t, db, alice.ID, fmt.Sprintf("alice-%d", i), sampleElements())
	}
	createTestImage(t, db, bob.ID, "bob-0", nil)

	images, err := db.Images().ListByUser(context.Background(), alice.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}

	if len(images) != 3 {
		t.Fatalf("ListByUser() returned %d images, want 3", len(images))
	}
	for _, img := range images {
		if img.UserID != alice.ID {
			t.Errorf("image %s belongs to %s, want %s", img.ID, img.UserID, alice.ID)
		}
		if img.Elements != nil {
			t.Errorf("image %s: list should not load elements", img.ID)
		}
	}

	// Newest first; xids of images created in the same instant still sort.
	if images[0].Name != "alice-2" || images[2].Name != "alice-0" {
		t.Errorf("order = [%s %s %s], want newest first", images[0].Name, images[1].Name, images[2].Name)
	}
}

func TestImageListByUser_Pagination(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 1, "alice")
	for i := 0; i < 5; i++ {
		createTestImage(t, db, user.ID, fmt.Sprintf("img-%d", i), nil)
	}

	tests := []struct {
		name    string
		opts    repository.ListOptions
		wantLen int
	}{
		{"default limit", repository.ListOptions{}, 5},
		{"limit 2", repository.ListOptions{Limit: 2}, 2},
		{"offset past end", repository.ListOptions{Limit: 10, Offset: 10}, 0},
		{"offset 3", repository.ListOptions{Limit: 10, Offset: 3}, 2},
		{"negative offset", repository.ListOptions{Offset: -1}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images, err := db.Images().ListByUser(context.Background(), user.ID, tt.opts)
			if err != nil {
				t.Fatalf("ListByUser() error = %v", err)
			}
			if len(images) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(images), tt.wantLen)
			}
		})
	}
}

func TestImageUpdate(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 1, "alice")
	image := createTestImage(t, db, user.ID, "Draft", nil)
	created := image.UpdatedAt

	image.Name = "Final"
	image.Elements = sampleElements()[:1]
	if err := db.Images().Update(context.Background(), image); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if image.UpdatedAt.Before(created) {
		t.Error("Update() moved UpdatedAt backwards")
	}

	found, err := db.Images().GetByID(context.Background(), image.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Name != "Final" {
		t.Errorf("Name = %q, want %q", found.Name, "Final")
	}
	if diff := cmp.Diff(sampleElements()[:1], found.Elements); diff != "" {
		t.Errorf("Elements mismatch (-want +got):\n%s", diff)
	}
}

func TestImageUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Images().Update(context.Background(), &model.Image{ID: "missing", Name: "x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestImageDelete(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 1, "alice")
	image := createTestImage(t, db, user.ID, "Doomed", nil)

	if err := db.Images().Delete(context.Background(), image.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := db.Images().GetByID(context.Background(), image.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after Delete error = %v, want ErrNotFound", err)
	}

	err = db.Images().Delete(context.Background(), image.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

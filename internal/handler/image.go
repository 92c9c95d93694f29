package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/og-studio/internal/apperror"
	"github.com/sakif/og-studio/internal/auth"
	"github.com/sakif/og-studio/internal/model"
	"github.com/sakif/og-studio/internal/service"
)

// ImageHandler serves the /api/images endpoints. Every route runs behind
// RequireAuth and only ever sees the caller's own images.
type ImageHandler struct {
	images *service.ImageService
	logger *slog.Logger
}

// NewImageHandler creates an ImageHandler.
func NewImageHandler(images *service.ImageService, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{
		images: images,
		logger: logger,
	}
}

// CreateImageRequest is the body of POST /api/images.
type CreateImageRequest struct {
	Name     string          `json:"name"`
	Elements []model.Element `json:"elements"`
}

// UpdateImageRequest is the body of PUT /api/images/{id}. Omitted fields
// are left unchanged.
type UpdateImageRequest struct {
	Name     string          `json:"name"`
	Elements []model.Element `json:"elements"`
}

// HandleList returns the caller's images, newest first, without elements.
//
// HTTP: GET /api/images?limit=20&offset=0
func (h *ImageHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, err)
		return
	}

	images, err := h.images.List(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, images)
}

// HandleGetByID returns one image with its elements.
//
// HTTP: GET /api/images/{id}
func (h *ImageHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	image, err := h.images.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, image)
}

// HandleCreate creates an image.
//
// HTTP: POST /api/images
func (h *ImageHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CreateImageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid image JSON", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	image, err := h.images.Create(r.Context(), userID, req.Name, req.Elements)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, image)
}

// HandleUpdate renames an image and/or replaces its elements.
//
// HTTP: PUT /api/images/{id}
func (h *ImageHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req UpdateImageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid image JSON", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	image, err := h.images.Update(r.Context(), userID, chi.URLParam(r, "id"), req.Name, req.Elements)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, image)
}

// HandleDelete deletes an image.
//
// HTTP: DELETE /api/images/{id}
func (h *ImageHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.images.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requireUser returns the authenticated user ID, or writes a 401 and
// reports false.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return "", false
	}
	return userID, true
}

// queryInt parses an optional integer query parameter; absent is 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}

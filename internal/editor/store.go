package editor

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sakif/og-studio/internal/apperror"
	"github.com/sakif/og-studio/internal/model"
)

// Loader fetches the element list of an image. It returns an error wrapping
// apperror.ErrNotFound when the image does not exist.
type Loader interface {
	LoadElements(ctx context.Context, imageID string) ([]model.Element, error)
}

// LoaderFunc adapts a plain function to Loader.
type LoaderFunc func(ctx context.Context, imageID string) ([]model.Element, error)

func (f LoaderFunc) LoadElements(ctx context.Context, imageID string) ([]model.Element, error) {
	return f(ctx, imageID)
}

// Store holds the element list of the open image, the current selection and
// the undo history of the element list.
//
// Every mutation replaces the list with a new slice and records the old one
// in the history. Selection changes are not recorded, so undo never brings a
// selection back.
//
// A Store is owned by one Editor and is not safe for concurrent use.
type Store struct {
	loader   Loader
	elements []model.Element
	selected string
	history  *history
}

// NewStore creates an empty Store. historyLimit < 1 means DefaultHistoryLimit.
func NewStore(loader Loader, historyLimit int) *Store {
	return &Store{
		loader:   loader,
		elements: []model.Element{},
		history:  newHistory(historyLimit),
	}
}

// Load replaces the store contents with the elements of imageID. It reports
// false, with a nil error, when the image does not exist. Selection and
// history are reset either way on success.
func (s *Store) Load(ctx context.Context, imageID string) (bool, error) {
	elements, err := s.loader.LoadElements(ctx, imageID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("editor: loading image %s: %w", imageID, err)
	}

	if elements == nil {
		elements = []model.Element{}
	}
	s.elements = slices.Clone(elements)
	s.selected = ""
	s.history.clear()
	return true, nil
}

// Elements returns a copy of the current element list in order.
func (s *Store) Elements() []model.Element {
	return slices.Clone(s.elements)
}

// Find returns the element with the given ID.
func (s *Store) Find(id string) (model.Element, bool) {
	i := s.index(id)
	if i < 0 {
		return model.Element{}, false
	}
	return s.elements[i], true
}

// Selected returns the selected element ID, or "" when nothing is selected.
func (s *Store) Selected() string {
	return s.selected
}

// SetSelected selects the element with the given ID. Selecting an ID that
// is not in the list is refused.
func (s *Store) SetSelected(id string) bool {
	if s.index(id) < 0 {
		return false
	}
	s.selected = id
	return true
}

// ClearSelection deselects and reports whether anything was selected.
func (s *Store) ClearSelection() bool {
	had := s.selected != ""
	s.selected = ""
	return had
}

// Add appends an element and selects it.
func (s *Store) Add(el model.Element) {
	next := make([]model.Element, 0, len(s.elements)+1)
	next = append(next, s.elements...)
	next = append(next, el)
	s.commit(next)
	s.selected = el.ID
}

// Update replaces the element with the same ID. Unknown IDs are ignored.
func (s *Store) Update(el model.Element) bool {
	i := s.index(el.ID)
	if i < 0 {
		return false
	}
	next := slices.Clone(s.elements)
	next[i] = el
	s.commit(next)
	return true
}

// Remove deletes the element with the given ID, clearing the selection if it
// pointed at it. Unknown IDs are ignored.
func (s *Store) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	next := slices.Delete(slices.Clone(s.elements), i, i+1)
	s.commit(next)
	if s.selected == id {
		s.selected = ""
	}
	return true
}

// Undo restores the element list before the last mutation.
func (s *Store) Undo() bool {
	prev, ok := s.history.undo(s.elements)
	if !ok {
		return false
	}
	s.elements = prev
	s.dropDanglingSelection()
	return true
}

// Redo reapplies the last undone mutation.
func (s *Store) Redo() bool {
	next, ok := s.history.redo(s.elements)
	if !ok {
		return false
	}
	s.elements = next
	s.dropDanglingSelection()
	return true
}

func (s *Store) CanUndo() bool { return s.history.canUndo() }
func (s *Store) CanRedo() bool { return s.history.canRedo() }

func (s *Store) commit(next []model.Element) {
	s.history.record(s.elements)
	s.elements = next
}

// dropDanglingSelection clears a selection whose element an undo or redo
// took away.
func (s *Store) dropDanglingSelection() {
	if s.selected != "" && s.index(s.selected) < 0 {
		s.selected = ""
	}
}

func (s *Store) index(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.elements, func(el model.Element) bool { return el.ID == id })
}

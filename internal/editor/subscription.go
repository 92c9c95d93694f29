package editor

import (
	"sync"

	"github.com/sakif/og-studio/internal/model"
)

// ClickKind says what a pointer click landed on.
type ClickKind string

const (
	ClickElement ClickKind = "element" // an element on the canvas
	ClickHandle  ClickKind = "handle"  // a resize/rotate handle
	ClickCanvas  ClickKind = "canvas"  // the canvas root itself
	ClickOutside ClickKind = "outside" // anything else
)

// ClickTarget is one click. ElementID is set for ClickElement.
type ClickTarget struct {
	Kind      ClickKind `json:"kind"`
	ElementID string    `json:"elementId,omitempty"`
}

// Subscription is the live binding between an input source and a mounted
// Editor. After Release every method is a no-op, so a late event from a
// closing connection cannot touch the next image.
type Subscription struct {
	mu       sync.Mutex
	editor   *Editor
	released bool
}

// HandleKey dispatches a keydown.
func (s *Subscription) HandleKey(ev KeyEvent) KeyResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return KeyResult{}
	}
	return s.editor.handleKey(ev)
}

// HandleClick applies a click and reports whether the selection changed.
// Clicks on the canvas root or a handle keep the selection; clicks anywhere
// else outside an element clear it.
func (s *Subscription) HandleClick(target ClickTarget) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return false
	}

	store := s.editor.store
	switch target.Kind {
	case ClickElement:
		if store.Selected() == target.ElementID {
			return false
		}
		return store.SetSelected(target.ElementID)
	case ClickHandle, ClickCanvas:
		return false
	default:
		return store.ClearSelection()
	}
}

// Select selects an element by ID, as picking it in the layer list does.
func (s *Subscription) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return false
	}
	if id == "" {
		return s.editor.store.ClearSelection()
	}
	return s.editor.store.SetSelected(id)
}

// UpdateElement replaces an element with an edited version, as the
// properties panel does. It reports whether the element existed.
func (s *Subscription) UpdateElement(el model.Element) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return false
	}
	return s.editor.store.Update(el)
}

// Release detaches the subscription. It is safe to call more than once.
func (s *Subscription) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
}

// Released reports whether Release has been called.
func (s *Subscription) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

package editor

import "github.com/sakif/og-studio/internal/model"

// TargetBody is the KeyEvent.Target of a key pressed while nothing but the
// page itself has focus.
const TargetBody = "body"

// SaveNotice is shown when the user presses the save shortcut.
const SaveNotice = "Your work is saved automatically!"

const (
	nudgeStep      = 1
	nudgeStepShift = 10
	pasteOffset    = 10
)

// insertKeys maps single-letter shortcuts to the element type they insert.
var insertKeys = map[string]model.ElementType{
	"t": model.ElementText,
	"b": model.ElementBox,
	"o": model.ElementRoundedBox,
	"i": model.ElementImage,
	"d": model.ElementDynamicText,
}

// KeyEvent is one keydown. Key follows the DOM KeyboardEvent.key values
// ("ArrowUp", "Escape", "z", "Z", ...). Target is TargetBody, or the tag of
// the focused input otherwise.
type KeyEvent struct {
	Key    string `json:"key"`
	Shift  bool   `json:"shift"`
	Ctrl   bool   `json:"ctrl"`
	Meta   bool   `json:"meta"`
	Target string `json:"target"`
}

func (k KeyEvent) command() bool {
	return k.Ctrl || k.Meta
}

// KeyResult tells the caller what a key did.
type KeyResult struct {
	Handled         bool   `json:"handled"`
	PreventDefault  bool   `json:"preventDefault"`
	StopPropagation bool   `json:"stopPropagation"`
	Changed         bool   `json:"changed"` // the element list changed
	Notice          string `json:"notice,omitempty"`
}

var handled = KeyResult{Handled: true, PreventDefault: true}

func changed(ok bool) KeyResult {
	r := handled
	r.Changed = ok
	return r
}

// handleKey runs the shortcut bound to ev.
//
// Escape, undo, redo, copy and paste work wherever focus is. Everything else
// only fires when focus is on the page body, so typing into a text field
// doesn't move or delete elements.
func (e *Editor) handleKey(ev KeyEvent) KeyResult {
	switch {
	case ev.Key == "Escape":
		if e.store.ClearSelection() {
			return handled
		}
		return KeyResult{}
	case ev.command() && ev.Key == "z":
		return changed(e.store.Undo())
	case ev.command() && ev.Key == "Z":
		return changed(e.store.Redo())
	case ev.command() && ev.Key == "c":
		return e.copySelected()
	case ev.command() && ev.Key == "v":
		return changed(e.paste())
	}

	if ev.Target != TargetBody {
		return KeyResult{}
	}

	switch ev.Key {
	case "ArrowUp":
		return e.nudge(0, -1, ev.Shift)
	case "ArrowDown":
		return e.nudge(0, 1, ev.Shift)
	case "ArrowLeft":
		return e.nudge(-1, 0, ev.Shift)
	case "ArrowRight":
		return e.nudge(1, 0, ev.Shift)
	case "Backspace", "Delete":
		return e.deleteSelected()
	}

	if ev.command() {
		if ev.Key == "s" {
			e.emit(SaveNotice)
			return KeyResult{Handled: true, StopPropagation: true, Notice: SaveNotice}
		}
		return KeyResult{}
	}

	if t, ok := insertKeys[ev.Key]; ok {
		return changed(e.insert(t))
	}

	return KeyResult{}
}

// nudge moves the selected element one step (ten with shift) along an axis.
func (e *Editor) nudge(dx, dy int, shift bool) KeyResult {
	id := e.store.Selected()
	if id == "" {
		return KeyResult{}
	}

	step := nudgeStep
	if shift {
		step = nudgeStepShift
	}

	el, ok := e.store.Find(id)
	if !ok {
		return handled
	}
	el.X += dx * step
	el.Y += dy * step
	return changed(e.store.Update(el))
}

func (e *Editor) deleteSelected() KeyResult {
	id := e.store.Selected()
	if id == "" {
		return KeyResult{}
	}
	return changed(e.store.Remove(id))
}

func (e *Editor) copySelected() KeyResult {
	id := e.store.Selected()
	if id == "" {
		return KeyResult{}
	}
	e.clipboard = id
	return handled
}

// paste adds a copy of the clipboard element, as it is now, offset
// diagonally, and points the clipboard at the copy so the next paste
// cascades from it.
func (e *Editor) paste() bool {
	if e.clipboard == "" {
		return false
	}
	src, ok := e.store.Find(e.clipboard)
	if !ok {
		return false
	}

	dup := src
	dup.ID = NewElementID()
	dup.X += pasteOffset
	dup.Y += pasteOffset

	e.store.Add(dup)
	e.clipboard = dup.ID
	return true
}

func (e *Editor) insert(t model.ElementType) bool {
	el, err := DefaultElement(t)
	if err != nil {
		e.logger.Error("editor: building default element", "type", t, "error", err)
		return false
	}
	e.store.Add(el)
	return true
}

package editor

import "github.com/sakif/og-studio/internal/model"

// DefaultHistoryLimit is how many undo steps a Store keeps when none is given.
const DefaultHistoryLimit = 100

// history is a bounded undo/redo stack of element-list snapshots.
//
// Snapshots are never mutated after they are pushed: the Store always builds
// a new slice when it changes the list, so pushing the old slice is enough.
type history struct {
	past   [][]model.Element
	future [][]model.Element
	limit  int
}

func newHistory(limit int) *history {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	return &history{limit: limit}
}

// record saves the list as it was before a mutation and drops the redo stack.
func (h *history) record(prev []model.Element) {
	h.past = append(h.past, prev)
	if len(h.past) > h.limit {
		// drop the oldest
		h.past = h.past[len(h.past)-h.limit:]
	}
	h.future = nil
}

// undo returns the previous snapshot and pushes current onto the redo stack.
func (h *history) undo(current []model.Element) ([]model.Element, bool) {
	if len(h.past) == 0 {
		return nil, false
	}
	prev := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, current)
	return prev, true
}

// redo returns the next snapshot and pushes current onto the undo stack.
func (h *history) redo(current []model.Element) ([]model.Element, bool) {
	if len(h.future) == 0 {
		return nil, false
	}
	next := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, current)
	return next, true
}

func (h *history) canUndo() bool { return len(h.past) > 0 }
func (h *history) canRedo() bool { return len(h.future) > 0 }

func (h *history) clear() {
	h.past = nil
	h.future = nil
}

package dagedit

import "slices"

// History keeps undo and redo stacks of committed graph snapshots.
// Only valid graphs are ever recorded.
//
// A positive limit bounds the undo stack; when full, the oldest snapshot is
// dropped. The redo stack is never larger than the number of undos performed.
//
// History is not safe for concurrent use; the owning Editor serializes access.
type History struct {
	undo  []Graph
	redo  []Graph
	limit int
}

// NewHistory creates an empty History. limit <= 0 means unbounded.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Record pushes the state that was current before a commit and clears redo.
// History takes ownership of previous; callers must not modify it afterwards.
func (h *History) Record(previous Graph) {
	h.pushUndo(previous)
	h.redo = nil
}

// Undo pops the most recent snapshot and pushes current onto the redo stack.
// Returns ErrNothingToUndo, leaving both stacks untouched, if there is nothing to undo.
func (h *History) Undo(current Graph) (Graph, error) {
	if len(h.undo) == 0 {
		return Graph{}, ErrNothingToUndo
	}
	last := len(h.undo) - 1
	prev := h.undo[last]
	h.undo[last] = Graph{}
	h.undo = h.undo[:last]
	h.redo = append(h.redo, current)
	return prev, nil
}

// Redo is the mirror of Undo.
// Returns ErrNothingToRedo, leaving both stacks untouched, if there is nothing to redo.
func (h *History) Redo(current Graph) (Graph, error) {
	if len(h.redo) == 0 {
		return Graph{}, ErrNothingToRedo
	}
	last := len(h.redo) - 1
	next := h.redo[last]
	h.redo[last] = Graph{}
	h.redo = h.redo[:last]
	h.pushUndo(current)
	return next, nil
}

// CanUndo reports whether Undo would succeed.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether Redo would succeed.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Depth returns the sizes of the undo and redo stacks.
func (h *History) Depth() (undo, redo int) { return len(h.undo), len(h.redo) }

// Clone returns a History with copies of both stacks. Snapshots are never
// modified once recorded, so they are shared.
func (h *History) Clone() *History {
	return &History{
		undo:  slices.Clone(h.undo),
		redo:  slices.Clone(h.redo),
		limit: h.limit,
	}
}

// Clear discards both stacks.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}

func (h *History) pushUndo(g Graph) {
	h.undo = append(h.undo, g)
	if h.limit > 0 && len(h.undo) > h.limit {
		// Evict oldest first.
		drop := len(h.undo) - h.limit
		clear(h.undo[:drop])
		h.undo = h.undo[drop:]
	}
}

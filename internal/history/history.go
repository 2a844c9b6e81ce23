// Package history provides the bounded undo/redo engine. History is linear:
// committing a new action always discards the redo stack.
package history

import "shoplist-core/internal/models"

// MaxDepth bounds the undo stack. Oldest entries are evicted silently.
const MaxDepth = 50

// Entry is one history snapshot: a full value copy of the project plus the
// label of the action that produced it.
type Entry struct {
	Snapshot models.Project
	Label    string
}

// History holds the past and future stacks for one loaded project.
// Snapshots are whole-project value copies rather than diffs: projects are
// small user-curated lists, and whole snapshots cannot produce partial-patch
// conflicts.
type History struct {
	past   []Entry
	future []Entry
}

// New returns an empty history.
func New() *History {
	return &History{}
}

// Commit pushes the pre-mutation state of the project onto the past stack
// and clears the future stack. Mutating operations call this before applying
// their change.
func (h *History) Commit(project models.Project, label string) {
	h.past = append(h.past, Entry{Snapshot: project.Clone(), Label: label})
	if len(h.past) > MaxDepth {
		h.past = h.past[len(h.past)-MaxDepth:]
	}
	h.future = h.future[:0]
}

// Undo pushes current onto the future stack and returns the most recent past
// snapshot. Returns ok=false without side effects when there is nothing to
// undo.
func (h *History) Undo(current models.Project) (models.Project, bool) {
	if len(h.past) == 0 {
		return models.Project{}, false
	}
	h.future = append(h.future, Entry{Snapshot: current.Clone(), Label: "Undo"})
	entry := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	return entry.Snapshot, true
}

// Redo is the inverse of Undo, using the future stack.
func (h *History) Redo(current models.Project) (models.Project, bool) {
	if len(h.future) == 0 {
		return models.Project{}, false
	}
	h.past = append(h.past, Entry{Snapshot: current.Clone(), Label: "Redo"})
	entry := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	return entry.Snapshot, true
}

// CanUndo reports whether the past stack is non-empty.
func (h *History) CanUndo() bool {
	return len(h.past) > 0
}

// CanRedo reports whether the future stack is non-empty.
func (h *History) CanRedo() bool {
	return len(h.future) > 0
}

// Depth returns the size of the past stack.
func (h *History) Depth() int {
	return len(h.past)
}

// Reset clears both stacks. Called when the loaded project switches.
func (h *History) Reset() {
	h.past = h.past[:0]
	h.future = h.future[:0]
}

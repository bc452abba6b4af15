package editor

import "github.com/hanko-field/bizdoc/internal/domain"

// history is an arena of immutable snapshots with a cursor at the live document.
// Entries before the cursor are undo points, entries after it are redo points.
type history struct {
	depth     int
	snapshots []domain.BusinessDocument
	cursor    int
}

func newHistory(initial domain.BusinessDocument, depth int) *history {
	if depth <= 0 {
		depth = domain.DefaultUndoDepth
	}
	return &history{
		depth:     depth,
		snapshots: []domain.BusinessDocument{initial.Clone()},
	}
}

// current returns the live snapshot. Callers must clone before mutating.
func (h *history) current() domain.BusinessDocument {
	return h.snapshots[h.cursor]
}

// push drops any redo points, appends doc, and discards the oldest snapshot
// once more than depth undo points are held.
func (h *history) push(doc domain.BusinessDocument) {
	h.snapshots = append(h.snapshots[:h.cursor+1], doc.Clone())
	if overflow := len(h.snapshots) - (h.depth + 1); overflow > 0 {
		trimmed := make([]domain.BusinessDocument, len(h.snapshots)-overflow)
		copy(trimmed, h.snapshots[overflow:])
		h.snapshots = trimmed
	}
	h.cursor = len(h.snapshots) - 1
}

func (h *history) undo() (domain.BusinessDocument, bool) {
	if !h.canUndo() {
		return domain.BusinessDocument{}, false
	}
	h.cursor--
	return h.current(), true
}

func (h *history) redo() (domain.BusinessDocument, bool) {
	if !h.canRedo() {
		return domain.BusinessDocument{}, false
	}
	h.cursor++
	return h.current(), true
}

func (h *history) canUndo() bool {
	return h.cursor > 0
}

func (h *history) canRedo() bool {
	return h.cursor < len(h.snapshots)-1
}

// reset makes doc the only snapshot.
func (h *history) reset(doc domain.BusinessDocument) {
	h.snapshots = []domain.BusinessDocument{doc.Clone()}
	h.cursor = 0
}

package engine

import (
	"stembed/internal/command"
	"stembed/internal/stroke"
)

// HistorySize bounds the strokes the engine remembers, and with them the
// depth of undo.
const HistorySize = 100

// OutlineInfo describes a matched outline. It is stored on the entry of the
// outline's last stroke.
type OutlineInfo[O any] struct {
	// Length is the number of strokes in the outline.
	Length int
	// Commands is the list the outline produced.
	Commands command.List[O]
	// Outputs is the number of output commands pushed for the outline.
	Outputs int
}

// Entry is one remembered stroke.
type Entry[O any] struct {
	Stroke stroke.Stroke
	Info   *OutlineInfo[O]
}

// History is a fixed-capacity ring of entries, oldest first.
type History[O any] struct {
	entries [HistorySize]Entry[O]
	head    int
	n       int
}

// Len returns the number of entries held.
func (h *History[O]) Len() int { return h.n }

// Push appends e, evicting the oldest entry when full. It reports whether an
// entry was evicted.
func (h *History[O]) Push(e Entry[O]) bool {
	if h.n == HistorySize {
		h.entries[h.head] = e
		h.head = (h.head + 1) % HistorySize
		return true
	}
	h.entries[(h.head+h.n)%HistorySize] = e
	h.n++
	return false
}

// At returns the entry i places from the oldest.
func (h *History[O]) At(i int) *Entry[O] {
	if i < 0 || i >= h.n {
		panic("engine: history index out of range")
	}
	return &h.entries[(h.head+i)%HistorySize]
}

// Pop removes and returns the newest entry.
func (h *History[O]) Pop() (Entry[O], bool) {
	if h.n == 0 {
		return Entry[O]{}, false
	}
	h.n--
	i := (h.head + h.n) % HistorySize
	e := h.entries[i]
	h.entries[i] = Entry[O]{}
	return e, true
}

// PopN removes up to n of the newest entries and returns them oldest first.
func (h *History[O]) PopN(n int) []Entry[O] {
	n = min(n, h.n)
	out := make([]Entry[O], n)
	for i := n - 1; i >= 0; i-- {
		out[i], _ = h.Pop()
	}
	return out
}

// Outline returns the strokes of the newest n entries.
func (h *History[O]) Outline(n int) stroke.Outline {
	o := make(stroke.Outline, n)
	for i := 0; i < n; i++ {
		o[i] = h.At(h.n - n + i).Stroke
	}
	return o
}

// Reset empties the history.
func (h *History[O]) Reset() {
	*h = History[O]{}
}

// Package engine turns strokes into command deltas by matching the longest
// outline the dictionary knows, keeping enough history to undo.
package engine

import (
	"context"
	"log/slog"

	"stembed/internal/command"
	"stembed/internal/dictionary"
	"stembed/internal/stroke"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for per-stroke debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Engine matches strokes against a dictionary. It is not safe for concurrent
// use; callers serialise Push.
type Engine[O any] struct {
	dict    dictionary.Dictionary[O]
	history History[O]
	logger  *slog.Logger
}

// New returns an engine with empty history.
func New[O any](dict dictionary.Dictionary[O], opts ...Option) *Engine[O] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine[O]{
		dict:   dict,
		logger: o.logger.With("component", "engine"),
	}
}

// Dictionary returns the dictionary in use.
func (e *Engine[O]) Dictionary() dictionary.Dictionary[O] { return e.dict }

// SetDictionary replaces the dictionary and forgets the history, which was
// matched against the old one.
func (e *Engine[O]) SetDictionary(d dictionary.Dictionary[O]) {
	e.dict = d
	e.history.Reset()
}

// Reset forgets the history.
func (e *Engine[O]) Reset() { e.history.Reset() }

// Depth returns the number of strokes in the history.
func (e *Engine[O]) Depth() int { return e.history.Len() }

// RetainedOutputs returns the number of output commands pushed by outlines
// still in the history. Undo never reaches further back than this.
func (e *Engine[O]) RetainedOutputs() int {
	n := 0
	for i := 0; i < e.history.Len(); i++ {
		if info := e.history.At(i).Info; info != nil {
			n += info.Outputs
		}
	}
	return n
}

// Push translates one stroke.
//
// Windows of the newest strokes are tried longest first, bounded by the
// dictionary's longest outline. Every earlier outline the matched window
// touches is undone as a whole and replaced. When the window starts inside
// an outline, the strokes of that outline before the window stay in the
// history without output of their own. If nothing matches, the
// dictionary's fallback for the stroke is used.
func (e *Engine[O]) Push(ctx context.Context, s stroke.Stroke) command.Delta[O] {
	if e.history.Push(Entry[O]{Stroke: s}) {
		e.logger.Debug("history full, oldest stroke evicted")
	}
	depth := e.history.Len()

	var (
		list command.List[O]
		n    int
	)
	for w := min(max(e.dict.LongestOutlineLength(), 1), depth); w >= 1; w-- {
		if l, ok := e.dict.Lookup(ctx, e.history.Outline(w)); ok {
			list, n = l, w
			break
		}
	}
	if n == 0 {
		list, n = e.dict.FallbackCommands(s), 1
	}

	var delta command.Delta[O]
	for i := depth - n; i < depth-1; i++ {
		if entry := e.history.At(i); entry.Info != nil {
			delta.ToUndo += entry.Info.Outputs
			entry.Info = nil
		}
	}

	window := e.history.PopN(n)
	for _, c := range list {
		if u, ok := c.EngineValue(); ok && u == command.UndoPrevious {
			delta.ToUndo += e.undoPrevious()
		}
	}

	delta.ToPush = list.Outputs()
	if list.Contains(command.UndoPrevious) && list.OnlyEngine() {
		e.logger.Debug("undo", "stroke", s.String(), "to_undo", delta.ToUndo, "depth", e.history.Len())
		return delta
	}

	for _, entry := range window {
		e.history.Push(entry)
	}
	e.history.At(e.history.Len() - 1).Info = &OutlineInfo[O]{
		Length:   n,
		Commands: list,
		Outputs:  len(delta.ToPush),
	}
	e.logger.Debug("translated", "stroke", s.String(), "strokes", n, "to_undo", delta.ToUndo, "to_push", len(delta.ToPush))
	return delta
}

// undoPrevious drops the newest outline from history and returns how many
// outputs it pushed. A leftover stroke of a split outline is dropped on its
// own with nothing to erase, and an empty history undoes nothing.
func (e *Engine[O]) undoPrevious() int {
	depth := e.history.Len()
	if depth == 0 {
		return 0
	}
	info := e.history.At(depth - 1).Info
	if info == nil {
		e.history.Pop()
		return 0
	}
	e.history.PopN(info.Length)
	return info.Outputs
}

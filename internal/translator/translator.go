// Package translator wires an engine, a text formatter and an output sink
// into the stroke-in, keystrokes-out pipeline.
package translator

import (
	"context"
	"log/slog"
	"sync"

	"stembed/internal/dictionary"
	"stembed/internal/engine"
	"stembed/internal/formatter"
	"stembed/internal/output"
	"stembed/internal/stroke"
)

// Dictionary is a dictionary of text commands.
type Dictionary = dictionary.Dictionary[formatter.Command]

// LiteralFallback writes an unmatched stroke in steno notation.
func LiteralFallback() dictionary.Fallback[formatter.Command] {
	return dictionary.LiteralFallback(formatter.Write)
}

// Option configures a Translator.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	formatter []formatter.Option
}

// WithLogger sets the logger for the translator and the stages it builds.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFormatterOptions passes options to the text formatter.
func WithFormatterOptions(opts ...formatter.Option) Option {
	return func(o *options) { o.formatter = append(o.formatter, opts...) }
}

// Stats counts translated strokes.
type Stats struct {
	Strokes    uint64
	Undos      uint64
	Backspaces uint64
	Characters uint64
}

// Translator processes one stroke at a time to completion. All methods are
// safe for concurrent use; strokes are serialised.
type Translator struct {
	mu        sync.Mutex
	engine    *engine.Engine[formatter.Command]
	formatter *formatter.TextFormatter
	sink      output.Sink
	logger    *slog.Logger
	stats     Stats
}

// New builds a translator over dict that sends its output to sink.
func New(dict Dictionary, sink output.Sink, opts ...Option) *Translator {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Translator{
		engine:    engine.New(dict, engine.WithLogger(o.logger)),
		formatter: formatter.New(append([]formatter.Option{formatter.WithLogger(o.logger)}, o.formatter...)...),
		sink:      sink,
		logger:    o.logger.With("component", "translator"),
	}
}

// Translate runs s through the pipeline, sends the result to the sink and
// returns it.
func (t *Translator) Translate(ctx context.Context, s stroke.Stroke) formatter.InstructionSet {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.translate(ctx, s)
}

// TranslateOutline translates each stroke of o in order and returns the
// combined instructions.
func (t *Translator) TranslateOutline(ctx context.Context, o stroke.Outline) formatter.InstructionSet {
	t.mu.Lock()
	defer t.mu.Unlock()
	var all formatter.InstructionSet
	for _, s := range o {
		all = append(all, t.translate(ctx, s)...)
	}
	return all
}

func (t *Translator) translate(ctx context.Context, s stroke.Stroke) formatter.InstructionSet {
	delta := t.engine.Push(ctx, s)
	set := t.formatter.Consume(delta)
	t.formatter.Retain(t.engine.RetainedOutputs())

	t.stats.Strokes++
	if delta.ToUndo > 0 {
		t.stats.Undos++
	}
	for _, in := range set {
		switch in.Kind {
		case formatter.InstructionBackspace:
			t.stats.Backspaces += uint64(in.Count)
		case formatter.InstructionWrite:
			t.stats.Characters += uint64(len([]rune(in.Text)))
		}
	}

	if len(set) > 0 {
		t.sink.Send(ctx, set)
	}
	t.logger.Debug("stroke", "stroke", s.String(), "output", output.Describe(set))
	return set
}

// Reset forgets stroke history and formatting state.
func (t *Translator) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.engine.Reset()
	t.formatter.Reset()
}

// SwapDictionary replaces the dictionary and resets the pipeline, since the
// history was matched against the old dictionary.
func (t *Translator) SwapDictionary(d Dictionary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.engine.SetDictionary(d)
	t.formatter.Reset()
	t.logger.Info("dictionary swapped", "longest_outline", d.LongestOutlineLength())
}

// Dictionary returns the dictionary in use.
func (t *Translator) Dictionary() Dictionary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine.Dictionary()
}

// State returns the formatter state.
func (t *Translator) State() formatter.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.formatter.State()
}

// Stats returns a snapshot of the counters.
func (t *Translator) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Package formatter turns text output commands into concrete backspace and
// write instructions.
//
// The formatter is a small state machine over a delimiter, an attachment
// mode and a capitalization mode. One-shot modes apply to exactly one write
// and then revert to the default; persistent modes stay in effect until
// changed. For every pushed command the formatter remembers how many
// characters it typed and the state before it, so undoing commands erases
// exactly what they wrote and restores the formatting that preceded them.
// Records are kept until the caller releases them with Retain, which lets
// the owner of the stroke history decide how far back undo reaches.
//
// Every Write is formatted and then ticks, including an empty one: Write("")
// types the delimiter when the attachment mode asks for it and consumes
// one-shot modes.
package formatter

import (
	"log/slog"
	"unicode"
	"unicode/utf8"

	"stembed/internal/command"
)

// State is the current formatting state.
type State struct {
	Delimiter      rune
	Attachment     AttachmentMode
	Capitalization CapitalizationMode
}

// DefaultState returns the state used at startup and after ResetFormatting.
func DefaultState() State {
	return State{Delimiter: ' ', Attachment: AttachmentDelimited, Capitalization: CapitalizationNone}
}

type record struct {
	chars  int
	before State
}

// TextFormatter converts command deltas into instruction sets. It is not
// safe for concurrent use.
type TextFormatter struct {
	defaults State
	state    State
	history  []record
	logger   *slog.Logger
}

// Option configures a TextFormatter.
type Option func(*TextFormatter)

// WithDelimiter sets the default delimiter.
func WithDelimiter(r rune) Option {
	return func(f *TextFormatter) { f.defaults.Delimiter = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *TextFormatter) { f.logger = l }
}

// New creates a formatter in the default state.
func New(opts ...Option) *TextFormatter {
	f := &TextFormatter{defaults: DefaultState()}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	f.state = f.defaults
	return f
}

// State returns the current formatting state.
func (f *TextFormatter) State() State { return f.state }

// Reset restores the default state and forgets all undo history.
func (f *TextFormatter) Reset() {
	f.state = f.defaults
	f.history = f.history[:0]
}

// Consume applies a delta: one Backspace covering everything the undone
// commands typed, then the instructions for each pushed command in order.
func (f *TextFormatter) Consume(delta command.Delta[Command]) InstructionSet {
	out := make(InstructionSet, 0, len(delta.ToPush)+1)

	if delta.ToUndo > 0 {
		if erased := f.undo(delta.ToUndo); erased > 0 {
			out = append(out, Backspace(erased))
		}
	}

	for _, cmd := range delta.ToPush {
		before := f.state
		chars := f.apply(cmd, &out)
		f.history = append(f.history, record{chars: chars, before: before})
	}

	return out
}

// undo pops n records, clamped to what is retained, and returns the number
// of characters they typed.
func (f *TextFormatter) undo(n int) int {
	if n > len(f.history) {
		f.logger.Debug("undo exceeds formatter history",
			"requested", n,
			"retained", len(f.history))
		n = len(f.history)
	}
	if n == 0 {
		return 0
	}

	start := len(f.history) - n
	chars := 0
	for _, r := range f.history[start:] {
		chars += r.chars
	}
	f.state = f.history[start].before
	f.history = f.history[:start]
	return chars
}

// Undoable returns the number of pushed commands that can still be undone.
func (f *TextFormatter) Undoable() int { return len(f.history) }

// Retain forgets the oldest records so that at most n pushed commands remain
// undoable.
func (f *TextFormatter) Retain(n int) {
	n = max(n, 0)
	if drop := len(f.history) - n; drop > 0 {
		f.history = append(f.history[:0], f.history[drop:]...)
	}
}

// apply executes one command and returns the number of characters typed.
func (f *TextFormatter) apply(cmd Command, out *InstructionSet) int {
	switch cmd.Kind {
	case KindWrite:
		text := f.format(cmd.Text)
		f.tick()
		if text == "" {
			return 0
		}
		*out = append(*out, WriteText(text))
		return utf8.RuneCountInString(text)
	case KindChangeCapitalization:
		f.state.Capitalization = cmd.Capitalization
	case KindChangeAttachment:
		f.state.Attachment = cmd.Attachment
	case KindChangeDelimiter:
		f.state.Delimiter = cmd.Delimiter
	case KindResetFormatting:
		f.state = f.defaults
	default:
		f.logger.Warn("ignoring unknown text command", "kind", cmd.Kind)
	}
	return 0
}

// format applies capitalization and then attachment to text.
func (f *TextFormatter) format(text string) string {
	switch f.state.Capitalization {
	case CapitalizationNext, CapitalizationAlways:
		text = capitalizeFirst(text)
	}
	if f.state.Attachment == AttachmentDelimited {
		text = string(f.state.Delimiter) + text
	}
	return text
}

// tick consumes one-shot modes after a write.
func (f *TextFormatter) tick() {
	if f.state.Capitalization.OneShot() {
		f.state.Capitalization = CapitalizationNone
	}
	if f.state.Attachment.OneShot() {
		f.state.Attachment = AttachmentDelimited
	}
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

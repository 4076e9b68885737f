// Package dictionary defines the Dictionary capability the engine matches
// outlines against, together with an in-memory implementation and an LRU
// decorator for slow backends.
package dictionary

import (
	"context"

	"stembed/internal/command"
	"stembed/internal/stroke"
)

// DefaultLongestOutline is the outline bound used when a backend does not
// specify one.
const DefaultLongestOutline = 10

// Dictionary maps outlines to command lists.
//
// Lookup never fails: backends convert storage errors and corruption into a
// miss so that a bad entry can only mistranslate, never stop translation.
type Dictionary[O any] interface {
	// Lookup returns the command list stored for outline.
	Lookup(ctx context.Context, outline stroke.Outline) (command.List[O], bool)

	// FallbackCommands returns the commands used for a stroke that matched
	// nothing. It performs no I/O and never returns an empty list.
	FallbackCommands(s stroke.Stroke) command.List[O]

	// LongestOutlineLength bounds the outlines the dictionary can match.
	LongestOutlineLength() int
}

// Fallback produces the commands for an unmatched stroke.
type Fallback[O any] func(s stroke.Stroke) command.List[O]

// LiteralFallback writes the stroke's steno notation, e.g. "KAT".
func LiteralFallback[O any](literal func(text string) O) Fallback[O] {
	return func(s stroke.Stroke) command.List[O] {
		list := command.NewList[O]()
		return append(list, command.Output(literal(s.Format())))
	}
}

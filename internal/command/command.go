// Package command defines the commands a dictionary maps outlines to and the
// deltas the engine hands to the output stage.
package command

import "fmt"

// ListCapacity is the expected size of a command list. It is a sizing hint,
// lists may be longer.
const ListCapacity = 4

// EngineCommand is a command consumed by the engine itself.
type EngineCommand uint8

const (
	// UndoPrevious undoes the outline translated before the current one.
	UndoPrevious EngineCommand = iota
)

// String implements fmt.Stringer.
func (c EngineCommand) String() string {
	switch c {
	case UndoPrevious:
		return "UndoPrevious"
	default:
		return fmt.Sprintf("EngineCommand(%d)", uint8(c))
	}
}

// Command is either an output payload forwarded to the output stage or an
// engine command.
type Command[O any] struct {
	output   O
	engine   EngineCommand
	isEngine bool
}

// Output wraps an output payload.
func Output[O any](o O) Command[O] {
	return Command[O]{output: o}
}

// Engine wraps an engine command.
func Engine[O any](c EngineCommand) Command[O] {
	return Command[O]{engine: c, isEngine: true}
}

// IsEngine reports whether the command is an engine command.
func (c Command[O]) IsEngine() bool { return c.isEngine }

// OutputValue returns the payload and true for output commands.
func (c Command[O]) OutputValue() (O, bool) {
	return c.output, !c.isEngine
}

// EngineValue returns the engine command and true for engine commands.
func (c Command[O]) EngineValue() (EngineCommand, bool) {
	return c.engine, c.isEngine
}

// List is an ordered command list.
type List[O any] []Command[O]

// NewList returns an empty list sized for the common case.
func NewList[O any]() List[O] {
	return make(List[O], 0, ListCapacity)
}

// Outputs returns the output payloads in order.
func (l List[O]) Outputs() []O {
	out := make([]O, 0, len(l))
	for _, c := range l {
		if o, ok := c.OutputValue(); ok {
			out = append(out, o)
		}
	}
	return out
}

// Contains reports whether the list holds the engine command c.
func (l List[O]) Contains(c EngineCommand) bool {
	for _, cmd := range l {
		if e, ok := cmd.EngineValue(); ok && e == c {
			return true
		}
	}
	return false
}

// OnlyEngine reports whether the list holds no output commands.
func (l List[O]) OnlyEngine() bool {
	for _, c := range l {
		if !c.IsEngine() {
			return false
		}
	}
	return true
}

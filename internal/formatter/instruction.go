package formatter

import "fmt"

// InstructionKind discriminates output instructions.
type InstructionKind uint8

const (
	InstructionBackspace InstructionKind = iota
	InstructionWrite
)

// Instruction is a concrete edit for the output sink.
type Instruction struct {
	Kind  InstructionKind
	Count int
	Text  string
}

// Backspace erases count characters.
func Backspace(count int) Instruction {
	return Instruction{Kind: InstructionBackspace, Count: count}
}

// WriteText types text.
func WriteText(text string) Instruction {
	return Instruction{Kind: InstructionWrite, Text: text}
}

// String implements fmt.Stringer.
func (i Instruction) String() string {
	if i.Kind == InstructionBackspace {
		return fmt.Sprintf("Backspace(%d)", i.Count)
	}
	return fmt.Sprintf("Write(%q)", i.Text)
}

// InstructionSet is an ordered list of instructions.
type InstructionSet []Instruction

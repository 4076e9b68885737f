package formatter

import (
	"fmt"
	"strconv"
)

// CapitalizationMode controls the case of the first letter of a write.
type CapitalizationMode uint8

const (
	// CapitalizationNone leaves text unchanged. Persistent, the default.
	CapitalizationNone CapitalizationMode = iota
	// CapitalizationNext capitalizes the next write only.
	CapitalizationNext
	// CapitalizationAlways capitalizes every write until changed.
	CapitalizationAlways
)

// OneShot reports whether the mode reverts after one write.
func (m CapitalizationMode) OneShot() bool { return m == CapitalizationNext }

func (m CapitalizationMode) String() string {
	switch m {
	case CapitalizationNone:
		return "none"
	case CapitalizationNext:
		return "next"
	case CapitalizationAlways:
		return "always"
	default:
		return "capitalization(" + strconv.Itoa(int(m)) + ")"
	}
}

// AttachmentMode controls whether the delimiter precedes a write.
type AttachmentMode uint8

const (
	// AttachmentDelimited inserts the delimiter. Persistent, the default.
	AttachmentDelimited AttachmentMode = iota
	// AttachmentNext attaches the next write to the previous output.
	AttachmentNext
	// AttachmentAlways attaches every write until changed.
	AttachmentAlways
)

// OneShot reports whether the mode reverts after one write.
func (m AttachmentMode) OneShot() bool { return m == AttachmentNext }

func (m AttachmentMode) String() string {
	switch m {
	case AttachmentDelimited:
		return "delimited"
	case AttachmentNext:
		return "next"
	case AttachmentAlways:
		return "always"
	default:
		return "attachment(" + strconv.Itoa(int(m)) + ")"
	}
}

// Kind discriminates text output commands.
type Kind uint8

const (
	KindWrite Kind = iota
	KindChangeCapitalization
	KindChangeAttachment
	KindChangeDelimiter
	KindResetFormatting
)

// Command is a text output command.
type Command struct {
	Kind           Kind
	Text           string
	Capitalization CapitalizationMode
	Attachment     AttachmentMode
	Delimiter      rune
}

// Write emits text.
func Write(text string) Command {
	return Command{Kind: KindWrite, Text: text}
}

// ChangeCapitalization switches the capitalization mode.
func ChangeCapitalization(m CapitalizationMode) Command {
	return Command{Kind: KindChangeCapitalization, Capitalization: m}
}

// ChangeAttachment switches the attachment mode.
func ChangeAttachment(m AttachmentMode) Command {
	return Command{Kind: KindChangeAttachment, Attachment: m}
}

// ChangeDelimiter replaces the delimiter.
func ChangeDelimiter(r rune) Command {
	return Command{Kind: KindChangeDelimiter, Delimiter: r}
}

// ResetFormatting restores the default state.
func ResetFormatting() Command {
	return Command{Kind: KindResetFormatting}
}

// String implements fmt.Stringer.
func (c Command) String() string {
	switch c.Kind {
	case KindWrite:
		return fmt.Sprintf("Write(%q)", c.Text)
	case KindChangeCapitalization:
		return "ChangeCapitalization(" + c.Capitalization.String() + ")"
	case KindChangeAttachment:
		return "ChangeAttachment(" + c.Attachment.String() + ")"
	case KindChangeDelimiter:
		return fmt.Sprintf("ChangeDelimiter(%q)", c.Delimiter)
	case KindResetFormatting:
		return "ResetFormatting"
	default:
		return fmt.Sprintf("Command(%d)", c.Kind)
	}
}

package formatter

import (
	"context"
	"fmt"

	"stembed/internal/bytestream"
	"stembed/internal/serial"
)

// Codec encodes text commands as a kind byte followed by the payload:
// a string for Write, one mode byte for the mode changes, a u32 rune for
// ChangeDelimiter and nothing for ResetFormatting.
type Codec struct{}

var _ serial.Codec[Command] = Codec{}

// Encode implements serial.Codec.
func (Codec) Encode(ctx context.Context, w bytestream.Writer, c Command) error {
	if err := serial.WriteUint8(ctx, w, uint8(c.Kind)); err != nil {
		return err
	}
	switch c.Kind {
	case KindWrite:
		return serial.WriteString(ctx, w, c.Text)
	case KindChangeCapitalization:
		return serial.WriteUint8(ctx, w, uint8(c.Capitalization))
	case KindChangeAttachment:
		return serial.WriteUint8(ctx, w, uint8(c.Attachment))
	case KindChangeDelimiter:
		return serial.WriteUint32(ctx, w, uint32(c.Delimiter))
	case KindResetFormatting:
		return nil
	default:
		return fmt.Errorf("formatter: cannot encode command kind %d", c.Kind)
	}
}

// Decode implements serial.Codec.
func (Codec) Decode(ctx context.Context, r bytestream.Reader) (Command, error) {
	kind, err := serial.ReadUint8(ctx, r)
	if err != nil {
		return Command{}, err
	}

	switch Kind(kind) {
	case KindWrite:
		text, err := serial.ReadString(ctx, r)
		if err != nil {
			return Command{}, err
		}
		return Write(text), nil
	case KindChangeCapitalization:
		m, err := serial.ReadUint8(ctx, r)
		if err != nil {
			return Command{}, err
		}
		if CapitalizationMode(m) > CapitalizationAlways {
			return Command{}, fmt.Errorf("%w: capitalization mode %d", serial.ErrDecode, m)
		}
		return ChangeCapitalization(CapitalizationMode(m)), nil
	case KindChangeAttachment:
		m, err := serial.ReadUint8(ctx, r)
		if err != nil {
			return Command{}, err
		}
		if AttachmentMode(m) > AttachmentAlways {
			return Command{}, fmt.Errorf("%w: attachment mode %d", serial.ErrDecode, m)
		}
		return ChangeAttachment(AttachmentMode(m)), nil
	case KindChangeDelimiter:
		v, err := serial.ReadUint32(ctx, r)
		if err != nil {
			return Command{}, err
		}
		return ChangeDelimiter(rune(v)), nil
	case KindResetFormatting:
		return ResetFormatting(), nil
	default:
		return Command{}, fmt.Errorf("%w: text command kind %d", serial.ErrDecode, kind)
	}
}

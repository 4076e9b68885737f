// Package serial encodes strokes and command lists onto byte streams.
//
// Integers are little-endian. Strokes are written as their raw bit-vector,
// exactly Layout.ByteCount() bytes with no length prefix: the width is
// supplied by the reader's layout rather than the stream.
package serial

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	"stembed/internal/bytestream"
	"stembed/internal/command"
	"stembed/internal/stroke"
)

// ErrDecode reports malformed input.
var ErrDecode = errors.New("serial: decode error")

// MaxStringLength is the longest string WriteString accepts.
const MaxStringLength = 0xFFFF

// Command tags.
const (
	tagEngine byte = 0
	tagOutput byte = 1
)

// Codec encodes an opaque output payload.
type Codec[O any] interface {
	Encode(ctx context.Context, w bytestream.Writer, o O) error
	Decode(ctx context.Context, r bytestream.Reader) (O, error)
}

// WriteStroke writes the stroke's bit-vector.
func WriteStroke(ctx context.Context, w bytestream.Writer, s stroke.Stroke) error {
	return bytestream.WriteAll(ctx, w, s.Bytes())
}

// ReadStroke reads one stroke of layout's width.
func ReadStroke(ctx context.Context, r bytestream.Reader, layout *stroke.Layout) (stroke.Stroke, error) {
	buf := make([]byte, layout.ByteCount())
	if err := bytestream.ReadFull(ctx, r, buf); err != nil {
		return stroke.Stroke{}, err
	}
	s, err := layout.FromBytes(buf)
	if err != nil {
		return stroke.Stroke{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return s, nil
}

// WriteOutline writes the strokes back to back.
func WriteOutline(ctx context.Context, w bytestream.Writer, o stroke.Outline) error {
	for _, s := range o {
		if err := WriteStroke(ctx, w, s); err != nil {
			return err
		}
	}
	return nil
}

// ReadOutline reads n strokes.
func ReadOutline(ctx context.Context, r bytestream.Reader, layout *stroke.Layout, n int) (stroke.Outline, error) {
	o := make(stroke.Outline, 0, n)
	for i := 0; i < n; i++ {
		s, err := ReadStroke(ctx, r, layout)
		if err != nil {
			return nil, err
		}
		o = append(o, s)
	}
	return o, nil
}

// WriteUint8 writes one byte.
func WriteUint8(ctx context.Context, w bytestream.Writer, v uint8) error {
	return w.Write(ctx, v)
}

// ReadUint8 reads one byte.
func ReadUint8(ctx context.Context, r bytestream.Reader) (uint8, error) {
	return r.Read(ctx)
}

// WriteUint16 writes v little-endian.
func WriteUint16(ctx context.Context, w bytestream.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return bytestream.WriteAll(ctx, w, buf[:])
}

// ReadUint16 reads a little-endian uint16.
func ReadUint16(ctx context.Context, r bytestream.Reader) (uint16, error) {
	var buf [2]byte
	if err := bytestream.ReadFull(ctx, r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// WriteUint32 writes v little-endian.
func WriteUint32(ctx context.Context, w bytestream.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return bytestream.WriteAll(ctx, w, buf[:])
}

// ReadUint32 reads a little-endian uint32.
func ReadUint32(ctx context.Context, r bytestream.Reader) (uint32, error) {
	var buf [4]byte
	if err := bytestream.ReadFull(ctx, r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// WriteString writes a u16 byte length followed by UTF-8 bytes.
func WriteString(ctx context.Context, w bytestream.Writer, s string) error {
	if len(s) > MaxStringLength {
		return fmt.Errorf("serial: string of %d bytes exceeds %d", len(s), MaxStringLength)
	}
	if err := WriteUint16(ctx, w, uint16(len(s))); err != nil {
		return err
	}
	return bytestream.WriteAll(ctx, w, []byte(s))
}

// ReadString reads a string written by WriteString.
func ReadString(ctx context.Context, r bytestream.Reader) (string, error) {
	n, err := ReadUint16(ctx, r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if err := bytestream.ReadFull(ctx, r, buf); err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("%w: invalid UTF-8", ErrDecode)
	}
	return string(buf), nil
}

// EncodeCommandList writes a u8 count followed by each command as a tag
// byte and its payload.
func EncodeCommandList[O any](ctx context.Context, w bytestream.Writer, codec Codec[O], list command.List[O]) error {
	if len(list) > 0xFF {
		return fmt.Errorf("serial: command list of %d exceeds 255", len(list))
	}
	if err := WriteUint8(ctx, w, uint8(len(list))); err != nil {
		return err
	}
	for _, c := range list {
		if e, ok := c.EngineValue(); ok {
			if err := WriteUint8(ctx, w, tagEngine); err != nil {
				return err
			}
			if err := WriteUint8(ctx, w, uint8(e)); err != nil {
				return err
			}
			continue
		}
		o, _ := c.OutputValue()
		if err := WriteUint8(ctx, w, tagOutput); err != nil {
			return err
		}
		if err := codec.Encode(ctx, w, o); err != nil {
			return err
		}
	}
	return nil
}

// DecodeCommandList reads a list written by EncodeCommandList.
func DecodeCommandList[O any](ctx context.Context, r bytestream.Reader, codec Codec[O]) (command.List[O], error) {
	n, err := ReadUint8(ctx, r)
	if err != nil {
		return nil, err
	}
	list := make(command.List[O], 0, max(int(n), command.ListCapacity))
	for i := 0; i < int(n); i++ {
		tag, err := ReadUint8(ctx, r)
		if err != nil {
			return nil, err
		}
		switch tag {
		case tagEngine:
			code, err := ReadUint8(ctx, r)
			if err != nil {
				return nil, err
			}
			if command.EngineCommand(code) != command.UndoPrevious {
				return nil, fmt.Errorf("%w: unknown engine command %d", ErrDecode, code)
			}
			list = append(list, command.Engine[O](command.EngineCommand(code)))
		case tagOutput:
			o, err := codec.Decode(ctx, r)
			if err != nil {
				return nil, err
			}
			list = append(list, command.Output(o))
		default:
			return nil, fmt.Errorf("%w: unknown command tag %d", ErrDecode, tag)
		}
	}
	return list, nil
}

// MarshalCommandList encodes a list to a byte slice.
func MarshalCommandList[O any](ctx context.Context, codec Codec[O], list command.List[O]) ([]byte, error) {
	m := bytestream.NewMemory(nil)
	if err := EncodeCommandList(ctx, m, codec, list); err != nil {
		return nil, err
	}
	return m.Bytes(), nil
}

// UnmarshalCommandList decodes a list from a byte slice, rejecting trailing
// bytes.
func UnmarshalCommandList[O any](ctx context.Context, codec Codec[O], data []byte) (command.List[O], error) {
	m := bytestream.NewMemory(data)
	list, err := DecodeCommandList(ctx, m, codec)
	if err != nil {
		if errors.Is(err, bytestream.ErrEOF) {
			return nil, fmt.Errorf("%w: truncated command list", ErrDecode)
		}
		return nil, err
	}
	if _, err := m.Read(ctx); err == nil {
		return nil, fmt.Errorf("%w: trailing bytes after command list", ErrDecode)
	}
	return list, nil
}

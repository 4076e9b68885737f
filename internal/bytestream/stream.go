// Package bytestream defines the minimal byte-level I/O contract the
// dictionary and serialization layers are built on.
//
// Every operation takes a context: it is the point where a caller may be
// suspended while a slow medium (SD card, flash, serial link) catches up, and
// a cancelled context aborts the operation. The contract does not promise any
// buffering; implementations that batch do so internally. After a failed
// Write the stream position is unspecified and callers must Seek before
// retrying.
package bytestream

import (
	"context"
	"errors"
	"fmt"
)

// Errors
var (
	// ErrEOF is returned when reading past the end of the stream.
	ErrEOF = errors.New("bytestream: end of stream")

	// ErrUnknown wraps any failure of the underlying medium.
	ErrUnknown = errors.New("bytestream: medium error")
)

// Whence selects the reference point of a seek.
type Whence uint8

const (
	FromStart Whence = iota
	FromEnd
	FromCurrent
)

// SeekFrom is a seek target relative to a reference point.
type SeekFrom struct {
	Whence Whence
	Offset int64
}

// Start seeks to an absolute position.
func Start(pos uint64) SeekFrom { return SeekFrom{Whence: FromStart, Offset: int64(pos)} }

// End seeks relative to the end of the stream.
func End(rel int64) SeekFrom { return SeekFrom{Whence: FromEnd, Offset: rel} }

// Current seeks relative to the current position.
func Current(rel int64) SeekFrom { return SeekFrom{Whence: FromCurrent, Offset: rel} }

// Reader reads one byte at a time.
type Reader interface {
	Read(ctx context.Context) (byte, error)
}

// Writer writes one byte at a time.
type Writer interface {
	Write(ctx context.Context, b byte) error
}

// Seeker moves the stream position and returns the new absolute offset.
type Seeker interface {
	Seek(ctx context.Context, to SeekFrom) (uint64, error)
}

// ReadSeeker groups Reader and Seeker.
type ReadSeeker interface {
	Reader
	Seeker
}

// ReadWriteSeeker groups all three operations.
type ReadWriteSeeker interface {
	Reader
	Writer
	Seeker
}

// ReadFull fills buf from r, stopping at the first error.
func ReadFull(ctx context.Context, r Reader, buf []byte) error {
	for i := range buf {
		b, err := r.Read(ctx)
		if err != nil {
			return err
		}
		buf[i] = b
	}
	return nil
}

// WriteAll writes every byte of buf to w.
func WriteAll(ctx context.Context, w Writer, buf []byte) error {
	for _, b := range buf {
		if err := w.Write(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// resolve computes the absolute target of a seek.
func resolve(to SeekFrom, current, size int64) (int64, error) {
	var pos int64
	switch to.Whence {
	case FromStart:
		pos = to.Offset
	case FromEnd:
		pos = size + to.Offset
	case FromCurrent:
		pos = current + to.Offset
	default:
		return 0, fmt.Errorf("%w: invalid whence %d", ErrUnknown, to.Whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("%w: seek to negative position %d", ErrUnknown, pos)
	}
	return pos, nil
}

// checkContext converts a cancelled context into a medium error that still
// matches the context's own error.
func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnknown, err)
	}
	return nil
}

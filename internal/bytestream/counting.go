package bytestream

import (
	"context"
	"fmt"
	"sync/atomic"
)

// CountingStats is a snapshot of the calls made through a Counting stream.
type CountingStats struct {
	Reads  int64
	Writes int64
	Seeks  int64
}

// Counting wraps a stream and counts every call made through it.
type Counting struct {
	inner  ReadSeeker
	reads  atomic.Int64
	writes atomic.Int64
	seeks  atomic.Int64
}

// NewCounting wraps inner.
func NewCounting(inner ReadSeeker) *Counting {
	return &Counting{inner: inner}
}

// Read implements Reader.
func (c *Counting) Read(ctx context.Context) (byte, error) {
	c.reads.Add(1)
	return c.inner.Read(ctx)
}

// Write implements Writer when the wrapped stream is writable.
func (c *Counting) Write(ctx context.Context, b byte) error {
	c.writes.Add(1)
	w, ok := c.inner.(Writer)
	if !ok {
		return fmt.Errorf("%w: stream is read-only", ErrUnknown)
	}
	return w.Write(ctx, b)
}

// Seek implements Seeker.
func (c *Counting) Seek(ctx context.Context, to SeekFrom) (uint64, error) {
	c.seeks.Add(1)
	return c.inner.Seek(ctx, to)
}

// Stats returns the current counters.
func (c *Counting) Stats() CountingStats {
	return CountingStats{
		Reads:  c.reads.Load(),
		Writes: c.writes.Load(),
		Seeks:  c.seeks.Load(),
	}
}

// Reset zeroes the counters.
func (c *Counting) Reset() {
	c.reads.Store(0)
	c.writes.Store(0)
	c.seeks.Store(0)
}

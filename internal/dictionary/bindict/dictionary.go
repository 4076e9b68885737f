package bindict

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"stembed/internal/bytestream"
	"stembed/internal/command"
	"stembed/internal/dictionary"
	"stembed/internal/serial"
	"stembed/internal/stroke"
)

// Config configures Open.
type Config[O any] struct {
	Layout *stroke.Layout
	Codec  serial.Codec[O]

	// Fallback produces commands for unmatched strokes. Required.
	Fallback dictionary.Fallback[O]

	// LongestOutline is the outline bound the dictionary was compiled with.
	// Zero selects dictionary.DefaultLongestOutline.
	LongestOutline int

	Logger *slog.Logger
}

// Stats counts lookups served by a Dictionary.
type Stats struct {
	Lookups uint64
	Hits    uint64
	Misses  uint64
	Corrupt uint64

	// Stream counts the byte stream calls made since Open.
	Stream bytestream.CountingStats
}

// Dictionary answers lookups by seeking into a byte stream laid out as
// described in the package documentation. Lookups are serialised on the
// stream.
type Dictionary[O any] struct {
	mu        sync.Mutex
	stream    *bytestream.Counting
	layout    *stroke.Layout
	codec     serial.Codec[O]
	fallback  dictionary.Fallback[O]
	longest   int
	regionLen uint64
	logger    *slog.Logger

	lookups atomic.Uint64
	hits    atomic.Uint64
	misses  atomic.Uint64
	corrupt atomic.Uint64
}

var _ dictionary.Dictionary[string] = (*Dictionary[string])(nil)

// Open checks the header of stream and returns a dictionary reading from it.
// The stream must stay open for the lifetime of the dictionary.
func Open[O any](ctx context.Context, stream bytestream.ReadSeeker, cfg Config[O]) (*Dictionary[O], error) {
	if cfg.Layout == nil || cfg.Codec == nil || cfg.Fallback == nil {
		return nil, errors.New("bindict: layout, codec and fallback are required")
	}
	if cfg.LongestOutline < 0 || cfg.LongestOutline > MaxOutlineStrokes {
		return nil, fmt.Errorf("bindict: longest outline %d out of range", cfg.LongestOutline)
	}

	if _, err := stream.Seek(ctx, bytestream.Start(0)); err != nil {
		return nil, fmt.Errorf("bindict: seek header: %w", err)
	}
	magic := make([]byte, len(Magic))
	if err := bytestream.ReadFull(ctx, stream, magic); err != nil {
		if errors.Is(err, bytestream.ErrEOF) {
			return nil, ErrBadMagic
		}
		return nil, fmt.Errorf("bindict: read header: %w", err)
	}
	if string(magic) != Magic {
		return nil, ErrBadMagic
	}

	size, err := stream.Seek(ctx, bytestream.End(0))
	if err != nil {
		return nil, fmt.Errorf("bindict: measure stream: %w", err)
	}
	if size < uint64(RegionOffset) {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, size)
	}

	d := &Dictionary[O]{
		stream:    bytestream.NewCounting(stream),
		layout:    cfg.Layout,
		codec:     cfg.Codec,
		fallback:  cfg.Fallback,
		longest:   cfg.LongestOutline,
		regionLen: size - uint64(RegionOffset),
		logger:    cfg.Logger,
	}
	if d.longest == 0 {
		d.longest = dictionary.DefaultLongestOutline
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.logger = d.logger.With("component", "bindict")
	return d, nil
}

// Layout returns the layout strokes are decoded with.
func (d *Dictionary[O]) Layout() *stroke.Layout { return d.layout }

// Lookup implements dictionary.Dictionary.
func (d *Dictionary[O]) Lookup(ctx context.Context, outline stroke.Outline) (command.List[O], bool) {
	d.lookups.Add(1)
	if len(outline) == 0 || len(outline) > MaxOutlineStrokes {
		d.misses.Add(1)
		return nil, false
	}

	d.mu.Lock()
	list, ok, err := d.lookup(ctx, outline)
	d.mu.Unlock()

	switch {
	case err == nil && ok:
		d.hits.Add(1)
		return list, true
	case err == nil:
	case ctx.Err() != nil:
		d.logger.Debug("lookup abandoned", "outline", outline.String(), "error", err)
	default:
		d.corrupt.Add(1)
		d.logger.Debug("lookup treated as miss", "outline", outline.String(), "error", err)
	}
	d.misses.Add(1)
	return nil, false
}

func (d *Dictionary[O]) lookup(ctx context.Context, outline stroke.Outline) (command.List[O], bool, error) {
	key := outline.Bytes()
	bucket := uint32(Hash(key) % HashTableSize)

	if _, err := d.stream.Seek(ctx, bytestream.Start(uint64(TableOffset)+uint64(bucket)*bucketSize)); err != nil {
		return nil, false, err
	}
	offset, err := serial.ReadUint32(ctx, d.stream)
	if err != nil {
		return nil, false, err
	}
	if offset == Empty {
		return nil, false, nil
	}
	if uint64(offset) >= d.regionLen {
		return nil, false, fmt.Errorf("%w: bucket %d offset %d beyond region", ErrCorrupt, bucket, offset)
	}
	if _, err := d.stream.Seek(ctx, bytestream.Start(uint64(RegionOffset)+uint64(offset))); err != nil {
		return nil, false, err
	}

	count, err := serial.ReadUint16(ctx, d.stream)
	if err != nil {
		return nil, false, err
	}
	if count == 0 || count > PrefixArraySizeLimit {
		return nil, false, fmt.Errorf("%w: bucket %d holds %d entries", ErrCorrupt, bucket, count)
	}

	width := d.layout.ByteCount()
	buf := make([]byte, 0, len(key))
	for i := 0; i < int(count); i++ {
		n, err := serial.ReadUint8(ctx, d.stream)
		if err != nil {
			return nil, false, err
		}
		if n == 0 {
			return nil, false, fmt.Errorf("%w: empty outline in bucket %d", ErrCorrupt, bucket)
		}
		match := int(n) == len(outline)
		if match {
			buf = buf[:len(key)]
			if err := bytestream.ReadFull(ctx, d.stream, buf); err != nil {
				return nil, false, err
			}
			match = bytes.Equal(buf, key)
		} else if _, err := d.stream.Seek(ctx, bytestream.Current(int64(n)*int64(width))); err != nil {
			return nil, false, err
		}

		size, err := serial.ReadUint16(ctx, d.stream)
		if err != nil {
			return nil, false, err
		}
		if size > TranslationSizeLimit {
			return nil, false, fmt.Errorf("%w: translation of %d bytes", ErrCorrupt, size)
		}
		if !match {
			if _, err := d.stream.Seek(ctx, bytestream.Current(int64(size))); err != nil {
				return nil, false, err
			}
			continue
		}

		data := make([]byte, size)
		if err := bytestream.ReadFull(ctx, d.stream, data); err != nil {
			return nil, false, err
		}
		list, err := serial.UnmarshalCommandList(ctx, d.codec, data)
		if err != nil {
			return nil, false, err
		}
		return list, true, nil
	}
	return nil, false, nil
}

// FallbackCommands implements dictionary.Dictionary.
func (d *Dictionary[O]) FallbackCommands(s stroke.Stroke) command.List[O] {
	return d.fallback(s)
}

// LongestOutlineLength implements dictionary.Dictionary.
func (d *Dictionary[O]) LongestOutlineLength() int { return d.longest }

// Stats returns a snapshot of the lookup counters.
func (d *Dictionary[O]) Stats() Stats {
	return Stats{
		Lookups: d.lookups.Load(),
		Hits:    d.hits.Load(),
		Misses:  d.misses.Load(),
		Corrupt: d.corrupt.Load(),
		Stream:  d.stream.Stats(),
	}
}

// ResetStats zeroes the stream call counters.
func (d *Dictionary[O]) ResetStats() {
	d.stream.Reset()
}

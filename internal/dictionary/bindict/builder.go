package bindict

import (
	"context"
	"fmt"
	"math"
	"sort"

	"stembed/internal/bytestream"
	"stembed/internal/command"
	"stembed/internal/serial"
	"stembed/internal/stroke"
)

type entry struct {
	key     string
	strokes int
	data    []byte
}

// Builder collects entries in memory and writes them out in the binary
// format.
type Builder[O any] struct {
	layout  *stroke.Layout
	codec   serial.Codec[O]
	buckets map[uint32][]entry
	count   int
	longest int
}

// NewBuilder returns an empty builder for layout.
func NewBuilder[O any](layout *stroke.Layout, codec serial.Codec[O]) *Builder[O] {
	return &Builder[O]{
		layout:  layout,
		codec:   codec,
		buckets: make(map[uint32][]entry),
	}
}

// Add stores list under outline, replacing any previous entry.
func (b *Builder[O]) Add(ctx context.Context, outline stroke.Outline, list command.List[O]) error {
	if len(outline) == 0 {
		return ErrEmptyOutline
	}
	if len(outline) > MaxOutlineStrokes {
		return fmt.Errorf("%w: %d strokes", ErrOutlineTooLong, len(outline))
	}
	for _, s := range outline {
		if s.Layout() != b.layout {
			return fmt.Errorf("%w: %s", stroke.ErrLayoutMismatch, outline)
		}
	}

	data, err := serial.MarshalCommandList(ctx, b.codec, list)
	if err != nil {
		return fmt.Errorf("bindict: encode %s: %w", outline, err)
	}
	if len(data) > TranslationSizeLimit {
		return fmt.Errorf("%w: %s encodes to %d bytes", ErrTranslationTooLarge, outline, len(data))
	}

	key := outline.Key()
	bucket := uint32(Hash([]byte(key)) % HashTableSize)
	chain := b.buckets[bucket]
	for i := range chain {
		if chain[i].key == key {
			chain[i].data = data
			return nil
		}
	}
	if len(chain) >= PrefixArraySizeLimit {
		return fmt.Errorf("%w: bucket %d", ErrBucketFull, bucket)
	}
	b.buckets[bucket] = append(chain, entry{key: key, strokes: len(outline), data: data})
	b.count++
	b.longest = max(b.longest, len(outline))
	return nil
}

// Len returns the number of entries.
func (b *Builder[O]) Len() int { return b.count }

// LongestOutline returns the stroke count of the longest outline added.
func (b *Builder[O]) LongestOutline() int { return b.longest }

// WriteTo writes the dictionary to w from its current position.
func (b *Builder[O]) WriteTo(ctx context.Context, w bytestream.Writer) error {
	order := make([]uint32, 0, len(b.buckets))
	for bucket := range b.buckets {
		order = append(order, bucket)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	offsets := make(map[uint32]uint32, len(order))
	var region uint64
	for _, bucket := range order {
		if region >= math.MaxUint32 {
			return ErrRegionTooLarge
		}
		offsets[bucket] = uint32(region)
		region += 2
		for _, e := range b.buckets[bucket] {
			region += 1 + uint64(len(e.key)) + 2 + uint64(len(e.data))
		}
	}

	if err := bytestream.WriteAll(ctx, w, []byte(Magic)); err != nil {
		return fmt.Errorf("bindict: write header: %w", err)
	}
	for bucket := uint32(0); bucket < HashTableSize; bucket++ {
		offset, ok := offsets[bucket]
		if !ok {
			offset = Empty
		}
		if err := serial.WriteUint32(ctx, w, offset); err != nil {
			return fmt.Errorf("bindict: write table: %w", err)
		}
	}
	for _, bucket := range order {
		if err := b.writeChain(ctx, w, b.buckets[bucket]); err != nil {
			return fmt.Errorf("bindict: write bucket %d: %w", bucket, err)
		}
	}
	return nil
}

func (b *Builder[O]) writeChain(ctx context.Context, w bytestream.Writer, chain []entry) error {
	if err := serial.WriteUint16(ctx, w, uint16(len(chain))); err != nil {
		return err
	}
	for _, e := range chain {
		if err := serial.WriteUint8(ctx, w, uint8(e.strokes)); err != nil {
			return err
		}
		if err := bytestream.WriteAll(ctx, w, []byte(e.key)); err != nil {
			return err
		}
		if err := serial.WriteUint16(ctx, w, uint16(len(e.data))); err != nil {
			return err
		}
		if err := bytestream.WriteAll(ctx, w, e.data); err != nil {
			return err
		}
	}
	return nil
}

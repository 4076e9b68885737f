package bindict

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"stembed/internal/bytestream"
	"stembed/internal/command"
	"stembed/internal/serial"
	"stembed/internal/stroke"
)

// WalkFunc receives each entry of a dictionary. Returning an error stops the
// walk.
type WalkFunc[O any] func(bucket uint32, outline stroke.Outline, list command.List[O]) error

// Summary describes the shape of a dictionary.
type Summary struct {
	Entries        int
	UsedBuckets    int
	LongestChain   int
	LongestOutline int
	RegionBytes    uint64
}

type chainRef struct {
	bucket uint32
	offset uint32
}

// Walk visits every entry in bucket order. Unlike Lookup, corruption is
// reported as an error. fn must not call back into d.
func (d *Dictionary[O]) Walk(ctx context.Context, fn WalkFunc[O]) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	chains, err := d.readTable(ctx)
	if err != nil {
		return err
	}
	for _, c := range chains {
		if err := d.walkChain(ctx, c, fn); err != nil {
			return err
		}
	}
	return nil
}

// Inspect walks the dictionary and summarises it.
func (d *Dictionary[O]) Inspect(ctx context.Context) (Summary, error) {
	sum := Summary{RegionBytes: d.regionLen}
	chain := map[uint32]int{}
	err := d.Walk(ctx, func(bucket uint32, outline stroke.Outline, _ command.List[O]) error {
		sum.Entries++
		chain[bucket]++
		sum.LongestChain = max(sum.LongestChain, chain[bucket])
		sum.LongestOutline = max(sum.LongestOutline, len(outline))
		return nil
	})
	sum.UsedBuckets = len(chain)
	return sum, err
}

func (d *Dictionary[O]) readTable(ctx context.Context) ([]chainRef, error) {
	if _, err := d.stream.Seek(ctx, bytestream.Start(uint64(TableOffset))); err != nil {
		return nil, fmt.Errorf("bindict: seek table: %w", err)
	}
	var chains []chainRef
	for bucket := uint32(0); bucket < HashTableSize; bucket++ {
		offset, err := serial.ReadUint32(ctx, d.stream)
		if err != nil {
			return nil, fmt.Errorf("bindict: read bucket %d: %w", bucket, err)
		}
		if offset == Empty {
			continue
		}
		if uint64(offset) >= d.regionLen {
			return nil, fmt.Errorf("%w: bucket %d offset %d beyond region", ErrCorrupt, bucket, offset)
		}
		chains = append(chains, chainRef{bucket: bucket, offset: offset})
	}
	return chains, nil
}

func (d *Dictionary[O]) walkChain(ctx context.Context, c chainRef, fn WalkFunc[O]) error {
	if _, err := d.stream.Seek(ctx, bytestream.Start(uint64(RegionOffset)+uint64(c.offset))); err != nil {
		return err
	}
	count, err := serial.ReadUint16(ctx, d.stream)
	if err != nil {
		return corruptOnEOF(c.bucket, err)
	}
	if count == 0 || count > PrefixArraySizeLimit {
		return fmt.Errorf("%w: bucket %d holds %d entries", ErrCorrupt, c.bucket, count)
	}
	for i := 0; i < int(count); i++ {
		n, err := serial.ReadUint8(ctx, d.stream)
		if err != nil {
			return corruptOnEOF(c.bucket, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: empty outline in bucket %d", ErrCorrupt, c.bucket)
		}
		outline, err := serial.ReadOutline(ctx, d.stream, d.layout, int(n))
		if err != nil {
			return corruptOnEOF(c.bucket, err)
		}
		size, err := serial.ReadUint16(ctx, d.stream)
		if err != nil {
			return corruptOnEOF(c.bucket, err)
		}
		if size > TranslationSizeLimit {
			return fmt.Errorf("%w: bucket %d translation of %d bytes", ErrCorrupt, c.bucket, size)
		}
		data := make([]byte, size)
		if err := bytestream.ReadFull(ctx, d.stream, data); err != nil {
			return corruptOnEOF(c.bucket, err)
		}
		list, err := serial.UnmarshalCommandList(ctx, d.codec, data)
		if err != nil {
			return fmt.Errorf("%w: bucket %d: %w", ErrCorrupt, c.bucket, err)
		}
		if err := fn(c.bucket, outline, list); err != nil {
			return err
		}
	}
	return nil
}

func corruptOnEOF(bucket uint32, err error) error {
	if errors.Is(err, bytestream.ErrEOF) {
		return fmt.Errorf("%w: bucket %d truncated", ErrCorrupt, bucket)
	}
	return err
}

// Fingerprint returns the BLAKE2b-256 digest of the whole stream. Two
// dictionaries with the same fingerprint answer every lookup identically.
func Fingerprint(ctx context.Context, stream bytestream.ReadSeeker) ([blake2b.Size256]byte, error) {
	var sum [blake2b.Size256]byte
	h, err := blake2b.New256(nil)
	if err != nil {
		return sum, err
	}
	if _, err := stream.Seek(ctx, bytestream.Start(0)); err != nil {
		return sum, fmt.Errorf("bindict: fingerprint: %w", err)
	}
	buf := make([]byte, 0, 4096)
	for {
		b, err := stream.Read(ctx)
		if errors.Is(err, bytestream.ErrEOF) {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("bindict: fingerprint: %w", err)
		}
		buf = append(buf, b)
		if len(buf) == cap(buf) {
			h.Write(buf)
			buf = buf[:0]
		}
	}
	h.Write(buf)
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

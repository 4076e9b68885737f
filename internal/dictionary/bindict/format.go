// Package bindict reads and writes the hash-indexed binary dictionary.
//
// The format is designed to be queried directly from block storage, without
// loading the table into memory. All integers are little-endian.
//
//	offset 0            magic "stembedDict1" (12 bytes)
//	offset 12           HashTableSize buckets of 4 bytes each: 0xFFFFFFFF
//	                    marks an empty bucket, any other value is an offset
//	                    into the entry region
//	offset RegionOffset entry region
//
// A bucket offset leads to a chain of entries whose outlines hash to that
// bucket:
//
//	u16 entry count (1..PrefixArraySizeLimit)
//	per entry:
//	  u8  stroke count
//	  ... stroke bytes (stroke count * Layout.ByteCount())
//	  u16 command data length (<= TranslationSizeLimit)
//	  ... command list, see serial.EncodeCommandList
//
// Buckets are chosen with 64-bit FNV-1 over the concatenated stroke bytes,
// seeded with HashKey, modulo HashTableSize.
package bindict

import (
	"errors"

	"stembed/internal/stroke"
)

const (
	// Magic identifies the format and its version.
	Magic = "stembedDict1"

	// HashTableSize is the number of buckets.
	HashTableSize = 125000

	// PrefixArraySizeLimit bounds the entries probed per bucket.
	PrefixArraySizeLimit = 256

	// TranslationSizeLimit bounds the encoded command list of one entry.
	TranslationSizeLimit = 1024

	// MaxOutlineStrokes is the longest outline an entry can hold.
	MaxOutlineStrokes = 0xFF

	// Empty marks an unused bucket.
	Empty uint32 = 0xFFFFFFFF

	// HashKey seeds the outline hash.
	HashKey uint64 = 0xcbf29ce484222325

	fnvPrime   uint64 = 0x100000001b3
	bucketSize        = 4

	// TableOffset is where the bucket table starts.
	TableOffset = len(Magic)

	// RegionOffset is where the entry region starts.
	RegionOffset = TableOffset + HashTableSize*bucketSize
)

// Errors
var (
	ErrBadMagic            = errors.New("bindict: not a stembed dictionary")
	ErrTruncated           = errors.New("bindict: dictionary truncated")
	ErrCorrupt             = errors.New("bindict: corrupt entry")
	ErrEmptyOutline        = errors.New("bindict: empty outline")
	ErrOutlineTooLong      = errors.New("bindict: outline too long")
	ErrTranslationTooLarge = errors.New("bindict: translation exceeds size limit")
	ErrBucketFull          = errors.New("bindict: bucket chain full")
	ErrRegionTooLarge      = errors.New("bindict: entry region exceeds 4 GiB")
)

// Hash is 64-bit FNV-1 over data, seeded with HashKey.
func Hash(data []byte) uint64 {
	h := HashKey
	for _, b := range data {
		h *= fnvPrime
		h ^= uint64(b)
	}
	return h
}

// BucketIndex returns the bucket an outline hashes to.
func BucketIndex(o stroke.Outline) uint32 {
	return uint32(Hash(o.Bytes()) % HashTableSize)
}

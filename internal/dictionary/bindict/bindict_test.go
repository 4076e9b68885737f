package bindict

import (
	"context"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stembed/internal/bytestream"
	"stembed/internal/command"
	"stembed/internal/dictionary"
	"stembed/internal/serial"
	"stembed/internal/stroke"
)

type stringCodec struct{}

func (stringCodec) Encode(ctx context.Context, w bytestream.Writer, s string) error {
	return serial.WriteString(ctx, w, s)
}

func (stringCodec) Decode(ctx context.Context, r bytestream.Reader) (string, error) {
	return serial.ReadString(ctx, r)
}

func literal(s string) string { return s }

func words(ws ...string) command.List[string] {
	list := command.NewList[string]()
	for _, w := range ws {
		list = append(list, command.Output(w))
	}
	return list
}

func outline(t *testing.T, text string) stroke.Outline {
	t.Helper()
	o, err := stroke.English().ParseOutline(text)
	require.NoError(t, err)
	return o
}

// strokeFromIndex maps i onto a distinct English stroke.
func strokeFromIndex(t *testing.T, i int) stroke.Stroke {
	t.Helper()
	v := uint32(i) << 1
	s, err := stroke.English().FromBytes([]byte{byte(v >> 16), byte(v >> 8), byte(v)})
	require.NoError(t, err)
	return s
}

func build(t *testing.T, entries map[string]command.List[string]) []byte {
	t.Helper()
	ctx := context.Background()
	b := NewBuilder[string](stroke.English(), stringCodec{})
	for text, list := range entries {
		require.NoError(t, b.Add(ctx, outline(t, text), list))
	}
	m := bytestream.NewMemory(nil)
	require.NoError(t, b.WriteTo(ctx, m))
	return m.Bytes()
}

func open(t *testing.T, data []byte) *Dictionary[string] {
	t.Helper()
	d, err := Open(context.Background(), bytestream.NewMemory(data), Config[string]{
		Layout:   stroke.English(),
		Codec:    stringCodec{},
		Fallback: dictionary.LiteralFallback(literal),
	})
	require.NoError(t, err)
	return d
}

func bucketOffset(data []byte, o stroke.Outline) uint32 {
	pos := TableOffset + int(BucketIndex(o))*bucketSize
	return binary.LittleEndian.Uint32(data[pos:])
}

func TestHashIsSeededFNV1(t *testing.T) {
	assert.Equal(t, HashKey, Hash(nil))
	h := HashKey
	h *= fnvPrime
	h ^= 'a'
	assert.Equal(t, h, Hash([]byte("a")))
	assert.NotEqual(t, Hash([]byte{1, 2}), Hash([]byte{2, 1}))
}

func TestBuildAndLookup(t *testing.T) {
	ctx := context.Background()
	data := build(t, map[string]command.List[string]{
		"KAT":         words("cat"),
		"KAT/-S":      words("cats"),
		"PWAOEUFRBGS": words("bifurcation", "!"),
	})
	assert.Equal(t, Magic, string(data[:len(Magic)]))

	d := open(t, data)
	assert.Equal(t, dictionary.DefaultLongestOutline, d.LongestOutlineLength())

	list, ok := d.Lookup(ctx, outline(t, "KAT"))
	require.True(t, ok)
	assert.Equal(t, []string{"cat"}, list.Outputs())

	list, ok = d.Lookup(ctx, outline(t, "KAT/-S"))
	require.True(t, ok)
	assert.Equal(t, []string{"cats"}, list.Outputs())

	list, ok = d.Lookup(ctx, outline(t, "PWAOEUFRBGS"))
	require.True(t, ok)
	assert.Equal(t, []string{"bifurcation", "!"}, list.Outputs())

	_, ok = d.Lookup(ctx, outline(t, "TKOG"))
	assert.False(t, ok)
	_, ok = d.Lookup(ctx, nil)
	assert.False(t, ok)

	stats := d.Stats()
	assert.Equal(t, uint64(5), stats.Lookups)
	assert.Equal(t, uint64(3), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
	assert.Zero(t, stats.Corrupt)
}

func TestEngineCommandsSurviveEncoding(t *testing.T) {
	undo := command.List[string]{command.Engine[string](command.UndoPrevious)}
	d := open(t, build(t, map[string]command.List[string]{"*": undo}))

	list, ok := d.Lookup(context.Background(), outline(t, "*"))
	require.True(t, ok)
	assert.True(t, list.OnlyEngine())
	assert.True(t, list.Contains(command.UndoPrevious))
}

func TestEmptyBucketReadsOnlyTheTable(t *testing.T) {
	ctx := context.Background()
	data := build(t, map[string]command.List[string]{"KAT": words("cat")})
	d := open(t, data)

	missing := outline(t, "TKOG")
	require.Equal(t, Empty, bucketOffset(data, missing))

	d.ResetStats()
	_, ok := d.Lookup(ctx, missing)
	assert.False(t, ok)
	assert.Equal(t, bytestream.CountingStats{Reads: 4, Seeks: 1}, d.Stats().Stream)
}

func TestCollidingOutlinesShareABucket(t *testing.T) {
	ctx := context.Background()
	seen := map[uint32]stroke.Stroke{}
	var first, second stroke.Stroke
	for i := 1; ; i++ {
		s := strokeFromIndex(t, i)
		bucket := BucketIndex(stroke.Outline{s})
		if prev, ok := seen[bucket]; ok {
			first, second = prev, s
			break
		}
		seen[bucket] = s
	}

	b := NewBuilder[string](stroke.English(), stringCodec{})
	require.NoError(t, b.Add(ctx, stroke.Outline{first}, words("first")))
	require.NoError(t, b.Add(ctx, stroke.Outline{second}, words("second")))
	require.NoError(t, b.Add(ctx, stroke.Outline{first, second}, words("both")))
	m := bytestream.NewMemory(nil)
	require.NoError(t, b.WriteTo(ctx, m))

	d := open(t, m.Bytes())
	list, ok := d.Lookup(ctx, stroke.Outline{first})
	require.True(t, ok)
	assert.Equal(t, []string{"first"}, list.Outputs())
	list, ok = d.Lookup(ctx, stroke.Outline{second})
	require.True(t, ok)
	assert.Equal(t, []string{"second"}, list.Outputs())
	list, ok = d.Lookup(ctx, stroke.Outline{first, second})
	require.True(t, ok)
	assert.Equal(t, []string{"both"}, list.Outputs())

	sum, err := d.Inspect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Entries)
	assert.GreaterOrEqual(t, sum.LongestChain, 2)
	assert.Equal(t, 2, sum.LongestOutline)
}

func TestBuilderReplacesExistingOutline(t *testing.T) {
	ctx := context.Background()
	b := NewBuilder[string](stroke.English(), stringCodec{})
	require.NoError(t, b.Add(ctx, outline(t, "KAT"), words("cat")))
	require.NoError(t, b.Add(ctx, outline(t, "KAT"), words("kat")))
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 1, b.LongestOutline())

	m := bytestream.NewMemory(nil)
	require.NoError(t, b.WriteTo(ctx, m))
	list, ok := open(t, m.Bytes()).Lookup(ctx, outline(t, "KAT"))
	require.True(t, ok)
	assert.Equal(t, []string{"kat"}, list.Outputs())
}

func TestBuilderRejectsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	b := NewBuilder[string](stroke.English(), stringCodec{})

	assert.ErrorIs(t, b.Add(ctx, nil, words("x")), ErrEmptyOutline)
	assert.ErrorIs(t, b.Add(ctx, outline(t, "KAT"), words(strings.Repeat("x", TranslationSizeLimit))), ErrTranslationTooLarge)

	other, err := stroke.NewLayout("tiny", []stroke.Key{{Letter: 'A', Bank: stroke.BankMiddle}})
	require.NoError(t, err)
	s, err := other.Parse("A")
	require.NoError(t, err)
	assert.ErrorIs(t, b.Add(ctx, stroke.Outline{s}, words("a")), stroke.ErrLayoutMismatch)

	assert.Zero(t, b.Len())
}

func TestOpenRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	cfg := Config[string]{Layout: stroke.English(), Codec: stringCodec{}, Fallback: dictionary.LiteralFallback(literal)}

	_, err := Open(ctx, bytestream.NewMemory([]byte("notadictionary")), cfg)
	assert.ErrorIs(t, err, ErrBadMagic)

	_, err = Open(ctx, bytestream.NewMemory([]byte("stem")), cfg)
	assert.ErrorIs(t, err, ErrBadMagic)

	_, err = Open(ctx, bytestream.NewMemory([]byte(Magic+"short")), cfg)
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = Open(ctx, bytestream.NewMemory(nil), Config[string]{Layout: stroke.English()})
	assert.Error(t, err)

	data := build(t, nil)
	cfg.LongestOutline = 4
	d, err := Open(ctx, bytestream.NewMemory(data), cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, d.LongestOutlineLength())
}

func TestCorruptionIsAMiss(t *testing.T) {
	ctx := context.Background()
	kat := outline(t, "KAT")
	clean := build(t, map[string]command.List[string]{"KAT": words("cat")})
	offset := bucketOffset(clean, kat)
	entry := RegionOffset + int(offset)
	// count(2) strokes(1) stroke bytes(3) length(2)
	lengthPos := entry + 2 + 1 + 3

	tests := []struct {
		name    string
		corrupt func([]byte) []byte
	}{
		{"offset beyond region", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[TableOffset+int(BucketIndex(kat))*bucketSize:], 1<<20)
			return b
		}},
		{"zero entries", func(b []byte) []byte {
			binary.LittleEndian.PutUint16(b[entry:], 0)
			return b
		}},
		{"too many entries", func(b []byte) []byte {
			binary.LittleEndian.PutUint16(b[entry:], PrefixArraySizeLimit+1)
			return b
		}},
		{"oversize translation", func(b []byte) []byte {
			binary.LittleEndian.PutUint16(b[lengthPos:], TranslationSizeLimit+1)
			return b
		}},
		{"truncated translation", func(b []byte) []byte {
			return b[:len(b)-2]
		}},
		{"bad command tag", func(b []byte) []byte {
			b[lengthPos+3] = 9
			return b
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := tc.corrupt(append([]byte(nil), clean...))
			d := open(t, data)
			_, ok := d.Lookup(ctx, kat)
			assert.False(t, ok)
			assert.Equal(t, uint64(1), d.Stats().Corrupt)

			err := d.Walk(ctx, func(uint32, stroke.Outline, command.List[string]) error { return nil })
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestFallbackCommands(t *testing.T) {
	d := open(t, build(t, nil))
	list := d.FallbackCommands(outline(t, "KAT")[0])
	assert.Equal(t, []string{"KAT"}, list.Outputs())
}

func TestWalkVisitsEveryEntry(t *testing.T) {
	ctx := context.Background()
	entries := map[string]command.List[string]{
		"KAT":     words("cat"),
		"TKOG":    words("dog"),
		"TKOG/-S": words("dogs"),
	}
	d := open(t, build(t, entries))

	got := map[string][]string{}
	require.NoError(t, d.Walk(ctx, func(bucket uint32, o stroke.Outline, list command.List[string]) error {
		assert.Equal(t, BucketIndex(o), bucket)
		got[o.String()] = list.Outputs()
		return nil
	}))
	assert.Equal(t, map[string][]string{
		"KAT":     {"cat"},
		"TKOG":    {"dog"},
		"TKOG/-S": {"dogs"},
	}, got)
}

func TestFingerprint(t *testing.T) {
	ctx := context.Background()
	data := build(t, map[string]command.List[string]{"KAT": words("cat")})

	a, err := Fingerprint(ctx, bytestream.NewMemory(data))
	require.NoError(t, err)
	b, err := Fingerprint(ctx, bytestream.NewMemory(data))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	changed := append([]byte(nil), data...)
	changed[len(changed)-1] ^= 0xFF
	c, err := Fingerprint(ctx, bytestream.NewMemory(changed))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestFileBackedDictionary(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/main.stembed"

	f, err := bytestream.CreateFile(path)
	require.NoError(t, err)
	b := NewBuilder[string](stroke.English(), stringCodec{})
	require.NoError(t, b.Add(ctx, outline(t, "KAT"), words("cat")))
	require.NoError(t, b.WriteTo(ctx, f))
	require.NoError(t, f.Close())

	r, err := bytestream.OpenFile(path)
	require.NoError(t, err)
	defer r.Close()
	d, err := Open(ctx, r, Config[string]{
		Layout:   stroke.English(),
		Codec:    stringCodec{},
		Fallback: dictionary.LiteralFallback(literal),
	})
	require.NoError(t, err)
	list, ok := d.Lookup(ctx, outline(t, "KAT"))
	require.True(t, ok)
	assert.Equal(t, []string{"cat"}, list.Outputs())
}

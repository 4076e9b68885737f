package serial

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stembed/internal/bytestream"
	"stembed/internal/command"
	"stembed/internal/stroke"
)

type stringCodec struct{}

func (stringCodec) Encode(ctx context.Context, w bytestream.Writer, s string) error {
	return WriteString(ctx, w, s)
}

func (stringCodec) Decode(ctx context.Context, r bytestream.Reader) (string, error) {
	return ReadString(ctx, r)
}

func TestStrokeRoundTrip(t *testing.T) {
	ctx := context.Background()
	layout := stroke.English()
	rng := rand.New(rand.NewSource(42))

	for n := 0; n < 500; n++ {
		var keys []int
		for i := 0; i < layout.KeyCount(); i++ {
			if rng.Intn(2) == 0 {
				keys = append(keys, i)
			}
		}
		s, err := layout.FromKeys(keys...)
		require.NoError(t, err)

		m := bytestream.NewMemory(nil)
		require.NoError(t, WriteStroke(ctx, m, s))
		assert.Equal(t, layout.ByteCount(), m.Len(), "no length prefix")

		_, err = m.Seek(ctx, bytestream.Start(0))
		require.NoError(t, err)
		got, err := ReadStroke(ctx, m, layout)
		require.NoError(t, err)
		require.True(t, s.Equal(got), "round trip of %s", s)
	}
}

func TestReadStrokeTruncated(t *testing.T) {
	ctx := context.Background()
	_, err := ReadStroke(ctx, bytestream.NewMemory([]byte{0x10}), stroke.English())
	assert.ErrorIs(t, err, bytestream.ErrEOF)
}

func TestReadStrokePaddingIsDecodeError(t *testing.T) {
	ctx := context.Background()
	_, err := ReadStroke(ctx, bytestream.NewMemory([]byte{0, 0, 1}), stroke.English())
	assert.ErrorIs(t, err, ErrDecode)
}

func TestOutlineRoundTrip(t *testing.T) {
	ctx := context.Background()
	layout := stroke.English()
	o, err := layout.ParseOutline("KAT/-S/*")
	require.NoError(t, err)

	m := bytestream.NewMemory(nil)
	require.NoError(t, WriteOutline(ctx, m, o))
	assert.Equal(t, o.Bytes(), m.Bytes())

	_, err = m.Seek(ctx, bytestream.Start(0))
	require.NoError(t, err)
	got, err := ReadOutline(ctx, m, layout, 3)
	require.NoError(t, err)
	assert.Equal(t, o.String(), got.String())
}

func TestIntegersAreLittleEndian(t *testing.T) {
	ctx := context.Background()
	m := bytestream.NewMemory(nil)
	require.NoError(t, WriteUint16(ctx, m, 0x0102))
	require.NoError(t, WriteUint32(ctx, m, 0x03040506))
	assert.Equal(t, []byte{0x02, 0x01, 0x06, 0x05, 0x04, 0x03}, m.Bytes())

	_, err := m.Seek(ctx, bytestream.Start(0))
	require.NoError(t, err)
	v16, err := ReadUint16(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), v16)
	v32, err := ReadUint32(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x03040506), v32)
}

func TestStrings(t *testing.T) {
	ctx := context.Background()
	m := bytestream.NewMemory(nil)
	require.NoError(t, WriteString(ctx, m, "héllo"))

	_, err := m.Seek(ctx, bytestream.Start(0))
	require.NoError(t, err)
	s, err := ReadString(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)

	_, err = ReadString(ctx, bytestream.NewMemory([]byte{2, 0, 0xff, 0xfe}))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestCommandListRoundTrip(t *testing.T) {
	ctx := context.Background()
	list := command.List[string]{
		command.Engine[string](command.UndoPrevious),
		command.Output("hello"),
		command.Output(""),
	}

	data, err := MarshalCommandList[string](ctx, stringCodec{}, list)
	require.NoError(t, err)

	got, err := UnmarshalCommandList[string](ctx, stringCodec{}, data)
	require.NoError(t, err)
	assert.Equal(t, list, got)
}

func TestDecodeCommandListErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		data []byte
	}{
		{"truncated", []byte{2, 1, 1, 0, 'a'}},
		{"unknown tag", []byte{1, 9}},
		{"unknown engine command", []byte{1, 0, 7}},
		{"trailing bytes", []byte{0, 1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := UnmarshalCommandList[string](ctx, stringCodec{}, tc.data)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

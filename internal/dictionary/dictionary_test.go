package dictionary

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stembed/internal/command"
	"stembed/internal/stroke"
)

func literal(text string) string { return text }

func outline(t *testing.T, text string) stroke.Outline {
	t.Helper()
	o, err := stroke.English().ParseOutline(text)
	require.NoError(t, err)
	return o
}

func TestMapLookup(t *testing.T) {
	ctx := context.Background()
	m := NewMap(LiteralFallback(literal))
	assert.Equal(t, 1, m.LongestOutlineLength())

	m.Add(outline(t, "KAT"), command.List[string]{command.Output("cat")})
	m.Add(outline(t, "KAT/-S"), command.List[string]{command.Output("cats")})

	list, ok := m.Lookup(ctx, outline(t, "KAT"))
	require.True(t, ok)
	assert.Equal(t, []string{"cat"}, list.Outputs())

	list, ok = m.Lookup(ctx, outline(t, "KAT/-S"))
	require.True(t, ok)
	assert.Equal(t, []string{"cats"}, list.Outputs())

	_, ok = m.Lookup(ctx, outline(t, "-S"))
	assert.False(t, ok)

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 2, m.LongestOutlineLength())
}

func TestLiteralFallback(t *testing.T) {
	m := NewMap(LiteralFallback(literal))
	s, err := stroke.English().Parse("TK-S")
	require.NoError(t, err)

	list := m.FallbackCommands(s)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"TK-S"}, list.Outputs())
}

type countingDict struct {
	Dictionary[string]
	lookups int
}

func (c *countingDict) Lookup(ctx context.Context, o stroke.Outline) (command.List[string], bool) {
	c.lookups++
	return c.Dictionary.Lookup(ctx, o)
}

func TestCachedRemembersHitsAndMisses(t *testing.T) {
	ctx := context.Background()
	m := NewMap(LiteralFallback(literal))
	m.Add(outline(t, "KAT"), command.List[string]{command.Output("cat")})
	inner := &countingDict{Dictionary: m}

	c, err := NewCached[string](inner, 16)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		list, ok := c.Lookup(ctx, outline(t, "KAT"))
		require.True(t, ok)
		assert.Equal(t, []string{"cat"}, list.Outputs())

		_, ok = c.Lookup(ctx, outline(t, "TKOG"))
		assert.False(t, ok)
	}

	assert.Equal(t, 2, inner.lookups)
	assert.Equal(t, CacheStats{Hits: 4, Misses: 2, Size: 2}, c.Stats())

	c.Purge()
	_, _ = c.Lookup(ctx, outline(t, "KAT"))
	assert.Equal(t, 3, inner.lookups)
}

func TestCachedSkipsCancelledLookups(t *testing.T) {
	m := NewMap(LiteralFallback(literal))
	inner := &countingDict{Dictionary: m}
	c, err := NewCached[string](inner, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _ = c.Lookup(ctx, outline(t, "KAT"))
	_, _ = c.Lookup(context.Background(), outline(t, "KAT"))
	assert.Equal(t, 2, inner.lookups)
}

func TestCachedDelegates(t *testing.T) {
	m := NewMap(LiteralFallback(literal))
	m.Add(outline(t, "A/B/KAT"), command.List[string]{command.Output("x")})
	c, err := NewCached[string](m, 4)
	require.NoError(t, err)

	assert.Equal(t, 3, c.LongestOutlineLength())
	s, err := stroke.English().Parse("KAT")
	require.NoError(t, err)
	assert.Equal(t, []string{"KAT"}, c.FallbackCommands(s).Outputs())
}

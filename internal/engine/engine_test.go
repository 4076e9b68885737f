package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stembed/internal/command"
	"stembed/internal/dictionary"
	"stembed/internal/stroke"
)

func literal(s string) string { return s }

func newDict(t *testing.T, entries map[string]command.List[string]) *dictionary.Map[string] {
	t.Helper()
	d := dictionary.NewMap(dictionary.LiteralFallback(literal))
	for text, list := range entries {
		o, err := stroke.English().ParseOutline(text)
		require.NoError(t, err)
		d.Add(o, list)
	}
	return d
}

func words(ws ...string) command.List[string] {
	list := command.NewList[string]()
	for _, w := range ws {
		list = append(list, command.Output(w))
	}
	return list
}

func undo(extra ...string) command.List[string] {
	return append(command.List[string]{command.Engine[string](command.UndoPrevious)}, words(extra...)...)
}

func push(t *testing.T, e *Engine[string], text string) command.Delta[string] {
	t.Helper()
	s, err := stroke.English().Parse(text)
	require.NoError(t, err)
	return e.Push(context.Background(), s)
}

func delta(undo int, push ...string) command.Delta[string] {
	if push == nil {
		push = []string{}
	}
	return command.Delta[string]{ToUndo: undo, ToPush: push}
}

func TestSingleStrokeMatch(t *testing.T) {
	e := New(newDict(t, map[string]command.List[string]{"KAT": words("cat")}))
	assert.Equal(t, delta(0, "cat"), push(t, e, "KAT"))
	assert.Equal(t, delta(0, "cat"), push(t, e, "KAT"))
	assert.Equal(t, 2, e.Depth())
}

func TestFallbackWritesStroke(t *testing.T) {
	e := New(newDict(t, nil))
	assert.Equal(t, delta(0, "STKPW"), push(t, e, "STKPW"))
	assert.Equal(t, delta(0, "-Z"), push(t, e, "-Z"))
}

func TestLongestMatchWins(t *testing.T) {
	e := New(newDict(t, map[string]command.List[string]{
		"KAT/TKOG/-S": words("catdogs"),
		"TKOG/-S":     words("dogs"),
		"KAT":         words("cat"),
	}))

	assert.Equal(t, delta(0, "cat"), push(t, e, "KAT"))
	assert.Equal(t, delta(0, "TKOG"), push(t, e, "TKOG"))
	assert.Equal(t, delta(2, "catdogs"), push(t, e, "-S"))
}

func TestShorterSuffixMatchesWithoutLongerOutline(t *testing.T) {
	e := New(newDict(t, map[string]command.List[string]{
		"TKOG/-S": words("dogs"),
		"TKOG":    words("dog"),
	}))

	assert.Equal(t, delta(0, "KAT"), push(t, e, "KAT"))
	assert.Equal(t, delta(0, "dog"), push(t, e, "TKOG"))
	assert.Equal(t, delta(1, "dogs"), push(t, e, "-S"))
}

func TestMatchMaySplitAnOutline(t *testing.T) {
	e := New(newDict(t, map[string]command.List[string]{
		"KAT/TKOG": words("cat", "dog"),
		"TKOG/-S":  words("dogs"),
		"*":        undo(),
	}))

	push(t, e, "KAT")
	assert.Equal(t, delta(1, "cat", "dog"), push(t, e, "TKOG"))
	assert.Equal(t, 2, e.RetainedOutputs())

	// The split outline is undone as a whole; KAT stays behind on its own.
	assert.Equal(t, delta(2, "dogs"), push(t, e, "-S"))
	assert.Equal(t, 3, e.Depth())
	assert.Equal(t, 1, e.RetainedOutputs())

	assert.Equal(t, delta(1), push(t, e, "*"))
	assert.Equal(t, 1, e.Depth())
	assert.Equal(t, delta(0), push(t, e, "*"))
	assert.Equal(t, 0, e.Depth())
}

func TestSplitRemainderCanMatchAgain(t *testing.T) {
	e := New(newDict(t, map[string]command.List[string]{
		"KAT/TKOG":    words("catdog"),
		"TKOG/-S":     words("dogs"),
		"KAT/TKOG/-S": words("catdogs"),
		"-S/-Z":       words("sz"),
	}))

	push(t, e, "KAT")
	push(t, e, "TKOG")
	assert.Equal(t, delta(1, "catdogs"), push(t, e, "-S"))
	assert.Equal(t, delta(1, "sz"), push(t, e, "-Z"))
	assert.Equal(t, 1, e.RetainedOutputs())
}

func TestRetainedOutputsFollowHistory(t *testing.T) {
	e := New(newDict(t, map[string]command.List[string]{
		"KAT": words("a", "b", "c", "d", "e"),
		"*":   undo(),
	}))

	for i := 0; i < HistorySize; i++ {
		push(t, e, "KAT")
	}
	assert.Equal(t, HistorySize*5, e.RetainedOutputs())

	push(t, e, "KAT")
	assert.Equal(t, HistorySize*5, e.RetainedOutputs())

	assert.Equal(t, delta(5), push(t, e, "*"))
	assert.Equal(t, (HistorySize-2)*5, e.RetainedOutputs())
}

func TestLongestOutlineBoundsTheWindow(t *testing.T) {
	d := newDict(t, map[string]command.List[string]{"KAT/TKOG/-S": words("catdogs")})
	e := New[string](limited{d, 2})

	push(t, e, "KAT")
	push(t, e, "TKOG")
	assert.Equal(t, delta(0, "-S"), push(t, e, "-S"))
}

type limited struct {
	dictionary.Dictionary[string]
	longest int
}

func (l limited) LongestOutlineLength() int { return l.longest }

func TestUndoPrevious(t *testing.T) {
	e := New(newDict(t, map[string]command.List[string]{
		"KAT":  words("cat"),
		"TKOG": words("dog", "!"),
		"*":    undo(),
	}))

	push(t, e, "KAT")
	push(t, e, "TKOG")
	assert.Equal(t, delta(2), push(t, e, "*"))
	assert.Equal(t, 1, e.Depth())
	assert.Equal(t, delta(1), push(t, e, "*"))
	assert.Equal(t, 0, e.Depth())
	assert.Equal(t, delta(0), push(t, e, "*"))
	assert.Equal(t, 0, e.Depth())

	assert.Equal(t, delta(0, "cat"), push(t, e, "KAT"))
}

func TestUndoRemovesWholeOutline(t *testing.T) {
	e := New(newDict(t, map[string]command.List[string]{
		"KAT/TKOG/-S": words("catdogs"),
		"*":           undo(),
	}))

	push(t, e, "KAT")
	push(t, e, "TKOG")
	push(t, e, "-S")
	assert.Equal(t, 3, e.Depth())
	assert.Equal(t, delta(1), push(t, e, "*"))
	assert.Equal(t, 0, e.Depth())
}

func TestUndoThenPush(t *testing.T) {
	e := New(newDict(t, map[string]command.List[string]{
		"KAT":  words("cat"),
		"STPH": undo("dog"),
		"*":    undo(),
	}))

	push(t, e, "KAT")
	assert.Equal(t, delta(1, "dog"), push(t, e, "STPH"))
	assert.Equal(t, 1, e.Depth())

	// The replacement is an outline of its own and can be undone.
	assert.Equal(t, delta(1), push(t, e, "*"))
	assert.Equal(t, 0, e.Depth())
}

func TestSetDictionaryForgetsHistory(t *testing.T) {
	e := New(newDict(t, map[string]command.List[string]{"KAT": words("cat")}))
	push(t, e, "KAT")

	next := newDict(t, map[string]command.List[string]{"KAT": words("kat")})
	e.SetDictionary(next)
	assert.Equal(t, 0, e.Depth())
	assert.Same(t, next, e.Dictionary())
	assert.Equal(t, delta(0, "kat"), push(t, e, "KAT"))
}

func TestUndoneStrokesLeaveMatching(t *testing.T) {
	e := New(newDict(t, map[string]command.List[string]{
		"KAT/TKOG": words("catdog"),
		"*":        undo(),
	}))

	push(t, e, "KAT")
	push(t, e, "-S")
	assert.Equal(t, delta(1), push(t, e, "*"))
	assert.Equal(t, delta(1, "catdog"), push(t, e, "TKOG"))
}

func TestHistoryEvictionClampsUndo(t *testing.T) {
	e := New(newDict(t, map[string]command.List[string]{"*": undo()}))

	for i := 0; i < HistorySize+50; i++ {
		assert.Equal(t, delta(0, "KAT"), push(t, e, "KAT"))
	}
	assert.Equal(t, HistorySize, e.Depth())

	// Each undo stroke takes a slot in the full history before it is
	// consumed, evicting one more translated stroke.
	total := 0
	for i := 0; i < HistorySize*2; i++ {
		d := push(t, e, "*")
		assert.Empty(t, d.ToPush)
		assert.GreaterOrEqual(t, d.ToUndo, 0)
		total += d.ToUndo
	}
	assert.Equal(t, HistorySize-1, total)
	assert.Equal(t, 0, e.Depth())
}

func TestResetForgetsHistory(t *testing.T) {
	e := New(newDict(t, map[string]command.List[string]{
		"KAT/TKOG": words("catdog"),
		"*":        undo(),
	}))
	push(t, e, "KAT")
	e.Reset()
	assert.Equal(t, delta(0, "TKOG"), push(t, e, "TKOG"))
	assert.Equal(t, delta(1), push(t, e, "*"))
	assert.Equal(t, delta(0), push(t, e, "*"))
}

func TestDeltasAssimilateAcrossStrokes(t *testing.T) {
	e := New(newDict(t, map[string]command.List[string]{
		"KAT/TKOG/-S": words("catdogs"),
	}))

	total := push(t, e, "KAT")
	total = total.Assimilate(push(t, e, "TKOG"))
	total = total.Assimilate(push(t, e, "-S"))
	assert.Equal(t, delta(0, "catdogs"), total)
}

func TestHistoryRing(t *testing.T) {
	var h History[string]
	s, err := stroke.English().Parse("KAT")
	require.NoError(t, err)

	_, ok := h.Pop()
	assert.False(t, ok)

	for i := 0; i < HistorySize; i++ {
		assert.False(t, h.Push(Entry[string]{Stroke: s, Info: &OutlineInfo[string]{Length: i}}))
	}
	assert.True(t, h.Push(Entry[string]{Stroke: s, Info: &OutlineInfo[string]{Length: HistorySize}}))
	assert.Equal(t, HistorySize, h.Len())
	assert.Equal(t, 1, h.At(0).Info.Length)
	assert.Equal(t, HistorySize, h.At(HistorySize-1).Info.Length)

	popped := h.PopN(3)
	require.Len(t, popped, 3)
	assert.Equal(t, HistorySize-2, popped[0].Info.Length)
	assert.Equal(t, HistorySize, popped[2].Info.Length)
	assert.Len(t, h.Outline(2), 2)

	assert.Len(t, h.PopN(HistorySize*2), HistorySize-3)
	assert.Zero(t, h.Len())
	assert.Panics(t, func() { h.At(0) })
}

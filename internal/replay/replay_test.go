package replay

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stembed/internal/command"
	"stembed/internal/dictionary"
	"stembed/internal/formatter"
	"stembed/internal/stroke"
	"stembed/internal/translator"
)

func TestLoadAndRun(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "undo.json"))
	require.NoError(t, err)
	assert.Equal(t, "undo walks back through outlines", s.Name)
	assert.Same(t, stroke.English(), s.Layout)
	assert.Len(t, s.Strokes, 6)

	res, err := Run(context.Background(), s, nil)
	require.NoError(t, err)
	assert.Equal(t, " cat", res.Output)
	assert.True(t, res.Passed(s))
	assert.Equal(t, uint64(6), res.Stats.Strokes)
}

func TestParseRejectsInvalidScripts(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"missing strokes", `{"layout": "english"}`},
		{"empty strokes", `{"strokes": []}`},
		{"unknown field", `{"strokes": ["KAT"], "speed": 3}`},
		{"unknown layout", `{"layout": "qwerty", "strokes": ["KAT"]}`},
		{"whitespace in stroke", `{"strokes": ["KAT DOG"]}`},
		{"bad stroke", `{"strokes": ["TAK"]}`},
		{"bad entry outline", `{"strokes": ["KAT"], "entries": {"TAK": "x"}}`},
		{"non-string entry", `{"strokes": ["KAT"], "entries": {"KAT": 1}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			assert.ErrorIs(t, err, ErrInvalidScript)
		})
	}
}

func TestRunWithCallerDictionary(t *testing.T) {
	s, err := Parse([]byte(`{"strokes": ["KAT", "TKOG"], "expect": " cat dog"}`))
	require.NoError(t, err)
	assert.Nil(t, s.Entries)

	_, err = Run(context.Background(), s, nil)
	assert.Error(t, err)

	base := dictionary.NewMap(translator.LiteralFallback())
	o, err := stroke.English().ParseOutline("KAT")
	require.NoError(t, err)
	base.Add(o, command.List[formatter.Command]{command.Output(formatter.Write("cat"))})

	res, err := Run(context.Background(), s, base)
	require.NoError(t, err)
	assert.Equal(t, " cat TKOG", res.Output)
	assert.False(t, res.Passed(s))
}

func TestEntriesOverrideCallerDictionary(t *testing.T) {
	s, err := Parse([]byte(`{"strokes": ["KAT", "TKOG"], "entries": {"TKOG": "dog"}}`))
	require.NoError(t, err)
	assert.Nil(t, s.Expect)

	base := dictionary.NewMap(translator.LiteralFallback())
	for text, word := range map[string]string{"KAT": "cat", "TKOG": "hound"} {
		o, err := stroke.English().ParseOutline(text)
		require.NoError(t, err)
		base.Add(o, command.List[formatter.Command]{command.Output(formatter.Write(word))})
	}

	res, err := Run(context.Background(), s, base)
	require.NoError(t, err)
	assert.Equal(t, " cat dog", res.Output)
	assert.True(t, res.Passed(s))
}

func TestRunStopsWhenCancelled(t *testing.T) {
	s, err := Parse([]byte(`{"strokes": ["KAT"], "entries": {"KAT": "cat"}}`))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, s, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

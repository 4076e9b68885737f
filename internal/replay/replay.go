// Package replay runs recorded stroke scripts through the translation
// pipeline. Scripts are JSON documents checked against an embedded schema:
//
//	{
//	  "name": "undo",
//	  "layout": "english",
//	  "entries": {"KAT": "cat"},
//	  "strokes": ["KAT", "*"],
//	  "expect": ""
//	}
//
// Each element of strokes may be an outline ("KAT/-S"). entries, when
// present, is a dictionary of plain words consulted before any dictionary
// supplied by the caller; the word UndoWord stands for undoing the previous
// outline.
package replay

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"stembed/internal/command"
	"stembed/internal/dictionary"
	"stembed/internal/formatter"
	"stembed/internal/output"
	"stembed/internal/stroke"
	"stembed/internal/translator"
)

//go:embed script.schema.json
var schemaData []byte

const schemaURL = "https://stembed.dev/schema/replay-v1.schema.json"

// UndoWord is the entries value that maps an outline to undo.
const UndoWord = "=undo"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// ErrInvalidScript reports a script that does not match the schema or does
// not parse.
var ErrInvalidScript = errors.New("replay: invalid script")

// Script is a parsed replay script.
type Script struct {
	Name    string
	Layout  *stroke.Layout
	Strokes []stroke.Stroke
	Entries map[string]string
	Expect  *string
}

type document struct {
	Name    string            `json:"name"`
	Layout  string            `json:"layout"`
	Strokes []string          `json:"strokes"`
	Entries map[string]string `json:"entries"`
	Expect  *string           `json:"expect"`
}

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaData)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Load reads and parses the script at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Parse(data)
}

// Parse validates data against the schema and resolves its strokes.
func Parse(data []byte) (*Script, error) {
	s, err := compiled()
	if err != nil {
		return nil, err
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	if err := s.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	layout, err := stroke.ByName(doc.Layout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}

	script := &Script{Name: doc.Name, Layout: layout, Entries: doc.Entries, Expect: doc.Expect}
	for i, text := range doc.Strokes {
		o, err := layout.ParseOutline(text)
		if err != nil {
			return nil, fmt.Errorf("%w: stroke %d: %w", ErrInvalidScript, i, err)
		}
		script.Strokes = append(script.Strokes, o...)
	}
	for text := range doc.Entries {
		if _, err := layout.ParseOutline(text); err != nil {
			return nil, fmt.Errorf("%w: entry %q: %w", ErrInvalidScript, text, err)
		}
	}
	return script, nil
}

// Result is the outcome of running a script.
type Result struct {
	Output string
	Stats  translator.Stats
}

// Passed reports whether the output matched the script's expectation.
// Scripts without one always pass.
func (r Result) Passed(s *Script) bool {
	return s.Expect == nil || *s.Expect == r.Output
}

// Run translates the script's strokes with a fresh pipeline. dict may be nil
// when the script carries its own entries.
func Run(ctx context.Context, s *Script, dict translator.Dictionary, opts ...translator.Option) (Result, error) {
	d, err := s.dictionary(dict)
	if err != nil {
		return Result{}, err
	}
	sink := output.NewMemory()
	tr := translator.New(d, sink, opts...)
	for _, st := range s.Strokes {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		tr.Translate(ctx, st)
	}
	return Result{Output: sink.Text(), Stats: tr.Stats()}, nil
}

func (s *Script) dictionary(fallback translator.Dictionary) (translator.Dictionary, error) {
	if len(s.Entries) == 0 {
		if fallback == nil {
			return nil, errors.New("replay: script has no entries and no dictionary was given")
		}
		return fallback, nil
	}
	m := dictionary.NewMap(translator.LiteralFallback())
	for text, word := range s.Entries {
		o, err := s.Layout.ParseOutline(text)
		if err != nil {
			return nil, err
		}
		if word == UndoWord {
			m.Add(o, command.List[formatter.Command]{command.Engine[formatter.Command](command.UndoPrevious)})
			continue
		}
		m.Add(o, command.List[formatter.Command]{command.Output(formatter.Write(word))})
	}
	if fallback == nil {
		return m, nil
	}
	return layered{m, fallback}, nil
}

// layered consults the script's entries, then the caller's dictionary.
type layered struct {
	top  *dictionary.Map[formatter.Command]
	base translator.Dictionary
}

func (l layered) Lookup(ctx context.Context, o stroke.Outline) (command.List[formatter.Command], bool) {
	if list, ok := l.top.Lookup(ctx, o); ok {
		return list, true
	}
	return l.base.Lookup(ctx, o)
}

func (l layered) FallbackCommands(s stroke.Stroke) command.List[formatter.Command] {
	return l.base.FallbackCommands(s)
}

func (l layered) LongestOutlineLength() int {
	return max(l.top.LongestOutlineLength(), l.base.LongestOutlineLength())
}

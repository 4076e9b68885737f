// Package stroke encodes steno chords as fixed-width bit-vectors.
//
// A Layout (the stroke context) describes the keys of a steno machine in
// steno order. Every Stroke parsed under a layout is exactly
// Layout.ByteCount() bytes wide: key i lives in byte i/8 at bit 7-i%8, and
// the padding bits of the last byte are always zero.
package stroke

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Bank is the part of the keyboard a key belongs to.
type Bank uint8

const (
	BankNumber Bank = iota
	BankLeft
	BankMiddle
	BankRight
)

// Key is a single steno key.
type Key struct {
	Letter rune
	Bank   Bank
}

// Errors
var (
	ErrInvalidLayout  = errors.New("stroke: invalid layout")
	ErrInvalidStroke  = errors.New("stroke: invalid stroke")
	ErrLayoutMismatch = errors.New("stroke: layout mismatch")
)

// Layout describes the key set of a steno machine. It is immutable and
// shared by every stroke parsed under it.
type Layout struct {
	name       string
	keys       []Key
	byteCount  int
	firstRight int
}

// NewLayout creates a layout from keys given in steno order.
func NewLayout(name string, keys []Key) (*Layout, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no keys", ErrInvalidLayout)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidLayout)
	}

	l := &Layout{
		name:       name,
		keys:       append([]Key(nil), keys...),
		byteCount:  (len(keys) + 7) / 8,
		firstRight: len(keys),
	}

	prev := BankNumber
	for i, k := range keys {
		if k.Bank < prev && k.Bank != BankNumber {
			return nil, fmt.Errorf("%w: key %q at %d breaks steno order", ErrInvalidLayout, k.Letter, i)
		}
		if k.Bank != BankNumber {
			prev = k.Bank
		}
		if k.Bank == BankRight && l.firstRight == len(keys) {
			l.firstRight = i
		}
	}

	return l, nil
}

var (
	englishOnce   sync.Once
	englishLayout *Layout
)

// English returns the standard 23-key English steno layout
// (#STKPWHRAO*EUFRPBLGTSDZ).
func English() *Layout {
	englishOnce.Do(func() {
		keys := []Key{{'#', BankNumber}}
		for _, r := range "STKPWHR" {
			keys = append(keys, Key{r, BankLeft})
		}
		for _, r := range "AO*EU" {
			keys = append(keys, Key{r, BankMiddle})
		}
		for _, r := range "FRPBLGTSDZ" {
			keys = append(keys, Key{r, BankRight})
		}
		l, err := NewLayout("english", keys)
		if err != nil {
			panic(err)
		}
		englishLayout = l
	})
	return englishLayout
}

// ByName resolves a built-in layout.
func ByName(name string) (*Layout, error) {
	switch strings.ToLower(name) {
	case "", "english":
		return English(), nil
	default:
		return nil, fmt.Errorf("%w: unknown layout %q", ErrInvalidLayout, name)
	}
}

// Name returns the layout name.
func (l *Layout) Name() string { return l.name }

// KeyCount returns the number of keys.
func (l *Layout) KeyCount() int { return len(l.keys) }

// ByteCount returns the encoded width of a stroke, ceil(KeyCount/8).
func (l *Layout) ByteCount() int { return l.byteCount }

// Key returns the key at index i.
func (l *Layout) Key(i int) Key { return l.keys[i] }

// Empty returns the stroke with no keys pressed.
func (l *Layout) Empty() Stroke {
	return Stroke{layout: l, bits: string(make([]byte, l.byteCount))}
}

// FromKeys builds a stroke from key indices.
func (l *Layout) FromKeys(indices ...int) (Stroke, error) {
	bits := make([]byte, l.byteCount)
	for _, i := range indices {
		if i < 0 || i >= len(l.keys) {
			return Stroke{}, fmt.Errorf("%w: key index %d out of range", ErrInvalidStroke, i)
		}
		bits[i/8] |= 0x80 >> (i % 8)
	}
	return Stroke{layout: l, bits: string(bits)}, nil
}

// FromBytes wraps a raw bit-vector. The slice must be exactly ByteCount
// bytes with the padding bits clear.
func (l *Layout) FromBytes(b []byte) (Stroke, error) {
	if len(b) != l.byteCount {
		return Stroke{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidStroke, len(b), l.byteCount)
	}
	if pad := l.byteCount*8 - len(l.keys); pad > 0 {
		if b[l.byteCount-1]&(1<<pad-1) != 0 {
			return Stroke{}, fmt.Errorf("%w: padding bits set", ErrInvalidStroke)
		}
	}
	return Stroke{layout: l, bits: string(b)}, nil
}

// Parse reads a stroke in steno notation, e.g. "KAT", "-S" or "STKPW".
// Letters must appear in steno order; a hyphen moves to the right bank.
func (l *Layout) Parse(text string) (Stroke, error) {
	if text == "" {
		return Stroke{}, fmt.Errorf("%w: empty", ErrInvalidStroke)
	}

	bits := make([]byte, l.byteCount)
	pos := 0
	for _, r := range text {
		if r == '-' {
			if l.firstRight < pos {
				return Stroke{}, fmt.Errorf("%w: misplaced hyphen in %q", ErrInvalidStroke, text)
			}
			pos = l.firstRight
			continue
		}
		i := l.find(r, pos)
		if i < 0 {
			return Stroke{}, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidStroke, r, text)
		}
		bits[i/8] |= 0x80 >> (i % 8)
		pos = i + 1
	}

	return Stroke{layout: l, bits: string(bits)}, nil
}

// ParseOutline reads slash-separated strokes, e.g. "KAT/-S".
func (l *Layout) ParseOutline(text string) (Outline, error) {
	parts := strings.Split(text, "/")
	outline := make(Outline, 0, len(parts))
	for _, p := range parts {
		s, err := l.Parse(p)
		if err != nil {
			return nil, err
		}
		outline = append(outline, s)
	}
	return outline, nil
}

func (l *Layout) find(r rune, from int) int {
	for i := from; i < len(l.keys); i++ {
		if l.keys[i].Letter == r {
			return i
		}
	}
	return -1
}

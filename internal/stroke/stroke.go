package stroke

import "strings"

// Stroke is one chord. The zero value has no layout and formats as "".
type Stroke struct {
	layout *Layout
	bits   string
}

// Layout returns the layout the stroke was parsed under.
func (s Stroke) Layout() *Layout { return s.layout }

// Bytes returns a copy of the raw bit-vector.
func (s Stroke) Bytes() []byte { return []byte(s.bits) }

// Key returns the bit-vector as a comparable value for map keys.
func (s Stroke) Key() string { return s.bits }

// Equal reports whether both strokes share a layout and bit-vector.
func (s Stroke) Equal(o Stroke) bool {
	return s.layout == o.layout && s.bits == o.bits
}

// Has reports whether key i is pressed.
func (s Stroke) Has(i int) bool {
	if i < 0 || i/8 >= len(s.bits) {
		return false
	}
	return s.bits[i/8]&(0x80>>(i%8)) != 0
}

// IsEmpty reports whether no key is pressed.
func (s Stroke) IsEmpty() bool {
	for i := 0; i < len(s.bits); i++ {
		if s.bits[i] != 0 {
			return false
		}
	}
	return true
}

// Format renders the stroke in steno notation. A hyphen separates the banks
// when right-bank keys are pressed without any middle key.
func (s Stroke) Format() string {
	if s.layout == nil {
		return ""
	}

	var middle, right bool
	for i, k := range s.layout.keys {
		if !s.Has(i) {
			continue
		}
		switch k.Bank {
		case BankMiddle:
			middle = true
		case BankRight:
			right = true
		}
	}

	var b strings.Builder
	hyphen := right && !middle
	for i, k := range s.layout.keys {
		if !s.Has(i) {
			continue
		}
		if hyphen && k.Bank == BankRight {
			b.WriteByte('-')
			hyphen = false
		}
		b.WriteRune(k.Letter)
	}
	return b.String()
}

// String implements fmt.Stringer.
func (s Stroke) String() string { return s.Format() }

// Outline is an ordered sequence of strokes matched as a unit.
type Outline []Stroke

// String joins the strokes with slashes.
func (o Outline) String() string {
	parts := make([]string, len(o))
	for i, s := range o {
		parts[i] = s.Format()
	}
	return strings.Join(parts, "/")
}

// Bytes concatenates the encoded strokes.
func (o Outline) Bytes() []byte {
	var buf []byte
	for _, s := range o {
		buf = append(buf, s.bits...)
	}
	return buf
}

// Key returns a comparable value identifying the outline.
func (o Outline) Key() string { return string(o.Bytes()) }

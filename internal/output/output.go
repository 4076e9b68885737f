// Package output applies formatter instructions to a destination: an
// in-memory buffer, a terminal, or the session bus.
package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"stembed/internal/formatter"
)

// Sink performs the side effects of an instruction set. Send never fails;
// sinks log what they could not deliver.
type Sink interface {
	Send(ctx context.Context, set formatter.InstructionSet)
}

// Memory aggregates output in memory.
type Memory struct {
	mu    sync.Mutex
	text  []rune
	sends int
}

// NewMemory returns an empty buffer.
func NewMemory() *Memory { return &Memory{} }

// Send implements Sink.
func (m *Memory) Send(_ context.Context, set formatter.InstructionSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends++
	for _, in := range set {
		switch in.Kind {
		case formatter.InstructionBackspace:
			m.text = m.text[:len(m.text)-min(in.Count, len(m.text))]
		case formatter.InstructionWrite:
			m.text = append(m.text, []rune(in.Text)...)
		}
	}
}

// Text returns the current contents.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.text)
}

// Sends returns how many instruction sets were received.
func (m *Memory) Sends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sends
}

// Reset clears the buffer.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = nil
	m.sends = 0
}

// Writer renders instructions on a terminal-like writer, erasing with
// "\b \b" per character.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	logger *slog.Logger
}

// NewWriter returns a sink writing to w. A nil logger uses slog.Default().
func NewWriter(w io.Writer, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{w: w, logger: logger.With("component", "output")}
}

// Send implements Sink.
func (s *Writer) Send(_ context.Context, set formatter.InstructionSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for _, in := range set {
		switch in.Kind {
		case formatter.InstructionBackspace:
			b.WriteString(strings.Repeat("\b \b", in.Count))
		case formatter.InstructionWrite:
			b.WriteString(in.Text)
		}
	}
	if b.Len() == 0 {
		return
	}
	if _, err := io.WriteString(s.w, b.String()); err != nil {
		s.logger.Warn("write failed", "error", err, "bytes", b.Len())
	}
}

// Tee sends every instruction set to each sink in order.
type Tee []Sink

// Send implements Sink.
func (t Tee) Send(ctx context.Context, set formatter.InstructionSet) {
	for _, s := range t {
		s.Send(ctx, set)
	}
}

// Describe renders an instruction set for logs, e.g. `Backspace(3) Write("cat")`.
func Describe(set formatter.InstructionSet) string {
	parts := make([]string, len(set))
	for i, in := range set {
		parts[i] = in.String()
	}
	return strings.Join(parts, " ")
}

// Validate reports instructions a sink cannot apply.
func Validate(set formatter.InstructionSet) error {
	for i, in := range set {
		switch in.Kind {
		case formatter.InstructionBackspace:
			if in.Count < 0 {
				return fmt.Errorf("output: instruction %d: negative backspace %d", i, in.Count)
			}
		case formatter.InstructionWrite:
			if !utf8.ValidString(in.Text) {
				return fmt.Errorf("output: instruction %d: invalid UTF-8", i)
			}
		default:
			return fmt.Errorf("output: instruction %d: unknown kind %d", i, in.Kind)
		}
	}
	return nil
}

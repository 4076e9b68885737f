package dictionary

import (
	"context"
	"sync"

	"stembed/internal/command"
	"stembed/internal/stroke"
)

// Map is an in-memory dictionary, used for tests and small user
// dictionaries.
type Map[O any] struct {
	mu       sync.RWMutex
	entries  map[string]command.List[O]
	longest  int
	fallback Fallback[O]
}

// NewMap creates an empty in-memory dictionary.
func NewMap[O any](fallback Fallback[O]) *Map[O] {
	return &Map[O]{
		entries:  make(map[string]command.List[O]),
		fallback: fallback,
	}
}

// Add stores commands for outline, replacing any previous entry.
func (m *Map[O]) Add(outline stroke.Outline, commands command.List[O]) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[outline.Key()] = commands
	if len(outline) > m.longest {
		m.longest = len(outline)
	}
}

// Len returns the number of entries.
func (m *Map[O]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Lookup implements Dictionary.
func (m *Map[O]) Lookup(_ context.Context, outline stroke.Outline) (command.List[O], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list, ok := m.entries[outline.Key()]
	return list, ok
}

// FallbackCommands implements Dictionary.
func (m *Map[O]) FallbackCommands(s stroke.Stroke) command.List[O] {
	return m.fallback(s)
}

// LongestOutlineLength implements Dictionary. It grows with the longest
// outline added.
func (m *Map[O]) LongestOutlineLength() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return max(m.longest, 1)
}

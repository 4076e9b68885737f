package bytestream

import (
	"context"
	"sync"
)

// Memory is an in-memory stream. Writes past the end grow the buffer,
// zero-filling any gap.
type Memory struct {
	mu  sync.Mutex
	buf []byte
	pos int64
}

// NewMemory creates a stream over a copy of data.
func NewMemory(data []byte) *Memory {
	return &Memory{buf: append([]byte(nil), data...)}
}

// Read implements Reader.
func (m *Memory) Read(ctx context.Context) (byte, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pos >= int64(len(m.buf)) {
		return 0, ErrEOF
	}
	b := m.buf[m.pos]
	m.pos++
	return b, nil
}

// Write implements Writer.
func (m *Memory) Write(ctx context.Context, b byte) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for int64(len(m.buf)) < m.pos {
		m.buf = append(m.buf, 0)
	}
	if m.pos == int64(len(m.buf)) {
		m.buf = append(m.buf, b)
	} else {
		m.buf[m.pos] = b
	}
	m.pos++
	return nil
}

// Seek implements Seeker.
func (m *Memory) Seek(ctx context.Context, to SeekFrom) (uint64, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, err := resolve(to, m.pos, int64(len(m.buf)))
	if err != nil {
		return 0, err
	}
	m.pos = pos
	return uint64(pos), nil
}

// Bytes returns a copy of the stream contents.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.buf...)
}

// Len returns the stream length.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buf)
}

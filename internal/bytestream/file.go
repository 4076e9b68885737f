package bytestream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// SectorSize is the read-ahead block size of File, matching the block size
// of SD cards and most flash translation layers.
const SectorSize = 512

// maxPendingWrite bounds the write-behind buffer.
const maxPendingWrite = 8 * SectorSize

// File is a stream over an operating system file. Reads are served from a
// sector-sized read-ahead buffer and writes are batched; both are internal to
// File. The file is advisory-locked while open: shared for readers,
// exclusive for writers.
type File struct {
	mu   sync.Mutex
	f    *os.File
	path string
	pos  int64

	rbuf   []byte
	rstart int64
	rlen   int

	wbuf   []byte
	wstart int64
}

// OpenFile opens an existing file read-only under a shared lock.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := lockShared(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	return &File{f: f, path: path, rbuf: make([]byte, SectorSize)}, nil
}

// CreateFile creates or truncates a file for writing under an exclusive lock.
func CreateFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if err := lockExclusive(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	return &File{f: f, path: path, rbuf: make([]byte, SectorSize)}, nil
}

// Path returns the file path.
func (s *File) Path() string { return s.path }

// Read implements Reader.
func (s *File) Read(ctx context.Context) (byte, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flushLocked(); err != nil {
		return 0, err
	}

	if s.pos < s.rstart || s.pos >= s.rstart+int64(s.rlen) {
		n, err := s.f.ReadAt(s.rbuf, s.pos)
		if n == 0 {
			s.rlen = 0
			if err == nil || errors.Is(err, io.EOF) {
				return 0, ErrEOF
			}
			return 0, fmt.Errorf("%w: %w", ErrUnknown, err)
		}
		s.rstart = s.pos
		s.rlen = n
	}

	b := s.rbuf[s.pos-s.rstart]
	s.pos++
	return b, nil
}

// Write implements Writer.
func (s *File) Write(ctx context.Context, b byte) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.wbuf) > 0 && s.pos != s.wstart+int64(len(s.wbuf)) {
		if err := s.flushLocked(); err != nil {
			return err
		}
	}
	if len(s.wbuf) == 0 {
		s.wstart = s.pos
	}
	s.wbuf = append(s.wbuf, b)
	s.pos++

	// the read-ahead buffer may now be stale
	if s.pos > s.rstart && s.pos-1 < s.rstart+int64(s.rlen) {
		s.rlen = 0
	}

	if len(s.wbuf) >= maxPendingWrite {
		return s.flushLocked()
	}
	return nil
}

// Seek implements Seeker.
func (s *File) Seek(ctx context.Context, to SeekFrom) (uint64, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var size int64
	if to.Whence == FromEnd {
		if err := s.flushLocked(); err != nil {
			return 0, err
		}
		info, err := s.f.Stat()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrUnknown, err)
		}
		size = info.Size()
	}

	pos, err := resolve(to, s.pos, size)
	if err != nil {
		return 0, err
	}
	s.pos = pos
	return uint64(pos), nil
}

// Flush writes any batched bytes to the file.
func (s *File) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *File) flushLocked() error {
	if len(s.wbuf) == 0 {
		return nil
	}
	_, err := s.f.WriteAt(s.wbuf, s.wstart)
	s.wbuf = s.wbuf[:0]
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnknown, err)
	}
	return nil
}

// Close flushes pending writes, releases the lock and closes the file.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}
	flushErr := s.flushLocked()
	_ = unlock(s.f)
	closeErr := s.f.Close()
	s.f = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

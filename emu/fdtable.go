package emu

import (
	"io"
	"os"
	"sync"
)

// Standard guest file descriptors.
const (
	FDStdin  uint32 = 0
	FDStdout uint32 = 1
	FDStderr uint32 = 2
)

// FileDescriptor is a guest file descriptor backed by a host stream.
type FileDescriptor struct {
	Name   string    // "stdin", "stdout" or "stderr"
	Reader io.Reader // nil if the descriptor is not readable
	Writer io.Writer // nil if the descriptor is not writable
	IsOpen bool
}

// FDTable maps guest file descriptors to host streams.
type FDTable struct {
	fds map[uint32]*FileDescriptor
	mu  sync.Mutex
}

// NewFDTable creates a table with the three standard streams open. A nil
// stdin reads as end of file.
func NewFDTable(stdin io.Reader, stdout, stderr io.Writer) *FDTable {
	return &FDTable{
		fds: map[uint32]*FileDescriptor{
			FDStdin:  {Name: "stdin", Reader: stdin, IsOpen: true},
			FDStdout: {Name: "stdout", Writer: stdout, IsOpen: true},
			FDStderr: {Name: "stderr", Writer: stderr, IsOpen: true},
		},
	}
}

// SetReader replaces the reader behind fd.
func (t *FDTable) SetReader(fd uint32, r io.Reader) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.fds[fd]; ok {
		entry.Reader = r
	}
}

// Get returns the descriptor if it exists and is open.
func (t *FDTable) Get(fd uint32) (*FileDescriptor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.fds[fd]
	if !exists || !entry.IsOpen {
		return nil, false
	}

	return entry, true
}

// IsOpen checks if a file descriptor is open.
func (t *FDTable) IsOpen(fd uint32) bool {
	_, ok := t.Get(fd)
	return ok
}

// Close marks fd closed. Host streams are never closed.
func (t *FDTable) Close(fd uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.fds[fd]
	if !exists || !entry.IsOpen {
		return os.ErrInvalid
	}

	entry.IsOpen = false
	return nil
}

// Read reads from fd. A readable descriptor without a reader is at EOF.
func (t *FDTable) Read(fd uint32, buf []byte) (int, error) {
	entry, ok := t.Get(fd)
	if !ok || entry.Writer != nil {
		return 0, os.ErrInvalid
	}

	if entry.Reader == nil {
		return 0, io.EOF
	}

	return entry.Reader.Read(buf)
}

// Write writes buf to fd.
func (t *FDTable) Write(fd uint32, buf []byte) (int, error) {
	entry, ok := t.Get(fd)
	if !ok || entry.Writer == nil {
		return 0, os.ErrInvalid
	}

	return entry.Writer.Write(buf)
}

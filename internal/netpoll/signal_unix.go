//go:build unix

// internal/netpoll/signal_unix.go
// Author: momentics <momentics@gmail.com>
//
// Level-triggered self-pipe notifier.

package netpoll

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Signal is readable through Fd exactly while it is set.
type Signal struct {
	mu     sync.Mutex
	r, w   int
	set    bool
	closed bool
}

// NewSignal allocates the underlying non-blocking pipe.
func NewSignal() (*Signal, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, fmt.Errorf("signal pipe: %w", err)
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, fmt.Errorf("signal nonblock: %w", err)
		}
	}
	return &Signal{r: p[0], w: p[1]}, nil
}

// Fd returns the readable end.
func (s *Signal) Fd() uintptr { return uintptr(s.r) }

// Set makes Fd readable. Setting an already set signal is a no-op.
func (s *Signal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set || s.closed {
		return
	}
	if _, err := unix.Write(s.w, []byte{1}); err == nil {
		s.set = true
	}
}

// Clear drains the pipe so Fd stops being readable.
func (s *Signal) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set || s.closed {
		return
	}
	var buf [8]byte
	for {
		if _, err := unix.Read(s.r, buf[:]); err != nil {
			break
		}
	}
	s.set = false
}

// IsSet reports the current level.
func (s *Signal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Close releases both pipe ends. It is safe to call more than once.
func (s *Signal) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := unix.Close(s.r)
	if werr := unix.Close(s.w); err == nil {
		err = werr
	}
	return err
}

// Closed reports whether Close has been called.
func (s *Signal) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

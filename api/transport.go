// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Boundary with the messaging transport. Implementations own connection
// establishment, the wire protocol and routing; this layer only drives them.
// Every method reports failure through a non-nil error that carries an errno
// (syscall.Errno or a type exposing Errno()).

package api

import "time"

// Frame is one native frame. The holder must call Release exactly once.
type Frame interface {
	Bytes() []byte
	Release()
}

// NativeContext is the transport's top-level resource manager.
type NativeContext interface {
	// Handle returns an opaque, non-zero pointer-like identity.
	Handle() uintptr
	// Term releases the context. Sockets must be closed first.
	Term() error
}

// NativeSocket is an exclusively owned transport socket.
type NativeSocket interface {
	Bind(addr string) error
	Connect(addr string) error
	Close() error
	SetOption(opt Option, value any) error

	// SendFrame queues one frame. The transport copies the bytes it needs
	// before returning; the caller keeps ownership of f.
	SendFrame(f Frame, flags Flags) error
	// RecvFrame returns the next frame of the current message.
	RecvFrame(flags Flags) (Frame, error)
	// MorePending reports whether the last received frame is followed by more.
	MorePending() (bool, error)

	// Events reports current readiness without consuming anything.
	Events() (Event, error)
	// Fd returns a descriptor that becomes readable whenever Events may
	// have gained PollIn.
	Fd() (uintptr, error)
}

// PollItem is one entry handed to a native multiplexed wait. Exactly one of
// Socket or Fd is meaningful: Fd is used when Socket is nil.
type PollItem struct {
	Socket  NativeSocket
	Fd      uintptr
	Events  Event
	Revents Event
}

// Multiplexer performs one multiplexed wait across poll items, filling
// Revents and returning the number of ready items. Negative timeouts block.
type Multiplexer interface {
	Poll(items []PollItem, timeout time.Duration) (int, error)
}

// Transport opens native contexts and sockets.
type Transport interface {
	Multiplexer

	Name() string
	NewContext() (NativeContext, error)
	Open(ctx NativeContext, kind SocketType) (NativeSocket, error)
}

// ContextRef is anything that can hand out a native context together with
// the transport that created it.
type ContextRef interface {
	Native() NativeContext
	Transport() Transport
}

// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"
	"syscall"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/pool"
)

// Call is one recorded native call.
type Call struct {
	Op    string
	Addr  string
	Data  []byte
	Flags api.Flags
	Opt   api.Option
	Value any
}

type queued struct {
	data []byte
	more bool
}

// Socket is a scripted api.NativeSocket.
type Socket struct {
	mu         sync.Mutex
	kind       api.SocketType
	ctx        api.NativeContext
	closed     bool
	calls      []Call
	errs       map[string]error
	failSendAt int
	sends      int
	inbox      []queued
	lastMore   bool
	writable   bool
}

var _ api.NativeSocket = (*Socket)(nil)

// Kind returns the socket type the socket was opened with.
func (s *Socket) Kind() api.SocketType { return s.kind }

// Context returns the native context the socket was opened on.
func (s *Socket) Context() api.NativeContext { return s.ctx }

// SetError makes every later call of op fail with err; nil clears it.
// Ops: bind, connect, close, setopt, send, recv.
func (s *Socket) SetError(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.errs, op)
		return
	}
	s.errs[op] = err
}

// FailSendAt makes the n-th send (zero based) fail with EAGAIN.
func (s *Socket) FailSendAt(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSendAt = n
}

// SetWritable controls whether Events reports PollOut.
func (s *Socket) SetWritable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writable = v
}

// Enqueue makes parts available as one multi-frame message.
func (s *Socket) Enqueue(parts ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range parts {
		s.inbox = append(s.inbox, queued{data: []byte(p), more: i < len(parts)-1})
	}
}

// Calls returns the recorded calls.
func (s *Socket) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Sent returns the recorded send calls.
func (s *Socket) Sent() []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Op == "send" {
			out = append(out, c)
		}
	}
	return out
}

// IsClosed reports whether Close succeeded.
func (s *Socket) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Socket) check(op string) error {
	if err := s.errs[op]; err != nil {
		return err
	}
	if s.closed {
		return errClosed
	}
	return nil
}

// Bind implements api.NativeSocket.
func (s *Socket) Bind(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "bind", Addr: addr})
	return s.check("bind")
}

// Connect implements api.NativeSocket.
func (s *Socket) Connect(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "connect", Addr: addr})
	return s.check("connect")
}

// Close implements api.NativeSocket. A second close fails with ENOTSOCK.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "close"})
	if err := s.check("close"); err != nil {
		return err
	}
	s.closed = true
	return nil
}

// SetOption implements api.NativeSocket.
func (s *Socket) SetOption(opt api.Option, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "setopt", Opt: opt, Value: value})
	return s.check("setopt")
}

// SendFrame implements api.NativeSocket.
func (s *Socket) SendFrame(f api.Frame, flags api.Flags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := append([]byte(nil), f.Bytes()...)
	s.calls = append(s.calls, Call{Op: "send", Data: data, Flags: flags})
	n := s.sends
	s.sends++
	if err := s.check("send"); err != nil {
		return err
	}
	if n == s.failSendAt {
		return syscall.EAGAIN
	}
	return nil
}

// RecvFrame implements api.NativeSocket.
func (s *Socket) RecvFrame(flags api.Flags) (api.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "recv", Flags: flags})
	if err := s.check("recv"); err != nil {
		return nil, err
	}
	if len(s.inbox) == 0 {
		return nil, syscall.EAGAIN
	}
	q := s.inbox[0]
	s.inbox = s.inbox[1:]
	s.lastMore = q.more
	return pool.CopyFrame(q.data), nil
}

// MorePending implements api.NativeSocket.
func (s *Socket) MorePending() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, errClosed
	}
	return s.lastMore, nil
}

// Events implements api.NativeSocket.
func (s *Socket) Events() (api.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errClosed
	}
	var ev api.Event
	if len(s.inbox) > 0 {
		ev |= api.PollIn
	}
	if s.writable {
		ev |= api.PollOut
	}
	return ev, nil
}

// Fd implements api.NativeSocket. Fake sockets have no descriptor.
func (s *Socket) Fd() (uintptr, error) {
	return 0, syscall.ENOTSUP
}

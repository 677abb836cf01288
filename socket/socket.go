// File: socket/socket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socket lifecycle: Open, Bind, Connect, SetOption and close.

package socket

import (
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/control"
	"github.com/momentics/hioload-mq/poller"
)

// Socket is an endpoint owning one native socket. Its lifecycle is
// Open -> Closed; every operation on a closed socket fails.
type Socket struct {
	ref         api.ContextRef
	tr          api.Transport
	native      api.NativeSocket
	kind        api.SocketType
	logger      *zap.Logger
	metrics     *control.Metrics
	recvTimeout time.Duration
	closed      atomic.Bool

	pollOnce sync.Once
	poller   *poller.Poller
}

var _ api.Pollable = (*Socket)(nil)

// Open allocates a native socket of the given kind. Without WithContext the
// process-wide default context is used.
func Open(kind api.SocketType, opts ...Option) (*Socket, error) {
	s := &Socket{kind: kind}
	for _, opt := range opts {
		opt(s)
	}
	if s.ref == nil {
		c, err := Default()
		if err != nil {
			return nil, err
		}
		s.ref = c
	}

	native := s.ref.Native()
	if native == nil || native.Handle() == 0 {
		return nil, fmt.Errorf("%w: context exposes no native handle", api.ErrInvalidArgument)
	}
	s.tr = s.ref.Transport()
	if s.tr == nil {
		return nil, fmt.Errorf("%w: context has no transport", api.ErrInvalidArgument)
	}

	s.logger = zap.NewNop()
	fallback := control.DefaultRecvTimeout
	if c, ok := s.ref.(*Context); ok {
		s.logger = c.logger
		s.metrics = c.metrics
		fallback = c.recvTimeout
	}
	if s.recvTimeout == 0 {
		s.recvTimeout = fallback
	}

	ns, err := s.tr.Open(native, kind)
	if err != nil {
		return nil, api.NewTransportError("open", err)
	}
	s.native = ns
	s.logger = s.logger.With(zap.Stringer("kind", kind), zap.String("transport", s.tr.Name()))
	s.logger.Debug("socket opened")
	return s, nil
}

// Kind returns the messaging pattern of the socket.
func (s *Socket) Kind() api.SocketType { return s.kind }

// Context returns the context the socket was opened on.
func (s *Socket) Context() api.ContextRef { return s.ref }

// Native exposes the underlying transport socket.
func (s *Socket) Native() api.NativeSocket { return s.native }

// Bind listens on addr.
func (s *Socket) Bind(addr string) error {
	if s.closed.Load() {
		return closedError("bind")
	}
	if err := s.native.Bind(addr); err != nil {
		return api.NewTransportError("bind", err)
	}
	s.logger.Debug("socket bound", zap.String("addr", addr))
	return nil
}

// Connect dials addr.
func (s *Socket) Connect(addr string) error {
	if s.closed.Load() {
		return closedError("connect")
	}
	if err := s.native.Connect(addr); err != nil {
		return api.NewTransportError("connect", err)
	}
	s.logger.Debug("socket connected", zap.String("addr", addr))
	return nil
}

// SetOption sets a native option and reports whether it succeeded.
func (s *Socket) SetOption(opt api.Option, value any) bool {
	if s.closed.Load() {
		return false
	}
	if err := s.native.SetOption(opt, value); err != nil {
		s.logger.Debug("set option failed", zap.Stringer("option", opt), zap.Error(err))
		return false
	}
	return true
}

// Close closes the native socket. Closing an already closed socket fails
// with a TransportError carrying ENOTSOCK. Of concurrent callers exactly one
// reaches the native close; if it fails the socket stays open.
func (s *Socket) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return closedError("close")
	}
	if err := s.native.Close(); err != nil {
		s.closed.Store(false)
		return api.NewTransportError("close", err)
	}
	s.logger.Debug("socket closed")
	return nil
}

// TryClose closes the socket and reports success. An already closed socket
// reports true.
func (s *Socket) TryClose() bool {
	if s.closed.Load() {
		return true
	}
	return s.Close() == nil
}

// Closed implements api.Pollable.
func (s *Socket) Closed() bool { return s.closed.Load() }

// PollItem implements api.Pollable.
func (s *Socket) PollItem() api.PollItem {
	return api.PollItem{Socket: s.native}
}

func closedError(op string) error {
	return &api.TransportError{
		Op:      op,
		Code:    api.FailureCode,
		Errno:   syscall.ENOTSOCK,
		Message: api.ErrSocketClosed.Error(),
	}
}

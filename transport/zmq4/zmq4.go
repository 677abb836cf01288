//go:build cgo && unix

// Package zmq4
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// libzmq-backed transport built on github.com/pebbe/zmq4. Readiness is
// multiplexed through ZMQ_FD and ZMQ_EVENTS by internal/netpoll, so native
// sockets and plain descriptors can share one wait.

package zmq4

import (
	"errors"
	"syscall"
	"time"
	"unsafe"

	zmq "github.com/pebbe/zmq4"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/internal/netpoll"
	"github.com/momentics/hioload-mq/pool"
)

// Transport is the libzmq api.Transport.
type Transport struct{}

var _ api.Transport = (*Transport)(nil)

// New returns the libzmq transport.
func New() *Transport { return &Transport{} }

// Name implements api.Transport.
func (*Transport) Name() string { return "zmq" }

// Version reports the linked libzmq version.
func Version() (major, minor, patch int) { return zmq.Version() }

// NewContext implements api.Transport.
func (*Transport) NewContext() (api.NativeContext, error) {
	c, err := zmq.NewContext()
	if err != nil {
		return nil, errnoOf(err)
	}
	return &Context{ctx: c}, nil
}

// Open implements api.Transport.
func (*Transport) Open(nc api.NativeContext, kind api.SocketType) (api.NativeSocket, error) {
	c, ok := nc.(*Context)
	if !ok || c == nil {
		return nil, syscall.EINVAL
	}
	s, err := c.ctx.NewSocket(zmq.Type(kind))
	if err != nil {
		return nil, errnoOf(err)
	}
	return &Socket{soc: s}, nil
}

// Poll implements api.Multiplexer.
func (*Transport) Poll(items []api.PollItem, timeout time.Duration) (int, error) {
	return netpoll.Wait(items, timeout)
}

// Context wraps a libzmq context.
type Context struct {
	ctx *zmq.Context
}

// Handle implements api.NativeContext.
func (c *Context) Handle() uintptr { return uintptr(unsafe.Pointer(c.ctx)) }

// Term implements api.NativeContext.
func (c *Context) Term() error { return errnoOf(c.ctx.Term()) }

// Socket wraps a libzmq socket.
type Socket struct {
	soc *zmq.Socket
}

var _ api.NativeSocket = (*Socket)(nil)

func (s *Socket) Bind(addr string) error    { return errnoOf(s.soc.Bind(addr)) }
func (s *Socket) Connect(addr string) error { return errnoOf(s.soc.Connect(addr)) }
func (s *Socket) Close() error              { return errnoOf(s.soc.Close()) }

func (s *Socket) SetOption(opt api.Option, value any) error {
	var err error
	switch opt {
	case api.Subscribe, api.Unsubscribe, api.Identity:
		v, ok := asString(value)
		if !ok {
			return syscall.EINVAL
		}
		switch opt {
		case api.Subscribe:
			err = s.soc.SetSubscribe(v)
		case api.Unsubscribe:
			err = s.soc.SetUnsubscribe(v)
		default:
			err = s.soc.SetIdentity(v)
		}
	case api.Linger:
		switch v := value.(type) {
		case time.Duration:
			err = s.soc.SetLinger(v)
		case int:
			err = s.soc.SetLinger(time.Duration(v) * time.Millisecond)
		default:
			return syscall.EINVAL
		}
	case api.SndHWM, api.RcvHWM:
		v, ok := value.(int)
		if !ok {
			return syscall.EINVAL
		}
		if opt == api.SndHWM {
			err = s.soc.SetSndhwm(v)
		} else {
			err = s.soc.SetRcvhwm(v)
		}
	default:
		return syscall.EINVAL
	}
	return errnoOf(err)
}

func (s *Socket) SendFrame(f api.Frame, flags api.Flags) error {
	if f == nil {
		return syscall.EFAULT
	}
	_, err := s.soc.SendBytes(f.Bytes(), zmq.Flag(flags))
	return errnoOf(err)
}

func (s *Socket) RecvFrame(flags api.Flags) (api.Frame, error) {
	b, err := s.soc.RecvBytes(zmq.Flag(flags))
	if err != nil {
		return nil, errnoOf(err)
	}
	return pool.CopyFrame(b), nil
}

func (s *Socket) MorePending() (bool, error) {
	more, err := s.soc.GetRcvmore()
	return more, errnoOf(err)
}

func (s *Socket) Events() (api.Event, error) {
	st, err := s.soc.GetEvents()
	if err != nil {
		return 0, errnoOf(err)
	}
	var ev api.Event
	if st&zmq.POLLIN != 0 {
		ev |= api.PollIn
	}
	if st&zmq.POLLOUT != 0 {
		ev |= api.PollOut
	}
	return ev, nil
}

func (s *Socket) Fd() (uintptr, error) {
	fd, err := s.soc.GetFd()
	if err != nil {
		return 0, errnoOf(err)
	}
	return uintptr(fd), nil
}

// errnoOf normalizes binding errors to syscall.Errno so callers can match
// them with errors.Is.
func errnoOf(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, zmq.ErrorSocketClosed):
		return syscall.ENOTSOCK
	case errors.Is(err, zmq.ErrorContextClosed):
		return syscall.Errno(zmq.ETERM)
	}
	if errno := zmq.AsErrno(err); errno != 0 {
		return syscall.Errno(errno)
	}
	return err
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

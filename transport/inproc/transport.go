//go:build unix

// Package inproc
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transport and native context of the in-process backend.

package inproc

import (
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/internal/netpoll"
)

const scheme = "inproc://"

// Transport is the in-process api.Transport. It holds no state; endpoints
// live in the contexts it creates.
type Transport struct{}

var _ api.Transport = (*Transport)(nil)

// New returns the in-process transport.
func New() *Transport { return &Transport{} }

// Name implements api.Transport.
func (*Transport) Name() string { return "inproc" }

// NewContext implements api.Transport.
func (*Transport) NewContext() (api.NativeContext, error) {
	return newContext(), nil
}

// Open implements api.Transport.
func (*Transport) Open(nc api.NativeContext, kind api.SocketType) (api.NativeSocket, error) {
	c, ok := nc.(*Context)
	if !ok || c == nil {
		return nil, syscall.EINVAL
	}
	if kind < api.Pair || kind > api.XSub {
		return nil, syscall.EINVAL
	}
	return c.open(kind)
}

// Poll implements api.Multiplexer.
func (*Transport) Poll(items []api.PollItem, timeout time.Duration) (int, error) {
	return netpoll.Wait(items, timeout)
}

var contextSeq atomic.Uintptr

// Context scopes inproc endpoint names.
type Context struct {
	id      uintptr
	mu      sync.Mutex
	termed  bool
	bound   map[string]*socket
	pending map[string][]*socket
	sockets map[*socket]struct{}
}

func newContext() *Context {
	return &Context{
		id:      contextSeq.Add(1),
		bound:   make(map[string]*socket),
		pending: make(map[string][]*socket),
		sockets: make(map[*socket]struct{}),
	}
}

// Handle implements api.NativeContext.
func (c *Context) Handle() uintptr { return c.id }

// Term closes every socket still open in the context. Blocked calls on
// those sockets return ENOTSOCK.
func (c *Context) Term() error {
	c.mu.Lock()
	if c.termed {
		c.mu.Unlock()
		return nil
	}
	c.termed = true
	open := make([]*socket, 0, len(c.sockets))
	for s := range c.sockets {
		open = append(open, s)
	}
	c.mu.Unlock()

	for _, s := range open {
		_ = s.Close()
	}
	return nil
}

func (c *Context) open(kind api.SocketType) (*socket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.termed {
		return nil, syscall.EBADF
	}
	s, err := newSocket(c, kind)
	if err != nil {
		return nil, err
	}
	c.sockets[s] = struct{}{}
	return s, nil
}

func endpointName(addr string) (string, error) {
	if !strings.HasPrefix(addr, scheme) {
		return "", syscall.EPROTONOSUPPORT
	}
	name := strings.TrimPrefix(addr, scheme)
	if name == "" {
		return "", syscall.EINVAL
	}
	return name, nil
}

func (c *Context) bind(s *socket, addr string) error {
	name, err := endpointName(addr)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if _, taken := c.bound[name]; taken {
		c.mu.Unlock()
		return syscall.EADDRINUSE
	}
	c.bound[name] = s
	waiting := c.pending[name]
	delete(c.pending, name)
	c.mu.Unlock()

	for _, p := range waiting {
		if p != s {
			link(p, s)
		}
	}
	return nil
}

func (c *Context) connect(s *socket, addr string) error {
	name, err := endpointName(addr)
	if err != nil {
		return err
	}
	c.mu.Lock()
	b, ok := c.bound[name]
	if !ok {
		c.pending[name] = append(c.pending[name], s)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if b == s {
		return syscall.EINVAL
	}
	link(s, b)
	return nil
}

// forget drops every trace of a closed socket.
func (c *Context) forget(s *socket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sockets, s)
	for name, b := range c.bound {
		if b == s {
			delete(c.bound, name)
		}
	}
	for name, list := range c.pending {
		kept := list[:0]
		for _, p := range list {
			if p != s {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(c.pending, name)
		} else {
			c.pending[name] = kept
		}
	}
}

func link(a, b *socket) {
	if !a.addPeer(b) {
		return
	}
	if !b.addPeer(a) {
		a.removePeer(b)
	}
}

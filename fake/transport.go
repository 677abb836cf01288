// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Transport records every native call and lets tests inject failures at
// any point, giving predictable behavior without a real messaging stack.

package fake

import (
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/momentics/hioload-mq/api"
)

// Context is a fake native context.
type Context struct {
	handle uintptr
	termed atomic.Bool
}

// Handle implements api.NativeContext.
func (c *Context) Handle() uintptr { return c.handle }

// Term implements api.NativeContext.
func (c *Context) Term() error {
	c.termed.Store(true)
	return nil
}

// Termed reports whether Term was called.
func (c *Context) Termed() bool { return c.termed.Load() }

// Transport is a fake implementation of api.Transport for testing.
type Transport struct {
	mu       sync.Mutex
	handles  uintptr
	openErr  error
	pollErr  error
	polls    int
	sockets  []*Socket
	contexts []*Context
}

var _ api.Transport = (*Transport)(nil)

// NewTransport creates a new fake transport with default settings.
func NewTransport() *Transport {
	return &Transport{handles: 0x1000}
}

// Name implements api.Transport.
func (t *Transport) Name() string { return "fake" }

// NewContext implements api.Transport.
func (t *Transport) NewContext() (api.NativeContext, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handles += 0x10
	c := &Context{handle: t.handles}
	t.contexts = append(t.contexts, c)
	return c, nil
}

// Open implements api.Transport.
func (t *Transport) Open(ctx api.NativeContext, kind api.SocketType) (api.NativeSocket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.openErr != nil {
		return nil, t.openErr
	}
	s := &Socket{kind: kind, ctx: ctx, errs: make(map[string]error), failSendAt: -1}
	t.sockets = append(t.sockets, s)
	return s, nil
}

// Poll implements api.Multiplexer by probing socket state every millisecond.
// Raw descriptors are never reported ready.
func (t *Transport) Poll(items []api.PollItem, timeout time.Duration) (int, error) {
	t.mu.Lock()
	t.polls++
	err := t.pollErr
	t.mu.Unlock()
	if err != nil {
		return 0, err
	}

	deadline := time.Now().Add(timeout)
	for {
		ready := 0
		for i := range items {
			items[i].Revents = 0
			if items[i].Socket == nil {
				continue
			}
			ev, err := items[i].Socket.Events()
			if err != nil {
				return 0, err
			}
			if r := ev & items[i].Events; r != 0 {
				items[i].Revents = r
				ready++
			}
		}
		if ready > 0 {
			return ready, nil
		}
		if timeout >= 0 && !time.Now().Before(deadline) {
			return 0, nil
		}
		time.Sleep(time.Millisecond)
	}
}

// SetOpenError makes subsequent Open calls fail.
func (t *Transport) SetOpenError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openErr = err
}

// SetPollError makes subsequent Poll calls fail.
func (t *Transport) SetPollError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pollErr = err
}

// Polls returns the number of Poll calls made.
func (t *Transport) Polls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.polls
}

// Sockets returns every socket opened so far.
func (t *Transport) Sockets() []*Socket {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Socket(nil), t.sockets...)
}

// Last returns the most recently opened socket, or nil.
func (t *Transport) Last() *Socket {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sockets) == 0 {
		return nil
	}
	return t.sockets[len(t.sockets)-1]
}

// errClosed is what native sockets report once closed.
const errClosed = syscall.ENOTSOCK

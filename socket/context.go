// File: socket/context.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transport contexts and the process-wide default.

package socket

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/control"
	"github.com/momentics/hioload-mq/transport/inproc"
)

// Context pairs a native context with the transport that created it and
// carries the logger, metrics and receive timeout inherited by sockets.
type Context struct {
	tr          api.Transport
	native      api.NativeContext
	logger      *zap.Logger
	metrics     *control.Metrics
	recvTimeout time.Duration
}

var _ api.ContextRef = (*Context)(nil)

// NewContext creates a native context on tr.
func NewContext(tr api.Transport, opts ...ContextOption) (*Context, error) {
	if tr == nil {
		return nil, fmt.Errorf("%w: nil transport", api.ErrInvalidArgument)
	}
	native, err := tr.NewContext()
	if err != nil {
		return nil, api.NewTransportError("context", err)
	}
	c := &Context{
		tr:          tr,
		native:      native,
		logger:      zap.NewNop(),
		recvTimeout: control.DefaultRecvTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Native implements api.ContextRef.
func (c *Context) Native() api.NativeContext { return c.native }

// Transport implements api.ContextRef.
func (c *Context) Transport() api.Transport { return c.tr }

// Handle returns the native pointer-like handle.
func (c *Context) Handle() uintptr { return c.native.Handle() }

// Logger returns the logger sockets of this context use.
func (c *Context) Logger() *zap.Logger { return c.logger }

// Metrics returns the collectors sockets of this context report to, or nil.
func (c *Context) Metrics() *control.Metrics { return c.metrics }

// RecvTimeout returns the bound applied when a receive names none.
func (c *Context) RecvTimeout() time.Duration { return c.recvTimeout }

// Term releases the native context. Sockets must be closed first.
func (c *Context) Term() error {
	return api.NewTransportError("term", c.native.Term())
}

// The process-wide default is rebuilt when the process id changes, so a
// forked child never reuses its parent's native handle.
var defaults struct {
	mu   sync.Mutex
	pid  int
	ctx  *Context
	tr   api.Transport
	opts []ContextOption
}

// Default returns the process-wide context, creating it on first use with
// the transport set by SetDefaultTransport (in-process if none).
func Default() (*Context, error) {
	defaults.mu.Lock()
	defer defaults.mu.Unlock()

	pid := os.Getpid()
	if defaults.ctx != nil && defaults.pid == pid {
		return defaults.ctx, nil
	}
	tr := defaults.tr
	if tr == nil {
		tr = inproc.New()
	}
	c, err := NewContext(tr, defaults.opts...)
	if err != nil {
		return nil, err
	}
	defaults.ctx, defaults.pid = c, pid
	return c, nil
}

// SetDefaultTransport selects the transport and options of the default
// context. The current default is dropped, not terminated.
func SetDefaultTransport(tr api.Transport, opts ...ContextOption) {
	defaults.mu.Lock()
	defer defaults.mu.Unlock()
	defaults.tr = tr
	defaults.opts = opts
	defaults.ctx = nil
}

// SetDefault installs c as the process-wide context. A nil c resets it.
func SetDefault(c *Context) {
	defaults.mu.Lock()
	defer defaults.mu.Unlock()
	defaults.ctx = c
	defaults.pid = os.Getpid()
}

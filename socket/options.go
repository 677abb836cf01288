// File: socket/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import (
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/control"
)

// ContextOption customizes a Context.
type ContextOption func(*Context)

// WithLogger sets the logger; nil keeps the no-op logger.
func WithLogger(l *zap.Logger) ContextOption {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *control.Metrics) ContextOption {
	return func(c *Context) {
		c.metrics = m
	}
}

// WithDefaultRecvTimeout sets the bound used by receives that name none.
// api.Infinite makes them block.
func WithDefaultRecvTimeout(d time.Duration) ContextOption {
	return func(c *Context) {
		if d != 0 {
			c.recvTimeout = d
		}
	}
}

// Option customizes Open.
type Option func(*Socket)

// WithContext opens the socket on ref instead of the default context.
func WithContext(ref api.ContextRef) Option {
	return func(s *Socket) {
		s.ref = ref
	}
}

// WithRecvTimeout overrides the context's default receive bound.
func WithRecvTimeout(d time.Duration) Option {
	return func(s *Socket) {
		s.recvTimeout = d
	}
}

// SendOptions modify one send. The zero value blocks and sends the last
// frame of a message.
type SendOptions struct {
	// Flags are OR-ed with the derived flags.
	Flags api.Flags
	// DontWait fails with EAGAIN instead of blocking.
	DontWait bool
	// More marks the final frame as followed by further frames.
	More bool
	// Close releases the given messages after the attempt, even on failure.
	Close bool
}

func (o SendOptions) flags() api.Flags {
	f := o.Flags
	if o.DontWait {
		f |= api.DontWait
	}
	if o.More {
		f |= api.SndMore
	}
	return f
}

// RecvOptions modify one receive.
type RecvOptions struct {
	Flags api.Flags
	// DontWait skips the readiness wait and fails with EAGAIN when nothing
	// is queued.
	DontWait bool
	// Timeout bounds the wait: zero uses the socket default, api.Infinite
	// (or any negative value) blocks. Use Immediate for a zero bound.
	Timeout time.Duration
	// Immediate polls readiness once without waiting and fails with
	// *api.TimeoutError when nothing is ready. It overrides Timeout.
	Immediate bool
}

func (o RecvOptions) flags() api.Flags {
	f := o.Flags
	if o.DontWait {
		f |= api.DontWait
	}
	return f
}

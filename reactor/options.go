// File: reactor/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/control"
)

// Option customizes a Reactor.
type Option func(*Reactor)

// WithTimeout bounds each wait of the loop. api.Infinite waits until the
// next readiness or queued closure.
func WithTimeout(d time.Duration) Option {
	return func(r *Reactor) {
		if d != 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger used for contained failures.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reactor) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics counts executed closures and records wait latency.
func WithMetrics(m *control.Metrics) Option {
	return func(r *Reactor) {
		r.metrics = m
	}
}

// WithMultiplexer replaces the built-in poll(2) wait.
func WithMultiplexer(mux api.Multiplexer) Option {
	return func(r *Reactor) {
		r.mux = mux
	}
}

//go:build unix

// File: reactor/loop.go
// Author: momentics <momentics@gmail.com>

package reactor

import (
	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/poller"
)

// Loop is the view of a reactor available to closures and handlers. It is
// only valid on the loop goroutine.
type Loop struct {
	r *Reactor
}

// Watch registers interest in p and routes its readiness to h, replacing
// any previous handler. It returns the accumulated interest.
func (l *Loop) Watch(p api.Pollable, events api.Event, h Handler) api.Event {
	if p == nil || h == nil {
		return 0
	}
	ev := l.r.poller.Register(p, events)
	if ev != 0 {
		l.r.handlers[p] = h
	}
	return ev
}

// Unwatch clears interest bits; the handler is dropped with the entry.
func (l *Loop) Unwatch(p api.Pollable, events api.Event) poller.DeregisterResult {
	res := l.r.poller.Deregister(p, events)
	if res.Status == poller.Removed {
		delete(l.r.handlers, p)
	}
	return res
}

// Delete stops watching p entirely.
func (l *Loop) Delete(p api.Pollable) bool {
	delete(l.r.handlers, p)
	return l.r.poller.Delete(p)
}

// Size returns the number of watched handles.
func (l *Loop) Size() int { return len(l.r.handlers) }

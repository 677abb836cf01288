// File: poller/poller.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package poller multiplexes readiness across transport sockets and generic
// descriptors with a single blocking wait.
//
// One mutex covers both the registration table and the native wait, so a
// registration from another goroutine takes effect either before or after an
// in-flight wait, never during it. The lock is intentionally coarse: the
// native wait is the serialization point.

package poller

import (
	"iter"
	"sync"
	"time"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/control"
	"github.com/momentics/hioload-mq/internal/netpoll"
)

// interestMask holds the bits a registration may carry.
const interestMask = api.PollIn | api.PollOut

// MultiplexerFunc adapts a function to api.Multiplexer.
type MultiplexerFunc func(items []api.PollItem, timeout time.Duration) (int, error)

// Poll calls f.
func (f MultiplexerFunc) Poll(items []api.PollItem, timeout time.Duration) (int, error) {
	return f(items, timeout)
}

// DeregisterStatus distinguishes the outcomes of Deregister.
type DeregisterStatus int

const (
	// NotRegistered means the handle had none of the requested interest.
	NotRegistered DeregisterStatus = iota
	// Removed means the entry was dropped entirely.
	Removed
	// Partial means some interest remains registered.
	Partial
)

func (s DeregisterStatus) String() string {
	switch s {
	case Removed:
		return "removed"
	case Partial:
		return "partial"
	default:
		return "not-registered"
	}
}

// DeregisterResult reports what Deregister did.
type DeregisterResult struct {
	Status    DeregisterStatus
	Remaining api.Event
}

// WaitStatus is the outcome of a wait.
type WaitStatus int

const (
	// WaitIdle means nothing was registered; the call did not block.
	WaitIdle WaitStatus = iota
	// WaitTimeout means the bound elapsed without readiness.
	WaitTimeout
	// WaitReady means at least one handle became ready.
	WaitReady
)

func (s WaitStatus) String() string {
	switch s {
	case WaitTimeout:
		return "timeout"
	case WaitReady:
		return "ready"
	default:
		return "idle"
	}
}

type entry struct {
	p      api.Pollable
	events api.Event
}

// Handle is one ready handle with the readiness observed for it.
type Handle struct {
	Pollable api.Pollable
	Events   api.Event
}

// Ready is the result of Poll.
type Ready struct {
	Status  WaitStatus
	handles []Handle
}

// All yields ready handles in registration order. It may be ranged over
// repeatedly; a timed out or idle result yields nothing.
func (r *Ready) All() iter.Seq2[api.Pollable, api.Event] {
	return func(yield func(api.Pollable, api.Event) bool) {
		for _, h := range r.handles {
			if !yield(h.Pollable, h.Events) {
				return
			}
		}
	}
}

// Len returns the number of ready handles.
func (r *Ready) Len() int { return len(r.handles) }

// Handles returns a copy of the ready set.
func (r *Ready) Handles() []Handle {
	return append([]Handle(nil), r.handles...)
}

// Option customizes a Poller.
type Option func(*Poller)

// WithMetrics records wait latency.
func WithMetrics(m *control.Metrics) Option {
	return func(p *Poller) {
		p.metrics = m
	}
}

// Poller watches a set of pollable handles.
type Poller struct {
	mu      sync.Mutex
	mux     api.Multiplexer
	entries []*entry
	index   map[api.Pollable]*entry
	items   []api.PollItem
	metrics *control.Metrics
}

// New creates a poller backed by mux. A nil mux uses the built-in poll(2)
// multiplexer, which understands any api.NativeSocket and raw descriptors.
func New(mux api.Multiplexer, opts ...Option) *Poller {
	if mux == nil {
		mux = MultiplexerFunc(netpoll.Wait)
	}
	p := &Poller{
		mux:   mux,
		index: make(map[api.Pollable]*entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register adds interest for p, OR-ing it into any existing registration,
// and returns the resulting interest. A nil handle or empty interest is a
// no-op returning zero.
func (p *Poller) Register(h api.Pollable, events api.Event) api.Event {
	events &= interestMask
	if h == nil || events == 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.index[h]
	if e == nil {
		e = &entry{p: h}
		p.index[h] = e
		p.entries = append(p.entries, e)
	}
	e.events |= events
	return e.events
}

// Deregister clears the given interest bits. The entry is removed once no
// interest remains or the handle reports itself closed.
func (p *Poller) Deregister(h api.Pollable, events api.Event) DeregisterResult {
	if h == nil {
		return DeregisterResult{Status: NotRegistered}
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.index[h]
	if e == nil || e.events&events == 0 {
		return DeregisterResult{Status: NotRegistered}
	}
	e.events &^= events
	if e.events == 0 || h.Closed() {
		p.remove(h)
		return DeregisterResult{Status: Removed}
	}
	return DeregisterResult{Status: Partial, Remaining: e.events}
}

// Delete drops h regardless of its interest and reports whether it was
// registered.
func (p *Poller) Delete(h api.Pollable) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.index[h]; !ok {
		return false
	}
	p.remove(h)
	return true
}

// Interest returns the registered interest of h, zero if absent.
func (p *Poller) Interest(h api.Pollable) api.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e := p.index[h]; e != nil {
		return e.events
	}
	return 0
}

// Size returns the number of registered handles.
func (p *Poller) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Poll waits up to timeout (api.Infinite blocks) and returns the ready set.
// With nothing registered it returns immediately with WaitIdle.
func (p *Poller) Poll(timeout time.Duration) (*Ready, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wait(timeout)
}

// Wait is Poll with a per-handle callback. Callbacks run after the poller
// lock has been released, so they may register or deregister handles.
func (p *Poller) Wait(timeout time.Duration, fn func(api.Pollable, api.Event)) (WaitStatus, error) {
	ready, err := p.Poll(timeout)
	if err != nil {
		return WaitTimeout, err
	}
	if fn != nil {
		for h, ev := range ready.All() {
			fn(h, ev)
		}
	}
	return ready.Status, nil
}

func (p *Poller) wait(timeout time.Duration) (*Ready, error) {
	p.pruneClosed()
	if len(p.entries) == 0 {
		return &Ready{Status: WaitIdle}, nil
	}

	p.items = p.items[:0]
	for _, e := range p.entries {
		it := e.p.PollItem()
		it.Events = e.events
		it.Revents = 0
		p.items = append(p.items, it)
	}

	start := time.Now()
	n, err := p.mux.Poll(p.items, timeout)
	p.metrics.ObservePoll(time.Since(start))
	if err != nil {
		return nil, api.NewTransportError("poll", err)
	}

	out := &Ready{Status: WaitTimeout}
	if n <= 0 {
		return out, nil
	}
	for i, it := range p.items {
		if it.Revents&interestMask == 0 {
			continue
		}
		out.handles = append(out.handles, Handle{Pollable: p.entries[i].p, Events: it.Revents})
	}
	if len(out.handles) > 0 {
		out.Status = WaitReady
	}
	return out, nil
}

func (p *Poller) pruneClosed() {
	for i := 0; i < len(p.entries); {
		if h := p.entries[i].p; h.Closed() {
			p.remove(h)
			continue
		}
		i++
	}
}

func (p *Poller) remove(h api.Pollable) {
	delete(p.index, h)
	for i, e := range p.entries {
		if e.p == h {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			return
		}
	}
}

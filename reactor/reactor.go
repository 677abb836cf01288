//go:build unix

// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Poller-driven event loop with a FIFO of queued closures.

package reactor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"go.uber.org/zap"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/control"
	"github.com/momentics/hioload-mq/internal/netpoll"
	"github.com/momentics/hioload-mq/poller"
)

// Handler receives readiness for a watched handle on the loop goroutine.
type Handler func(l *Loop, p api.Pollable, ev api.Event)

type task struct {
	fn   func(*Loop) error
	done chan error
}

// Reactor owns a poller and the goroutine driving it.
type Reactor struct {
	mux     api.Multiplexer
	timeout time.Duration
	logger  *zap.Logger
	metrics *control.Metrics

	poller   *poller.Poller
	wake     *netpoll.Signal
	wakeH    wakeHandle
	handlers map[api.Pollable]Handler
	loop     *Loop

	mu     sync.Mutex
	tasks  *queue.Queue
	closed atomic.Bool

	closeOnce sync.Once
	done      chan struct{}
}

// wakeHandle exposes the wake signal to the poller.
type wakeHandle struct{ sig *netpoll.Signal }

func (w wakeHandle) PollItem() api.PollItem { return api.PollItem{Fd: w.sig.Fd()} }
func (w wakeHandle) Closed() bool           { return w.sig.Closed() }

// New starts a reactor goroutine.
func New(opts ...Option) (*Reactor, error) {
	r := &Reactor{
		timeout:  control.DefaultReactorTimeout,
		logger:   zap.NewNop(),
		handlers: make(map[api.Pollable]Handler),
		tasks:    queue.New(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	wake, err := netpoll.NewSignal()
	if err != nil {
		return nil, fmt.Errorf("reactor: %w", err)
	}
	r.wake = wake
	r.wakeH = wakeHandle{sig: wake}
	r.loop = &Loop{r: r}
	r.poller = poller.New(r.mux, poller.WithMetrics(r.metrics))
	r.poller.Register(r.wakeH, api.PollIn)

	go r.run()
	return r, nil
}

// Run queues fn for the loop goroutine and returns without waiting.
func (r *Reactor) Run(fn func(*Loop)) error {
	if fn == nil {
		return fmt.Errorf("%w: nil closure", api.ErrInvalidArgument)
	}
	return r.enqueue(task{fn: func(l *Loop) error {
		fn(l)
		return nil
	}})
}

// Exec runs fn on the loop goroutine and waits for its result or for ctx
// to end. A panic in fn is returned as an error.
func (r *Reactor) Exec(ctx context.Context, fn func(*Loop) error) error {
	if fn == nil {
		return fmt.Errorf("%w: nil closure", api.ErrInvalidArgument)
	}
	done := make(chan error, 1)
	if err := r.enqueue(task{fn: fn, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reactor) enqueue(t task) error {
	r.mu.Lock()
	if r.closed.Load() {
		r.mu.Unlock()
		return api.ErrReactorClosed
	}
	r.tasks.Add(t)
	r.mu.Unlock()
	r.wake.Set()
	return nil
}

// Close stops the loop, interrupting a wait in progress, and waits for the
// goroutine to exit. Closures still queued fail with ErrReactorClosed.
// It must not be called from the loop goroutine.
func (r *Reactor) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed.Store(true)
		r.mu.Unlock()
		r.wake.Set()
		<-r.done
		err = r.wake.Close()
	})
	return err
}

// Closed reports whether Close has been called.
func (r *Reactor) Closed() bool { return r.closed.Load() }

// Done is closed once the loop goroutine has exited.
func (r *Reactor) Done() <-chan struct{} { return r.done }

func (r *Reactor) run() {
	defer close(r.done)
	defer r.abandon()

	for !r.closed.Load() {
		r.drain()
		if r.closed.Load() {
			return
		}
		if _, err := r.poller.Wait(r.timeout, r.dispatch); err != nil {
			r.logger.Error("reactor wait failed", zap.Error(err))
			time.Sleep(time.Millisecond)
		}
		r.prune()
	}
}

// next pops one queued task.
func (r *Reactor) next() (task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tasks.Length() == 0 {
		return task{}, false
	}
	return r.tasks.Remove().(task), true
}

// drain runs the closures queued so far. Closures queued meanwhile wait
// for the next iteration.
func (r *Reactor) drain() {
	r.mu.Lock()
	n := r.tasks.Length()
	r.mu.Unlock()

	for i := 0; i < n; i++ {
		t, ok := r.next()
		if !ok {
			return
		}
		err := r.execute(t.fn)
		r.metrics.ReactorTask(err == nil)
		if t.done != nil {
			t.done <- err
		} else if err != nil {
			r.logger.Error("reactor task failed", zap.Error(err))
		}
	}
}

func (r *Reactor) execute(fn func(*Loop) error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("reactor task panicked", zap.Any("panic", v), zap.Stack("stack"))
			err = fmt.Errorf("reactor task panicked: %v", v)
		}
	}()
	return fn(r.loop)
}

func (r *Reactor) dispatch(p api.Pollable, ev api.Event) {
	if p == api.Pollable(r.wakeH) {
		r.wake.Clear()
		return
	}
	h := r.handlers[p]
	if h == nil {
		return
	}
	ok := false
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("reactor callback panicked",
				zap.Stringer("events", ev), zap.Any("panic", v), zap.Stack("stack"))
		}
		r.metrics.ReactorTask(ok)
	}()
	h(r.loop, p, ev)
	ok = true
}

// prune forgets handlers of handles that were closed under the loop.
func (r *Reactor) prune() {
	for p := range r.handlers {
		if p.Closed() {
			delete(r.handlers, p)
			r.poller.Delete(p)
		}
	}
}

// abandon fails closures that were queued but never run.
func (r *Reactor) abandon() {
	for {
		t, ok := r.next()
		if !ok {
			return
		}
		if t.done != nil {
			t.done <- api.ErrReactorClosed
		}
	}
}

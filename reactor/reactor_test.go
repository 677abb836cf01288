//go:build unix

package reactor_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/control"
	"github.com/momentics/hioload-mq/poller"
	"github.com/momentics/hioload-mq/reactor"
	"github.com/momentics/hioload-mq/socket"
	"github.com/momentics/hioload-mq/transport/inproc"
)

func newReactor(t *testing.T, opts ...reactor.Option) *reactor.Reactor {
	t.Helper()
	r, err := reactor.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestExecRunsOnLoop(t *testing.T) {
	r := newReactor(t, reactor.WithTimeout(api.Infinite))

	ran := false
	err := r.Exec(context.Background(), func(l *reactor.Loop) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	want := errors.New("task failed")
	err = r.Exec(context.Background(), func(*reactor.Loop) error { return want })
	assert.ErrorIs(t, err, want)
}

func TestTasksRunInOrder(t *testing.T) {
	r := newReactor(t)

	var order []int
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Run(func(*reactor.Loop) { order = append(order, i) }))
	}
	require.NoError(t, r.Exec(context.Background(), func(*reactor.Loop) error { return nil }))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestPanicIsContained(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	reg := prometheus.NewRegistry()
	m, err := control.NewMetrics(reg, "test")
	require.NoError(t, err)
	r := newReactor(t, reactor.WithLogger(zap.New(core)), reactor.WithMetrics(m))

	require.NoError(t, r.Run(func(*reactor.Loop) { panic("boom") }))
	err = r.Exec(context.Background(), func(*reactor.Loop) error { panic("again") })
	assert.ErrorContains(t, err, "again")

	require.NoError(t, r.Exec(context.Background(), func(*reactor.Loop) error { return nil }))
	assert.Equal(t, 2, logs.FilterMessage("reactor task panicked").Len())

	n, err := testutil.GatherAndCount(reg, "test_reactor_tasks_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWatchDispatchesPipeReadiness(t *testing.T) {
	r := newReactor(t, reactor.WithTimeout(api.Infinite))
	rd, wr, err := os.Pipe()
	require.NoError(t, err)
	defer rd.Close()
	defer wr.Close()

	got := make(chan api.Event, 1)
	require.NoError(t, r.Run(func(l *reactor.Loop) {
		l.Watch(poller.File{D: rd}, api.PollIn, func(l *reactor.Loop, p api.Pollable, ev api.Event) {
			l.Delete(p)
			got <- ev
		})
	}))

	_, err = wr.Write([]byte("x"))
	require.NoError(t, err)

	select {
	case ev := <-got:
		assert.Equal(t, api.PollIn, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("no readiness dispatched")
	}

	size := -1
	require.NoError(t, r.Exec(context.Background(), func(l *reactor.Loop) error {
		size = l.Size()
		return nil
	}))
	assert.Zero(t, size)
}

func TestReactorDrivesSocket(t *testing.T) {
	ctx, err := socket.NewContext(inproc.New())
	require.NoError(t, err)
	defer ctx.Term()

	pull, err := socket.Open(api.Pull, socket.WithContext(ctx))
	require.NoError(t, err)
	push, err := socket.Open(api.Push, socket.WithContext(ctx))
	require.NoError(t, err)
	require.NoError(t, pull.Bind("inproc://reactor"))
	require.NoError(t, push.Connect("inproc://reactor"))

	r := newReactor(t, reactor.WithTimeout(50*time.Millisecond))
	got := make(chan string, 4)
	require.NoError(t, r.Exec(context.Background(), func(l *reactor.Loop) error {
		l.Watch(pull, api.PollIn, func(_ *reactor.Loop, _ api.Pollable, _ api.Event) {
			s, err := pull.RecvString(socket.RecvOptions{DontWait: true})
			if err == nil {
				got <- s
			}
		})
		return nil
	}))

	for _, s := range []string{"one", "two"} {
		require.NoError(t, push.SendString(s, socket.SendOptions{}))
	}
	var out []string
	for len(out) < 2 {
		select {
		case s := <-got:
			out = append(out, s)
		case <-time.After(2 * time.Second):
			t.Fatalf("received %v", out)
		}
	}
	assert.Equal(t, []string{"one", "two"}, out)
	require.NoError(t, r.Close())
}

func TestCallbackPanicDoesNotStopLoop(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := newReactor(t, reactor.WithLogger(zap.New(core)), reactor.WithTimeout(20*time.Millisecond))
	rd, wr, err := os.Pipe()
	require.NoError(t, err)
	defer rd.Close()
	defer wr.Close()
	_, err = wr.Write([]byte("x"))
	require.NoError(t, err)

	var calls atomic.Int32
	require.NoError(t, r.Run(func(l *reactor.Loop) {
		l.Watch(poller.File{D: rd}, api.PollIn, func(l *reactor.Loop, p api.Pollable, _ api.Event) {
			if calls.Add(1) > 1 {
				l.Delete(p)
			}
			panic("callback")
		})
	}))

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, r.Exec(context.Background(), func(*reactor.Loop) error { return nil }))
	assert.GreaterOrEqual(t, logs.FilterMessage("reactor callback panicked").Len(), 2)
}

func TestCloseInterruptsWait(t *testing.T) {
	r, err := reactor.New(reactor.WithTimeout(api.Infinite))
	require.NoError(t, err)

	require.NoError(t, r.Exec(context.Background(), func(*reactor.Loop) error { return nil }))
	start := time.Now()
	require.NoError(t, r.Close())
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, r.Closed())

	select {
	case <-r.Done():
	default:
		t.Fatal("loop still running")
	}

	assert.ErrorIs(t, r.Run(func(*reactor.Loop) {}), api.ErrReactorClosed)
	assert.ErrorIs(t, r.Exec(context.Background(), func(*reactor.Loop) error { return nil }), api.ErrReactorClosed)
	assert.NoError(t, r.Close())
}

func TestExecHonorsContext(t *testing.T) {
	r := newReactor(t)
	block := make(chan struct{})
	defer close(block)
	require.NoError(t, r.Run(func(*reactor.Loop) { <-block }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := r.Exec(ctx, func(*reactor.Loop) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNilClosureRejected(t *testing.T) {
	r := newReactor(t)
	assert.ErrorIs(t, r.Run(nil), api.ErrInvalidArgument)
	assert.ErrorIs(t, r.Exec(context.Background(), nil), api.ErrInvalidArgument)
}

func TestCallbacksAreCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := control.NewMetrics(reg, "test")
	require.NoError(t, err)
	r := newReactor(t, reactor.WithTimeout(api.Infinite), reactor.WithLogger(zap.NewNop()), reactor.WithMetrics(m))

	rd, wr, err := os.Pipe()
	require.NoError(t, err)
	defer rd.Close()
	defer wr.Close()

	fired := make(chan struct{})
	require.NoError(t, r.Exec(context.Background(), func(l *reactor.Loop) error {
		l.Watch(poller.File{D: rd}, api.PollIn, func(l *reactor.Loop, p api.Pollable, _ api.Event) {
			l.Delete(p)
			close(fired)
			panic("callback failed")
		})
		return nil
	}))
	_, err = wr.Write([]byte("x"))
	require.NoError(t, err)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("no readiness dispatched")
	}
	require.NoError(t, r.Exec(context.Background(), func(*reactor.Loop) error { return nil }))

	expected := `
# HELP test_reactor_tasks_total Reactor closures and callbacks executed, by result.
# TYPE test_reactor_tasks_total counter
test_reactor_tasks_total{result="failed"} 1
test_reactor_tasks_total{result="ok"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_reactor_tasks_total"))
}

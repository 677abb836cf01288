//go:build unix

package poller_test

import (
	"errors"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/control"
	"github.com/momentics/hioload-mq/poller"
)

type handle struct {
	name   string
	closed bool
}

func (h *handle) PollItem() api.PollItem { return api.PollItem{Fd: ^uintptr(0)} }
func (h *handle) Closed() bool           { return h.closed }

func TestRegisterAccumulatesInterest(t *testing.T) {
	p := poller.New(nil)
	h := &handle{name: "a"}

	assert.Equal(t, api.PollIn, p.Register(h, api.PollIn))
	assert.Equal(t, api.PollIn, p.Register(h, api.PollIn))
	assert.Equal(t, api.PollIn|api.PollOut, p.Register(h, api.PollOut))
	assert.Equal(t, 1, p.Size())
	assert.Equal(t, api.PollIn|api.PollOut, p.Interest(h))
}

func TestRegisterIgnoresEmptyInput(t *testing.T) {
	p := poller.New(nil)

	assert.Zero(t, p.Register(nil, api.PollIn))
	assert.Zero(t, p.Register(&handle{}, 0))
	assert.Zero(t, p.Register(&handle{}, api.PollErr))
	assert.Zero(t, p.Size())
}

func TestDeregisterOutcomes(t *testing.T) {
	p := poller.New(nil)
	h := &handle{}

	assert.Equal(t, poller.NotRegistered, p.Deregister(h, api.PollIn).Status)

	p.Register(h, api.PollIn)
	p.Register(h, api.PollOut)

	res := p.Deregister(h, api.PollIn)
	assert.Equal(t, poller.Partial, res.Status)
	assert.Equal(t, api.PollOut, res.Remaining)

	assert.Equal(t, poller.NotRegistered, p.Deregister(h, api.PollIn).Status)

	res = p.Deregister(h, api.PollOut)
	assert.Equal(t, poller.Removed, res.Status)
	assert.Zero(t, p.Size())
}

func TestDeregisterRemovesClosedHandle(t *testing.T) {
	p := poller.New(nil)
	h := &handle{}
	p.Register(h, api.PollIn|api.PollOut)
	h.closed = true

	assert.Equal(t, poller.Removed, p.Deregister(h, api.PollIn).Status)
	assert.Zero(t, p.Size())
}

func TestDelete(t *testing.T) {
	p := poller.New(nil)
	a, b := &handle{name: "a"}, &handle{name: "b"}
	p.Register(a, api.PollIn)
	p.Register(b, api.PollOut)

	assert.True(t, p.Delete(a))
	assert.False(t, p.Delete(a))
	assert.Equal(t, 1, p.Size())
	assert.Zero(t, p.Interest(a))
}

func TestWaitOnEmptyReturnsImmediately(t *testing.T) {
	calls := 0
	p := poller.New(poller.MultiplexerFunc(func([]api.PollItem, time.Duration) (int, error) {
		calls++
		return 0, nil
	}))

	start := time.Now()
	status, err := p.Wait(api.Infinite, nil)
	require.NoError(t, err)

	assert.Equal(t, poller.WaitIdle, status)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Zero(t, calls)
}

func TestWaitIssuesOneNativeCall(t *testing.T) {
	var seen []api.PollItem
	var gotTimeout time.Duration
	p := poller.New(poller.MultiplexerFunc(func(items []api.PollItem, timeout time.Duration) (int, error) {
		seen = append(seen, items...)
		gotTimeout = timeout
		items[1].Revents = api.PollOut | api.PollErr
		return 1, nil
	}))
	a, b := &handle{name: "a"}, &handle{name: "b"}
	p.Register(a, api.PollIn)
	p.Register(b, api.PollOut)

	ready, err := p.Poll(250 * time.Millisecond)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, api.PollIn, seen[0].Events)
	assert.Equal(t, api.PollOut, seen[1].Events)
	assert.Equal(t, 250*time.Millisecond, gotTimeout)

	assert.Equal(t, poller.WaitReady, ready.Status)
	assert.Equal(t, []poller.Handle{{Pollable: b, Events: api.PollOut | api.PollErr}}, ready.Handles())
}

func TestReadyIsRestartable(t *testing.T) {
	p := poller.New(poller.MultiplexerFunc(func(items []api.PollItem, _ time.Duration) (int, error) {
		for i := range items {
			items[i].Revents = api.PollIn
		}
		return len(items), nil
	}))
	p.Register(&handle{name: "a"}, api.PollIn)
	p.Register(&handle{name: "b"}, api.PollIn)

	ready, err := p.Poll(0)
	require.NoError(t, err)

	count := func() int {
		n := 0
		for range ready.All() {
			n++
		}
		return n
	}
	assert.Equal(t, 2, count())
	assert.Equal(t, 2, count())
	assert.Equal(t, 2, ready.Len())
}

func TestWaitErrorIsTransportError(t *testing.T) {
	p := poller.New(poller.MultiplexerFunc(func([]api.PollItem, time.Duration) (int, error) {
		return 0, syscall.EBADF
	}))
	p.Register(&handle{}, api.PollIn)

	_, err := p.Wait(0, nil)
	var te *api.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "poll", te.Op)
	assert.Equal(t, syscall.EBADF, te.Errno)
}

func TestCallbackMayReenterPoller(t *testing.T) {
	p := poller.New(poller.MultiplexerFunc(func(items []api.PollItem, _ time.Duration) (int, error) {
		items[0].Revents = api.PollIn
		return 1, nil
	}))
	h := &handle{}
	p.Register(h, api.PollIn)

	status, err := p.Wait(0, func(got api.Pollable, _ api.Event) {
		p.Deregister(got, api.PollIn)
	})
	require.NoError(t, err)
	assert.Equal(t, poller.WaitReady, status)
	assert.Zero(t, p.Size())
}

func TestPipeReadiness(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()

	reg := prometheus.NewRegistry()
	m, err := control.NewMetrics(reg, "test")
	require.NoError(t, err)

	p := poller.New(nil, poller.WithMetrics(m))
	f := poller.File{D: r}
	p.Register(f, api.PollIn)

	start := time.Now()
	status, err := p.Wait(100*time.Millisecond, nil)
	require.NoError(t, err)
	assert.Equal(t, poller.WaitTimeout, status)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	start = time.Now()
	status, err = p.Wait(time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, poller.WaitReady, status)
	assert.Less(t, time.Since(start), time.Second)

	n, err := testutil.GatherAndCount(reg, "test_poll_wait_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, r.Close())
	status, err = p.Wait(time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, poller.WaitIdle, status)
}

func TestHungUpPipeIsReady(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, w.Close())

	p := poller.New(nil)
	f := poller.File{D: r}
	p.Register(f, api.PollIn)

	start := time.Now()
	ready, err := p.Poll(500 * time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, poller.WaitReady, ready.Status)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	require.Equal(t, 1, ready.Len())
	assert.NotZero(t, ready.Handles()[0].Events&api.PollIn)
}

func TestRegisterDuringWaitIsRetained(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	var lastLen atomic.Int32
	p := poller.New(poller.MultiplexerFunc(func(items []api.PollItem, _ time.Duration) (int, error) {
		lastLen.Store(int32(len(items)))
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		return 0, nil
	}))
	p.Register(&handle{name: "a"}, api.PollIn)

	waited := make(chan poller.WaitStatus, 1)
	go func() {
		status, err := p.Wait(api.Infinite, nil)
		assert.NoError(t, err)
		waited <- status
	}()
	<-entered

	b := &handle{name: "b"}
	registered := make(chan api.Event, 1)
	go func() { registered <- p.Register(b, api.PollOut) }()

	select {
	case <-registered:
		t.Fatal("registration completed while a wait was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	assert.Equal(t, poller.WaitTimeout, <-waited)
	assert.Equal(t, api.PollOut, <-registered)
	assert.Equal(t, 2, p.Size())
	assert.Equal(t, api.PollOut, p.Interest(b))

	_, err := p.Poll(0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, lastLen.Load())
}

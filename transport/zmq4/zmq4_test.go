//go:build cgo && unix

package zmq4_test

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/pool"
	"github.com/momentics/hioload-mq/transport/zmq4"
)

func TestPushPullOverLibzmq(t *testing.T) {
	if testing.Short() {
		t.Skip("libzmq round trip")
	}
	tr := zmq4.New()
	ctx, err := tr.NewContext()
	require.NoError(t, err)
	assert.NotZero(t, ctx.Handle())

	pull, err := tr.Open(ctx, api.Pull)
	require.NoError(t, err)
	push, err := tr.Open(ctx, api.Push)
	require.NoError(t, err)
	require.NoError(t, pull.Bind("inproc://zmq4-test"))
	require.NoError(t, push.Connect("inproc://zmq4-test"))

	for i, p := range []string{"TEST", "MORE"} {
		var flags api.Flags
		if i == 0 {
			flags = api.SndMore
		}
		f := pool.CopyFrame([]byte(p))
		require.NoError(t, push.SendFrame(f, flags))
		f.Release()
	}

	items := []api.PollItem{{Socket: pull, Events: api.PollIn}}
	n, err := tr.Poll(items, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := pull.RecvFrame(0)
	require.NoError(t, err)
	assert.Equal(t, "TEST", string(f.Bytes()))
	more, err := pull.MorePending()
	require.NoError(t, err)
	assert.True(t, more)

	f, err = pull.RecvFrame(0)
	require.NoError(t, err)
	assert.Equal(t, "MORE", string(f.Bytes()))

	_, err = pull.RecvFrame(api.DontWait)
	assert.ErrorIs(t, err, syscall.EAGAIN)

	require.NoError(t, push.SetOption(api.Linger, 0))
	require.NoError(t, push.Close())
	require.NoError(t, pull.Close())
	require.NoError(t, ctx.Term())
}

func TestUnsupportedAddressIsErrno(t *testing.T) {
	if testing.Short() {
		t.Skip("libzmq round trip")
	}
	tr := zmq4.New()
	ctx, err := tr.NewContext()
	require.NoError(t, err)
	defer ctx.Term()

	s, err := tr.Open(ctx, api.Pull)
	require.NoError(t, err)
	defer s.Close()

	err = s.Bind("bogus://nowhere")
	require.Error(t, err)
	var errno syscall.Errno
	assert.ErrorAs(t, err, &errno)
}

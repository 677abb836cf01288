package message_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/message"
	"github.com/momentics/hioload-mq/pool"
)

func frames(p *pool.FramePool, parts ...string) []api.Frame {
	out := make([]api.Frame, 0, len(parts))
	for _, s := range parts {
		out = append(out, p.Copy([]byte(s)))
	}
	return out
}

func TestFromFramesPreservesOrder(t *testing.T) {
	for _, parts := range [][]string{
		{"one"},
		{"f0", "f1", "f2"},
		{"", "empty", "", "frames"},
	} {
		p := pool.NewFramePool()
		head := message.FromFrames(frames(p, parts...))
		require.NotNil(t, head)

		assert.Equal(t, parts, head.Strings())
		assert.Equal(t, len(parts), head.Len())
		assert.EqualValues(t, 0, p.InUse(), "native frames must be released")
	}
}

func TestFromFramesEmpty(t *testing.T) {
	assert.Nil(t, message.FromFrames(nil))
}

func TestFromIsIdentityPreserving(t *testing.T) {
	m := message.FromString("x", nil)
	got, err := message.From(m)
	require.NoError(t, err)
	assert.Same(t, m, got)
}

func TestFromAcceptedInputs(t *testing.T) {
	m, err := message.From([]byte("bytes"))
	require.NoError(t, err)
	assert.Equal(t, "bytes", m.String())

	m, err = message.From("text")
	require.NoError(t, err)
	assert.Equal(t, "text", m.String())

	p := pool.NewFramePool()
	m, err = message.From(api.Frame(p.Copy([]byte("native"))))
	require.NoError(t, err)
	assert.Equal(t, "native", m.String())
	assert.False(t, m.More())
	assert.EqualValues(t, 0, p.InUse())

	_, err = message.From(42)
	assert.True(t, errors.Is(err, api.ErrInvalidArgument))

	_, err = message.From((*message.Message)(nil))
	assert.True(t, errors.Is(err, api.ErrInvalidArgument))
}

func TestMoreFollowsNext(t *testing.T) {
	tail := message.FromString("MORE", nil)
	head := message.FromString("TEST", tail)

	assert.True(t, head.More())
	assert.Same(t, tail, head.Next())
	assert.False(t, tail.More())
	assert.Nil(t, tail.Next())
}

func TestAllIsRestartable(t *testing.T) {
	head := message.FromString("a", message.FromString("b", message.FromString("c", nil)))

	first := slices.Collect(head.All())
	second := slices.Collect(head.All())
	assert.Equal(t, first, second)
	assert.Len(t, first, 3)

	var seen []string
	for m := range head.All() {
		seen = append(seen, m.String())
		if m.String() == "b" {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestFrameDoesNotAlias(t *testing.T) {
	m := message.New([]byte("abc"), nil)
	f := m.Frame()
	f.Bytes()[0] = 'X'
	f.Release()

	assert.Equal(t, "abc", m.String())
}

func TestRelease(t *testing.T) {
	head := message.FromString("a", message.FromString("b", nil))
	head.Release()

	assert.Nil(t, head.Data())
	assert.False(t, head.More())
}

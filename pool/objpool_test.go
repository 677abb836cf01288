package pool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/hioload-mq/pool"
)

type slot struct{ vals []int }

func TestTrackedResetsOnPut(t *testing.T) {
	var resets int
	p := pool.NewTracked(
		func() *slot { return &slot{} },
		func(s *slot) { resets++; s.vals = s.vals[:0] },
	)

	s := p.Get()
	s.vals = append(s.vals, 1, 2, 3)
	assert.EqualValues(t, 1, p.InUse())

	p.Put(s)
	assert.Equal(t, 1, resets)
	assert.Empty(t, s.vals)
	assert.Zero(t, p.InUse())
}

func TestTrackedWithoutReset(t *testing.T) {
	p := pool.NewTracked(func() int { return 7 }, nil)
	assert.Equal(t, 7, p.Get())
	assert.Equal(t, 7, p.Get())
	assert.EqualValues(t, 2, p.InUse())
	p.Put(7)
	assert.EqualValues(t, 1, p.InUse())
}

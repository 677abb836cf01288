// File: pool/objpool.go
// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package pool

import (
	"sync"
	"sync/atomic"
)

// Recycler hands out reusable values and takes them back.
type Recycler[T any] interface {
	Get() T
	Put(T)
	InUse() int64
}

// Tracked is a sync.Pool with a reset hook applied on Put and a count of
// values currently checked out.
type Tracked[T any] struct {
	pool  sync.Pool
	reset func(T)
	inUse atomic.Int64
}

var _ Recycler[*Frame] = (*Tracked[*Frame])(nil)

// NewTracked builds a pool. reset may be nil.
func NewTracked[T any](create func() T, reset func(T)) *Tracked[T] {
	t := &Tracked[T]{reset: reset}
	t.pool.New = func() any { return create() }
	return t
}

// Get checks a value out.
func (t *Tracked[T]) Get() T {
	t.inUse.Add(1)
	return t.pool.Get().(T)
}

// Put resets v and makes it available again.
func (t *Tracked[T]) Put(v T) {
	t.inUse.Add(-1)
	if t.reset != nil {
		t.reset(v)
	}
	t.pool.Put(v)
}

// InUse reports values checked out and not yet returned.
func (t *Tracked[T]) InUse() int64 { return t.inUse.Load() }

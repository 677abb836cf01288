// File: pool/frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pooled native frame implementation of api.Frame.

package pool

import (
	"sync/atomic"

	"github.com/momentics/hioload-mq/api"
)

// maxRetained caps the backing array size kept across reuse.
const maxRetained = 64 * 1024

// Frame is a reusable frame buffer. It is returned to its pool on Release.
type Frame struct {
	buf      []byte
	owner    *FramePool
	released atomic.Bool
}

var _ api.Frame = (*Frame)(nil)

// Bytes returns the frame payload. The slice is invalid after Release.
func (f *Frame) Bytes() []byte { return f.buf }

// Len returns the payload length.
func (f *Frame) Len() int { return len(f.buf) }

// Release hands the frame back to its pool. Subsequent calls are no-ops.
func (f *Frame) Release() {
	if !f.released.CompareAndSwap(false, true) {
		return
	}
	if f.owner != nil {
		f.owner.put(f)
	}
}

// FramePool recycles frames between native calls.
type FramePool struct {
	frames Recycler[*Frame]
}

// NewFramePool creates an empty frame pool.
func NewFramePool() *FramePool {
	return &FramePool{
		frames: NewTracked(func() *Frame { return &Frame{} }, resetFrame),
	}
}

func resetFrame(f *Frame) {
	if cap(f.buf) > maxRetained {
		f.buf = nil
	} else {
		f.buf = f.buf[:0]
	}
	f.owner = nil
}

// Copy returns a frame holding a private copy of data.
func (p *FramePool) Copy(data []byte) *Frame {
	f := p.frames.Get()
	f.owner = p
	f.released.Store(false)
	if cap(f.buf) < len(data) {
		f.buf = make([]byte, len(data))
	}
	f.buf = f.buf[:len(data)]
	copy(f.buf, data)
	return f
}

// InUse reports frames handed out and not yet released.
func (p *FramePool) InUse() int64 { return p.frames.InUse() }

func (p *FramePool) put(f *Frame) { p.frames.Put(f) }

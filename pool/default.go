package pool

import "sync"

var (
	defaultOnce sync.Once
	defaultPool *FramePool
)

// Default returns the process-wide frame pool shared by all transports.
func Default() *FramePool {
	defaultOnce.Do(func() {
		defaultPool = NewFramePool()
	})
	return defaultPool
}

// CopyFrame is a shortcut for Default().Copy.
func CopyFrame(data []byte) *Frame {
	return Default().Copy(data)
}

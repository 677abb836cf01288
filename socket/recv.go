// File: socket/recv.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import (
	"time"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/message"
	"github.com/momentics/hioload-mq/poller"
)

// Recv waits for readability within the resolved timeout, then receives
// one logical message. An elapsed bound yields *api.TimeoutError and leaves
// the socket usable.
func (s *Socket) Recv(opts RecvOptions) (*message.Message, error) {
	if s.closed.Load() {
		return nil, closedError("recv")
	}
	flags := opts.flags()
	if flags&api.DontWait == 0 {
		if err := s.awaitReadable(s.resolveTimeout(opts)); err != nil {
			return nil, err
		}
	}

	var frames []api.Frame
	release := func() {
		for _, f := range frames {
			f.Release()
		}
	}
	for {
		f, err := s.native.RecvFrame(flags)
		if err != nil {
			release()
			return nil, api.NewTransportError("recv", err)
		}
		frames = append(frames, f)
		more, err := s.native.MorePending()
		if err != nil {
			release()
			return nil, api.NewTransportError("recv", err)
		}
		if !more {
			break
		}
	}
	s.metrics.FramesReceived(s.kind, len(frames))
	return message.FromFrames(frames), nil
}

// RecvString receives a message and returns its first frame as text.
func (s *Socket) RecvString(opts RecvOptions) (string, error) {
	m, err := s.Recv(opts)
	if err != nil {
		return "", err
	}
	return m.String(), nil
}

// RecvStrings receives a message and returns every frame as text.
func (s *Socket) RecvStrings(opts RecvOptions) ([]string, error) {
	m, err := s.Recv(opts)
	if err != nil {
		return nil, err
	}
	return m.Strings(), nil
}

func (s *Socket) resolveTimeout(opts RecvOptions) time.Duration {
	switch d := opts.Timeout; {
	case opts.Immediate:
		return 0
	case d < 0:
		return api.Infinite
	case d == 0:
		return s.recvTimeout
	default:
		return d
	}
}

// readiness returns the socket's private poller, registered once for its
// own readability.
func (s *Socket) readiness() *poller.Poller {
	s.pollOnce.Do(func() {
		s.poller = poller.New(s.tr, poller.WithMetrics(s.metrics))
		s.poller.Register(s, api.PollIn)
	})
	return s.poller
}

func (s *Socket) awaitReadable(timeout time.Duration) error {
	ready, err := s.readiness().Poll(timeout)
	if err != nil {
		return err
	}
	switch ready.Status {
	case poller.WaitReady:
		return nil
	case poller.WaitIdle:
		return closedError("recv")
	}
	s.metrics.RecvTimedOut(s.kind)
	return &api.TimeoutError{Op: "recv", After: timeout}
}

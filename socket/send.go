// File: socket/send.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import (
	"fmt"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/message"
)

// Send emits m and every frame chained after it as one message.
func (s *Socket) Send(m *message.Message, opts SendOptions) error {
	if m == nil {
		return fmt.Errorf("%w: nil message", api.ErrInvalidArgument)
	}
	return s.sendFrames(flatten(m), opts)
}

// SendMulti emits the chains of parts back to back as one message.
func (s *Socket) SendMulti(parts []*message.Message, opts SendOptions) error {
	var frames []*message.Message
	for _, p := range parts {
		if p == nil {
			return fmt.Errorf("%w: nil message part", api.ErrInvalidArgument)
		}
		frames = append(frames, flatten(p)...)
	}
	return s.sendFrames(frames, opts)
}

// SendBytes emits a single-frame message.
func (s *Socket) SendBytes(b []byte, opts SendOptions) error {
	return s.sendFrames([]*message.Message{message.New(b, nil)}, opts)
}

// SendString emits a single-frame text message.
func (s *Socket) SendString(str string, opts SendOptions) error {
	return s.sendFrames([]*message.Message{message.FromString(str, nil)}, opts)
}

// SendStrings emits one frame per string as a single message.
func (s *Socket) SendStrings(parts []string, opts SendOptions) error {
	frames := make([]*message.Message, len(parts))
	for i, p := range parts {
		frames[i] = message.FromString(p, nil)
	}
	return s.sendFrames(frames, opts)
}

func flatten(m *message.Message) []*message.Message {
	var out []*message.Message
	for n := range m.All() {
		out = append(out, n)
	}
	return out
}

// sendFrames sends frames 0..N-2 with SndMore forced and the last with the
// derived flags only. It stops at the first failure.
func (s *Socket) sendFrames(frames []*message.Message, opts SendOptions) error {
	if opts.Close {
		defer func() {
			for _, m := range frames {
				m.Release()
			}
		}()
	}
	if s.closed.Load() {
		return closedError("send")
	}
	if len(frames) == 0 {
		return fmt.Errorf("%w: empty message", api.ErrInvalidArgument)
	}

	flags := opts.flags()
	last := len(frames) - 1
	for i, m := range frames {
		f := flags
		if i < last {
			f |= api.SndMore
		}
		fr := m.Frame()
		err := s.native.SendFrame(fr, f)
		fr.Release()
		if err != nil {
			s.metrics.SendFailed(s.kind)
			return api.NewTransportError("send", err)
		}
		s.metrics.FrameSent(s.kind)
	}
	return nil
}

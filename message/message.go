// File: message/message.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package message models transport frames as owned byte payloads chained
// into logical multi-frame messages.

package message

import (
	"fmt"
	"iter"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/pool"
)

// Message is one frame of a logical message. A Message without a successor
// is the last frame. Each node exclusively owns its successor.
type Message struct {
	data []byte
	next *Message
}

// New builds a frame from payload. The payload is not copied.
func New(payload []byte, next *Message) *Message {
	return &Message{data: payload, next: next}
}

// FromString builds a frame holding s.
func FromString(s string, next *Message) *Message {
	return &Message{data: []byte(s), next: next}
}

// FromFrame copies the bytes out of a native frame and releases it. The
// multi-part marker of native frames is tracked by the socket, so the
// result never has a successor.
func FromFrame(f api.Frame) *Message {
	b := f.Bytes()
	data := make([]byte, len(b))
	copy(data, b)
	f.Release()
	return &Message{data: data}
}

// FromFrames builds a chain preserving order: frames[0] becomes the head.
// Every frame is released. An empty slice yields nil.
func FromFrames(frames []api.Frame) *Message {
	var head *Message
	for i := len(frames) - 1; i >= 0; i-- {
		m := FromFrame(frames[i])
		m.next = head
		head = m
	}
	return head
}

// From wraps v into a Message. An existing *Message is returned unchanged.
// Accepted inputs: *Message, []byte, string, api.Frame.
func From(v any) (*Message, error) {
	switch t := v.(type) {
	case *Message:
		if t == nil {
			return nil, fmt.Errorf("%w: nil message", api.ErrInvalidArgument)
		}
		return t, nil
	case []byte:
		return New(t, nil), nil
	case string:
		return FromString(t, nil), nil
	case api.Frame:
		return FromFrame(t), nil
	default:
		return nil, fmt.Errorf("%w: cannot build message from %T", api.ErrInvalidArgument, v)
	}
}

// Data returns the payload.
func (m *Message) Data() []byte { return m.data }

// Next returns the following frame, or nil for the last one.
func (m *Message) Next() *Message { return m.next }

// More reports whether another frame follows.
func (m *Message) More() bool { return m.next != nil }

// String returns the payload as text.
func (m *Message) String() string { return string(m.data) }

// Frame returns a new native frame with a private copy of the payload.
func (m *Message) Frame() api.Frame {
	return pool.CopyFrame(m.data)
}

// All yields every node from m to the end of the chain. The sequence can
// be ranged over any number of times.
func (m *Message) All() iter.Seq[*Message] {
	return func(yield func(*Message) bool) {
		for n := m; n != nil; n = n.next {
			if !yield(n) {
				return
			}
		}
	}
}

// Len returns the number of frames in the chain starting at m.
func (m *Message) Len() int {
	n := 0
	for range m.All() {
		n++
	}
	return n
}

// Strings returns every payload of the chain as text.
func (m *Message) Strings() []string {
	var out []string
	for n := range m.All() {
		out = append(out, n.String())
	}
	return out
}

// Release drops the payload and detaches the successor.
func (m *Message) Release() {
	m.data = nil
	m.next = nil
}

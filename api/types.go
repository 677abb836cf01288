// File: api/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Shared API-level type declarations and constants. Numeric values follow
// the libzmq ABI so they can be handed to a native binding unchanged.

package api

import (
	"strings"
	"time"
)

// SocketType enumerates messaging patterns a socket can take part in.
type SocketType int

const (
	Pair SocketType = iota
	Pub
	Sub
	Req
	Rep
	Dealer
	Router
	Pull
	Push
	XPub
	XSub
	Stream
)

func (t SocketType) String() string {
	switch t {
	case Pair:
		return "PAIR"
	case Pub:
		return "PUB"
	case Sub:
		return "SUB"
	case Req:
		return "REQ"
	case Rep:
		return "REP"
	case Dealer:
		return "DEALER"
	case Router:
		return "ROUTER"
	case Pull:
		return "PULL"
	case Push:
		return "PUSH"
	case XPub:
		return "XPUB"
	case XSub:
		return "XSUB"
	case Stream:
		return "STREAM"
	default:
		return "UNKNOWN"
	}
}

// ParseSocketType resolves a case-insensitive pattern name.
func ParseSocketType(name string) (SocketType, bool) {
	for t := Pair; t <= Stream; t++ {
		if strings.EqualFold(t.String(), name) {
			return t, true
		}
	}
	return 0, false
}

// Flags modify a single native send or receive.
type Flags int

const (
	// DontWait makes the native call fail with EAGAIN instead of blocking.
	DontWait Flags = 1
	// SndMore marks the frame as followed by more frames of the same message.
	SndMore Flags = 2
)

func (f Flags) String() string {
	var parts []string
	if f&DontWait != 0 {
		parts = append(parts, "DONTWAIT")
	}
	if f&SndMore != 0 {
		parts = append(parts, "SNDMORE")
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, "|")
}

// Event is a readiness interest or result bitmask.
type Event int

const (
	PollIn  Event = 1
	PollOut Event = 2
	PollErr Event = 4
)

func (e Event) String() string {
	var parts []string
	if e&PollIn != 0 {
		parts = append(parts, "IN")
	}
	if e&PollOut != 0 {
		parts = append(parts, "OUT")
	}
	if e&PollErr != 0 {
		parts = append(parts, "ERR")
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// Option names a native socket option.
type Option int

const (
	Identity    Option = 5
	Subscribe   Option = 6
	Unsubscribe Option = 7
	Linger      Option = 17
	SndHWM      Option = 23
	RcvHWM      Option = 24
)

func (o Option) String() string {
	switch o {
	case Identity:
		return "IDENTITY"
	case Subscribe:
		return "SUBSCRIBE"
	case Unsubscribe:
		return "UNSUBSCRIBE"
	case Linger:
		return "LINGER"
	case SndHWM:
		return "SNDHWM"
	case RcvHWM:
		return "RCVHWM"
	default:
		return "UNKNOWN"
	}
}

// Infinite requests an unbounded wait wherever a timeout is accepted.
const Infinite time.Duration = -1

// TimeoutMillis converts a wait bound to the millisecond form native
// multiplexers expect. Negative durations map to -1 (block forever),
// positive sub-millisecond remainders are rounded up.
func TimeoutMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	return int(ms)
}

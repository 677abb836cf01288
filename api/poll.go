// Package api
// Author: momentics
//
// Readiness polling contracts shared by the poller, sockets and reactor.

package api

// Pollable is any handle the poller can watch: a transport socket or a
// generic descriptor.
type Pollable interface {
	// PollItem returns a fresh item describing the handle; Events and
	// Revents are filled in by the poller.
	PollItem() PollItem

	// Closed reports whether the underlying handle has been closed.
	Closed() bool
}

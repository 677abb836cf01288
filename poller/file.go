// File: poller/file.go
// Author: momentics <momentics@gmail.com>
//
// Pollable adapters for plain descriptors.

package poller

import "github.com/momentics/hioload-mq/api"

// Descriptor is implemented by *os.File and similar handles.
type Descriptor interface {
	Fd() uintptr
}

// closedFd is what *os.File reports once closed.
const closedFd = ^uintptr(0)

// File adapts a descriptor-backed handle to api.Pollable. File values built
// from the same handle compare equal, so they address one registration.
type File struct {
	D Descriptor
}

// PollItem implements api.Pollable.
func (f File) PollItem() api.PollItem {
	return api.PollItem{Fd: f.D.Fd()}
}

// Closed implements api.Pollable.
func (f File) Closed() bool {
	return f.D.Fd() == closedFd
}

// FD is a raw descriptor owned elsewhere.
type FD uintptr

// PollItem implements api.Pollable.
func (fd FD) PollItem() api.PollItem {
	return api.PollItem{Fd: uintptr(fd)}
}

// Closed implements api.Pollable. Raw descriptors carry no close state.
func (fd FD) Closed() bool { return false }

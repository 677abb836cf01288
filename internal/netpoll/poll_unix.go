//go:build unix

// internal/netpoll/poll_unix.go
// Author: momentics <momentics@gmail.com>
//
// poll(2) based multiplexed wait over api.PollItem sets.

package netpoll

import (
	"time"

	"github.com/momentics/hioload-mq/api"
	"golang.org/x/sys/unix"
)

// probeSlice bounds a single poll(2) call when some socket interest cannot
// be expressed through its notification descriptor (write-only interest).
const probeSlice = 10 * time.Millisecond

// Wait blocks until at least one item is ready or timeout elapses, filling
// Revents. Negative timeouts block indefinitely. It returns the number of
// items with non-zero Revents.
func Wait(items []api.PollItem, timeout time.Duration) (int, error) {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	fds := make([]unix.PollFd, 0, len(items))
	slots := make([]int, 0, len(items))

	for {
		ready, err := probe(items)
		if err != nil {
			return 0, err
		}

		fds, slots = fds[:0], slots[:0]
		sliced := false
		for i := range items {
			it := &items[i]
			if it.Socket == nil {
				fds = append(fds, unix.PollFd{Fd: int32(it.Fd), Events: toUnix(it.Events)})
				slots = append(slots, i)
				continue
			}
			if it.Events&api.PollIn == 0 {
				sliced = true
				continue
			}
			fd, err := it.Socket.Fd()
			if err != nil {
				return 0, err
			}
			fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
			slots = append(slots, i)
		}

		wait := -1
		switch {
		case ready > 0:
			wait = 0
		case !deadline.IsZero():
			wait = api.TimeoutMillis(time.Until(deadline))
			if wait < 0 {
				wait = 0
			}
		}
		if sliced {
			if limit := api.TimeoutMillis(probeSlice); wait < 0 || wait > limit {
				wait = limit
			}
		}

		n, err := unix.Poll(fds, wait)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}

		if n > 0 {
			for k, pfd := range fds {
				it := &items[slots[k]]
				if it.Socket != nil || pfd.Revents == 0 {
					continue
				}
				if ev := fromUnix(pfd.Revents, it.Events); ev != 0 {
					it.Revents = ev
					ready++
				}
			}
		}
		if ready > 0 {
			return ready, nil
		}

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			// a notifier may have fired right at the deadline
			return probe(items)
		}
	}
}

// probe resets Revents and records current socket readiness.
func probe(items []api.PollItem) (int, error) {
	ready := 0
	for i := range items {
		it := &items[i]
		it.Revents = 0
		if it.Socket == nil {
			continue
		}
		ev, err := it.Socket.Events()
		if err != nil {
			return 0, err
		}
		if r := ev & it.Events; r != 0 {
			it.Revents = r
			ready++
		}
	}
	return ready, nil
}

func toUnix(ev api.Event) int16 {
	var out int16
	if ev&api.PollIn != 0 {
		out |= unix.POLLIN
	}
	if ev&api.PollOut != 0 {
		out |= unix.POLLOUT
	}
	return out
}

// fromUnix maps poll(2) results onto interest. Hang-up and error conditions
// report every requested direction as ready, so the holder learns about them
// from its next read or write.
func fromUnix(revents int16, interest api.Event) api.Event {
	var ev api.Event
	if revents&unix.POLLIN != 0 {
		ev |= api.PollIn
	}
	if revents&unix.POLLOUT != 0 {
		ev |= api.PollOut
	}
	if revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
		ev |= api.PollErr | interest
	}
	return ev & (interest | api.PollErr)
}

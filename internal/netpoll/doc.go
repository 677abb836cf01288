// Package netpoll
// Author: momentics <momentics@gmail.com>
//
// Native readiness multiplexing shared by every transport backend.
// Wait performs one multiplexed wait across transport sockets and raw
// descriptors: socket readiness is probed through NativeSocket.Events and
// woken through the socket's notification descriptor, raw descriptors go
// straight to poll(2). Signal is a level-triggered self-pipe used to make
// in-memory state visible to poll(2).
package netpoll

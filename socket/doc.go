// Package socket
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Endpoints over a pluggable messaging transport.
//
// A Socket owns exactly one native socket opened against a Context. Sends
// compose native flags from SendOptions and emit one native frame per
// Message in order, marking all but the last frame with SndMore. Receives
// wait on a private poller registered for the socket's own readability, so
// they honor a bounded timeout even though native receives either block or
// fail with EAGAIN.
//
// Socket is not safe for concurrent senders; serialize externally.
package socket

// Package pool
// Author: momentics <momentics@gmail.com>
//
// Native frame storage for hioload-mq.
// Frames handed to and received from transports are drawn from a shared
// sync.Pool and always hold their own copy of the payload, so no frame ever
// aliases memory owned by a Message or by the caller.
// See frame.go for the frame type and default.go for the shared pool.
package pool

// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-mq.

package api

import (
	"errors"
	"fmt"
	"regexp"
	"syscall"
	"time"
)

// Common errors used across the library.
var (
	ErrInvalidArgument  = fmt.Errorf("invalid argument")
	ErrOperationTimeout = fmt.Errorf("operation timeout")
	ErrSocketClosed     = fmt.Errorf("socket is closed")
	ErrReactorClosed    = fmt.Errorf("reactor is closed")
	ErrNotSupported     = fmt.Errorf("operation not supported")
)

// FailureCode is the result code native calls report on failure.
const FailureCode = -1

// TransportError reports a failed native transport call.
type TransportError struct {
	Op      string
	Code    int
	Errno   syscall.Errno
	Message string
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	s := fmt.Sprintf("[ERRNO %d, RC %d] %s", int(e.Errno), e.Code, e.Message)
	if e.Op == "" {
		return s
	}
	return e.Op + ": " + s
}

// Unwrap exposes the errno so callers can test errors.Is(err, syscall.EAGAIN).
func (e *TransportError) Unwrap() error {
	return e.Errno
}

// ErrorCode mirrors the native accessor name.
func (e *TransportError) ErrorCode() syscall.Errno { return e.Errno }

// ResultCode mirrors the native accessor name.
func (e *TransportError) ResultCode() int { return e.Code }

var nativeMsg = regexp.MustCompile(`msg\s+\[(.*?)\]`)

// NewTransportError converts an error returned by a native call. A nil
// error yields nil; an existing *TransportError is returned as is.
func NewTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	e := &TransportError{Op: op, Code: FailureCode, Errno: syscall.EIO}

	var errno syscall.Errno
	var carrier interface{ Errno() syscall.Errno }
	switch {
	case errors.As(err, &errno):
		e.Errno = errno
	case errors.As(err, &carrier):
		e.Errno = carrier.Errno()
	}

	e.Message = err.Error()
	if m := nativeMsg.FindStringSubmatch(e.Message); m != nil {
		e.Message = m[1]
	}
	return e
}

// IsErrno reports whether err carries the given errno.
func IsErrno(err error, errno syscall.Errno) bool {
	return errors.Is(err, errno)
}

// TimeoutError is returned when a bounded wait elapses without readiness.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: no message within %v", e.Op, e.After)
}

// Is matches ErrOperationTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrOperationTimeout
}

// Timeout satisfies net.Error-style checks.
func (e *TimeoutError) Timeout() bool { return true }

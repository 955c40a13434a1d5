// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// IsExpectedCloseError reports whether err is a normal connection
// termination: EOF, closed connection, broken pipe, or connection
// reset. These occur on the control socket when a client disconnects
// after its request (or mid-request) and the server's in-flight read
// or write fails as a result.
//
// Clients that full-close the connection rather than half-close via
// CloseWrite produce ECONNRESET and EPIPE instead of EOF on the
// surviving side. All four are expected and should not be logged as
// errors.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}

// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport

import (
	"errors"
	"io"
	"time"
)

// Transport is the byte channel a client exchanges RTU frames over: a
// serial port, a TCP socket carrying raw RTU frames, or an in-memory
// buffer.
//
// The client writes a whole request, calls Flush, then reads until its
// reply buffer is full. Read and Write must give up with an error once
// the configured timeout has elapsed; the client has no deadline of its
// own. A Transport is used by one client at a time.
type Transport interface {
	io.Reader
	io.Writer
	// Flush pushes any buffered request bytes onto the line.
	Flush() error
	// SetTimeout sets how long a single Read or Write may block.
	SetTimeout(timeout time.Duration) error
}

// ErrClosed is returned by transports used after Close.
var ErrClosed = errors.New("transport: closed")

// TimeoutError is returned when a read or write exceeds the transport timeout.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return "transport: " + e.Op + " timed out after " + e.After.String()
}

// Timeout reports true, matching net.Error.
func (e *TimeoutError) Timeout() bool { return true }

// IsTimeout reports whether err, or any error it wraps, is a timeout.
func IsTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

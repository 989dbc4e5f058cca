// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package memory implements an in-process transport.Transport. Replies
// come from an echo of the request, a queue of scripted frames or a
// responder function; it is meant for tests and dry runs.
package memory

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/ffutop/simple-modbus/transport"
)

// Responder computes the bytes a device would answer to a flushed request.
type Responder func(request []byte) []byte

// Transport is an in-memory transport.Transport.
type Transport struct {
	// Echo answers every flushed frame with itself.
	Echo bool
	// Responder, if set and Echo is false, answers flushed frames.
	Responder Responder

	// Failures to inject. WriteErr also applies to short writes.
	WriteErr   error
	ShortWrite bool
	FlushErr   error

	mu      sync.Mutex
	timeout time.Duration
	pending []byte
	sent    [][]byte
	replies [][]byte
	rx      bytes.Buffer
	closed  bool
}

// New returns a transport that answers from queued replies.
func New(replies ...[]byte) *Transport {
	t := &Transport{}
	t.QueueReply(replies...)
	return t
}

// NewEcho returns a transport that echoes each request back.
func NewEcho() *Transport {
	return &Transport{Echo: true}
}

// QueueReply appends replies, one consumed per flushed request.
func (t *Transport) QueueReply(replies ...[]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range replies {
		t.replies = append(t.replies, append([]byte(nil), r...))
	}
}

// Write buffers p until Flush.
func (t *Transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, transport.ErrClosed
	}
	if t.ShortWrite {
		n := len(p) / 2
		t.pending = append(t.pending, p[:n]...)
		err := t.WriteErr
		if err == nil {
			err = io.ErrShortWrite
		}
		return n, err
	}
	if t.WriteErr != nil {
		return 0, t.WriteErr
	}
	t.pending = append(t.pending, p...)
	return len(p), nil
}

// Flush delivers the buffered request and makes its answer readable.
func (t *Transport) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return transport.ErrClosed
	}
	if t.FlushErr != nil {
		return t.FlushErr
	}
	if len(t.pending) == 0 {
		return nil
	}
	frame := t.pending
	t.pending = nil
	t.sent = append(t.sent, frame)

	switch {
	case t.Echo:
		t.rx.Write(frame)
	case t.Responder != nil:
		t.rx.Write(t.Responder(append([]byte(nil), frame...)))
	case len(t.replies) > 0:
		t.rx.Write(t.replies[0])
		t.replies = t.replies[1:]
	}
	return nil
}

// Read returns buffered reply bytes, or a timeout error when none are left.
func (t *Transport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, transport.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if t.rx.Len() == 0 {
		return 0, &transport.TimeoutError{Op: "read", After: t.timeout}
	}
	return t.rx.Read(p)
}

// SetTimeout records the timeout; it only shows up in timeout errors.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Timeout returns the last timeout set.
func (t *Transport) Timeout() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeout
}

// Sent returns the flushed frames in order.
func (t *Transport) Sent() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.sent))
	copy(out, t.sent)
	return out
}

// Unread returns the number of reply bytes nobody has read yet.
func (t *Transport) Unread() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rx.Len()
}

// Close makes every later call fail with transport.ErrClosed.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

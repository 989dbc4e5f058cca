// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package rtuovertcp carries raw RTU frames, CRC included, over a TCP
// stream, as serial device servers do.
package rtuovertcp

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/ffutop/simple-modbus/transport"
)

const (
	tcpTimeout = 10 * time.Second
)

// Conn is a transport.Transport over TCP. It dials on first use and
// drops the connection after any I/O failure so the next exchange starts
// on a clean stream.
type Conn struct {
	Address string
	Timeout time.Duration

	mu      sync.Mutex
	conn    net.Conn
	pending bytes.Buffer
}

var _ transport.Transport = (*Conn)(nil)

// NewConn allocates a Conn for address ("host:port").
func NewConn(address string, timeout time.Duration) *Conn {
	if timeout <= 0 {
		timeout = tcpTimeout
	}
	return &Conn{
		Address: address,
		Timeout: timeout,
	}
}

// Write buffers b until Flush.
func (c *Conn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending.Write(b)
}

// Flush writes the buffered frame to the socket.
func (c *Conn) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending.Len() == 0 {
		return nil
	}
	defer c.pending.Reset()

	if err := c.connect(); err != nil {
		return fmt.Errorf("modbus: failed to connect to %s: %w", c.Address, err)
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.Timeout)); err != nil {
		c.close()
		return err
	}

	frame := c.pending.Bytes()
	slog.Debug("send to modbus slave", "address", c.Address, "request", hex.EncodeToString(frame))
	n, err := c.conn.Write(frame)
	if err != nil {
		c.close()
		return err
	}
	if n != len(frame) {
		c.close()
		return io.ErrShortWrite
	}
	return nil
}

// Read reads reply bytes, waiting at most Timeout.
func (c *Conn) Read(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(b) == 0 {
		return 0, nil
	}
	if c.conn == nil {
		return 0, transport.ErrClosed
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(c.Timeout)); err != nil {
		c.close()
		return 0, err
	}
	n, err := c.conn.Read(b)
	if n > 0 {
		slog.Debug("recv from modbus slave", "address", c.Address, "response", hex.EncodeToString(b[:n]))
	}
	if err != nil {
		// Late bytes of this reply would corrupt the next one.
		c.close()
	}
	return n, err
}

// SetTimeout sets the per-call read and write timeout.
func (c *Conn) SetTimeout(timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Timeout = timeout
	return nil
}

// Close closes the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.close()
	return nil
}

// connect ensures there is an active connection. Caller must hold the mutex.
func (c *Conn) connect() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("tcp", c.Address, c.Timeout)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

// close closes the connection and resets the state. Caller must hold the mutex.
func (c *Conn) close() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

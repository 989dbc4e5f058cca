// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package client implements a Modbus RTU master on top of a
// transport.Transport.
package client

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"time"

	"github.com/ffutop/simple-modbus/capture"
	"github.com/ffutop/simple-modbus/modbus"
	"github.com/ffutop/simple-modbus/modbus/rtu"
	"github.com/ffutop/simple-modbus/transport"
)

// Client runs one exchange at a time over its transport. It does no
// locking; callers sharing a Client must serialize access themselves.
type Client struct {
	Transport transport.Transport

	// Recorder, if set, receives every exchange that reached the wire.
	Recorder capture.Recorder
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	noReply bool
}

// New allocates a Client over t.
func New(t transport.Transport) *Client {
	return &Client{Transport: t}
}

// SetNoReply makes write operations return as soon as the request is
// flushed, for slaves that never acknowledge.
func (mb *Client) SetNoReply(enabled bool) {
	mb.noReply = enabled
}

// NoReply reports whether no-reply mode is enabled.
func (mb *Client) NoReply() bool {
	return mb.noReply
}

// SetTimeout sets the transport timeout for reads and writes.
func (mb *Client) SetTimeout(timeout time.Duration) error {
	if err := mb.Transport.SetTimeout(timeout); err != nil {
		return modbus.TransportError("set timeout", err)
	}
	return nil
}

func (mb *Client) logger() *slog.Logger {
	if mb.Logger != nil {
		return mb.Logger
	}
	return slog.Default()
}

// Execute performs one exchange. Read operations return the payload of
// the reply, write operations return nil and custom frames return the
// raw reply.
//
// ctx is only checked before the exchange starts; once the request is on
// the wire the transport timeout bounds the call.
func (mb *Client) Execute(ctx context.Context, op rtu.Operation) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame, err := rtu.Build(op)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	n, err := mb.exchange(frame)
	mb.record(start, frame, n, err)
	if err != nil {
		return nil, err
	}

	switch {
	case frame.Class == rtu.ClassWrite:
		return nil, nil
	case frame.Class == rtu.ClassCustom:
		if len(frame.Reply) == 0 {
			return nil, nil
		}
		return frame.Reply, nil
	default:
		return rtu.Extract(frame.Reply)
	}
}

// exchange sends the request and reads and validates the reply. It
// returns the number of reply bytes read.
func (mb *Client) exchange(frame *rtu.Frame) (int, error) {
	log := mb.logger()

	log.Debug("send to modbus slave", "request", hex.EncodeToString(frame.Request))
	n, err := mb.Transport.Write(frame.Request)
	if n != len(frame.Request) {
		if err == nil {
			err = io.ErrShortWrite
		}
		return 0, &modbus.Error{Kind: modbus.ErrTransport, Reason: modbus.ReasonShortWrite, Detail: "write", Err: err}
	}
	if err != nil {
		return 0, modbus.TransportError("write", err)
	}
	if err := mb.Transport.Flush(); err != nil {
		return 0, modbus.TransportError("flush", err)
	}

	if frame.Class == rtu.ClassWrite && mb.noReply {
		log.Debug("no-reply mode, skipping acknowledgment")
		return 0, nil
	}
	if len(frame.Reply) == 0 {
		return 0, nil
	}

	n, err = io.ReadFull(mb.Transport, frame.Reply)
	if err != nil {
		got := frame.Reply[:n]
		if exc, ok := rtu.DecodeException(got); ok {
			log.Debug("slave answered with an exception", "unit", got[0], "function", modbus.FunctionName(exc.FunctionCode), "exception", exc.ExceptionCode)
		}
		return n, modbus.TransportError("read", err)
	}
	log.Debug("recv from modbus slave", "response", hex.EncodeToString(frame.Reply))

	if err := rtu.Validate(frame.Request, frame.Reply); err != nil {
		return n, err
	}
	return n, nil
}

func (mb *Client) record(start time.Time, frame *rtu.Frame, n int, err error) {
	if mb.Recorder == nil {
		return
	}
	rec := capture.Record{
		Time:    start,
		Request: frame.Request,
		Reply:   frame.Reply[:n],
	}
	if err != nil {
		rec.Err = err.Error()
	}
	if rerr := mb.Recorder.Record(rec); rerr != nil {
		mb.logger().Warn("failed to record exchange", "err", rerr)
	}
}

// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by an exchange matches exactly one of
// them with errors.Is.
var (
	// ErrInvalidFrame reports a request that is malformed or oversized before any I/O.
	ErrInvalidFrame = errors.New("modbus: invalid frame")
	// ErrTransport reports a write, flush or read failure of the underlying transport.
	ErrTransport = errors.New("modbus: transport error")
	// ErrInvalidResponse reports a reply whose unit id or function code does not echo the request.
	ErrInvalidResponse = errors.New("modbus: invalid response")
	// ErrInvalidData reports a length, byte count or checksum problem.
	ErrInvalidData = errors.New("modbus: invalid data")
	// ErrProtocolException is reserved for Modbus exception replies.
	ErrProtocolException = errors.New("modbus: protocol exception")
)

// Reason narrows down which check produced an Error.
type Reason int

const (
	ReasonUnspecified Reason = iota
	ReasonSendBufferEmpty
	ReasonSendBufferTooBig
	ReasonQuantityOutOfRange
	ReasonShortWrite
	ReasonRecvBufferEmpty
	ReasonUnexpectedReplySize
	ReasonUnitIDMismatch
	ReasonFunctionCodeMismatch
	ReasonChecksumMismatch
	ReasonByteCountNotEven
	ReasonCoilsOutOfRange
)

func (r Reason) String() string {
	switch r {
	case ReasonSendBufferEmpty:
		return "send buffer empty"
	case ReasonSendBufferTooBig:
		return "send buffer too big"
	case ReasonQuantityOutOfRange:
		return "quantity out of range"
	case ReasonShortWrite:
		return "short write"
	case ReasonRecvBufferEmpty:
		return "receive buffer empty"
	case ReasonUnexpectedReplySize:
		return "unexpected reply size"
	case ReasonUnitIDMismatch:
		return "unit id mismatch"
	case ReasonFunctionCodeMismatch:
		return "function code mismatch"
	case ReasonChecksumMismatch:
		return "checksum mismatch"
	case ReasonByteCountNotEven:
		return "byte count not even"
	case ReasonCoilsOutOfRange:
		return "coils out of range"
	default:
		return "unspecified"
	}
}

// Error is the concrete error type of this module.
type Error struct {
	Kind   error
	Reason Reason
	Detail string
	// Err is the transport's native error, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Reason != ReasonUnspecified {
		msg += ": " + e.Reason.String()
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the error kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, reason Reason, format string, args ...interface{}) *Error {
	e := &Error{Kind: kind, Reason: reason}
	if format != "" {
		e.Detail = fmt.Sprintf(format, args...)
	}
	return e
}

// InvalidFrame returns an ErrInvalidFrame error.
func InvalidFrame(reason Reason, format string, args ...interface{}) error {
	return newError(ErrInvalidFrame, reason, format, args...)
}

// InvalidData returns an ErrInvalidData error.
func InvalidData(reason Reason, format string, args ...interface{}) error {
	return newError(ErrInvalidData, reason, format, args...)
}

// InvalidResponse returns an ErrInvalidResponse error.
func InvalidResponse(reason Reason, format string, args ...interface{}) error {
	return newError(ErrInvalidResponse, reason, format, args...)
}

// TransportError wraps err, the native error of a transport step (write,
// flush, read), as an ErrTransport error.
func TransportError(step string, err error) error {
	return &Error{Kind: ErrTransport, Detail: step, Err: err}
}

// ExceptionError describes a Modbus exception reply.
type ExceptionError struct {
	FunctionCode  byte
	ExceptionCode ExceptionCode
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus: exception '%v' (%s), function '%v'", byte(e.ExceptionCode), e.ExceptionCode, e.FunctionCode&^ExceptionFlag)
}

func (e *ExceptionError) Is(target error) bool {
	return target == ErrProtocolException
}

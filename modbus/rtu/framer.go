// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"encoding/binary"
	"fmt"

	"github.com/ffutop/simple-modbus/modbus"
	"github.com/ffutop/simple-modbus/modbus/crc"
)

// Frame is one request and the zeroed buffer its reply is read into.
// It lives for a single exchange.
type Frame struct {
	Class   Class
	Request []byte
	Reply   []byte
}

// Build encodes op as an RTU frame:
//
//	Unit ID         : 1 byte
//	Function        : 1 byte
//	Address         : 2 bytes
//	Data            : function specific
//	CRC             : 2 bytes
//
// The reply buffer is sized to exactly the reply the slave is expected to
// send, as computed by ExpectedReplyLength. Custom frames bring their own
// reply length.
func Build(op Operation) (*Frame, error) {
	if op == nil {
		return nil, modbus.InvalidFrame(modbus.ReasonSendBufferEmpty, "nil operation")
	}
	request, err := op.encode()
	if err != nil {
		return nil, err
	}
	if len(request) == 0 {
		return nil, modbus.InvalidFrame(modbus.ReasonSendBufferEmpty, "")
	}
	if len(request) > MaxSize {
		return nil, modbus.InvalidFrame(modbus.ReasonSendBufferTooBig, "length of request '%v' must not be bigger than '%v'", len(request), MaxSize)
	}

	var replyLength int
	switch custom := op.(type) {
	case CustomFrame:
		replyLength = custom.ReplyLength
	case *CustomFrame:
		replyLength = custom.ReplyLength
	default:
		if replyLength, err = ExpectedReplyLength(request); err != nil {
			return nil, modbus.InvalidFrame(modbus.ReasonUnexpectedReplySize, "%v", err)
		}
	}
	return &Frame{
		Class:   op.Class(),
		Request: request,
		Reply:   make([]byte, replyLength),
	}, nil
}

// AppendCRC appends the Modbus CRC of b to b, low byte first.
func AppendCRC(b []byte) []byte {
	return binary.BigEndian.AppendUint16(b, crc.CRC16(b))
}

// ExpectedReplyLength returns the expected length of the reply to an
// encoded request.
func ExpectedReplyLength(request []byte) (int, error) {
	if len(request) < 6 {
		return 0, fmt.Errorf("modbus: request length '%v' too short to predict a reply", len(request))
	}
	switch request[1] {
	case modbus.FuncCodeReadCoils,
		modbus.FuncCodeReadDiscreteInputs:
		count := int(binary.BigEndian.Uint16(request[4:]))
		return EnvelopeSize + bitBytes(count), nil
	case modbus.FuncCodeReadHoldingRegisters,
		modbus.FuncCodeReadInputRegisters:
		count := int(binary.BigEndian.Uint16(request[4:]))
		return EnvelopeSize + 2*count, nil
	case modbus.FuncCodeWriteSingleCoil,
		modbus.FuncCodeWriteSingleRegister,
		modbus.FuncCodeWriteMultipleCoils,
		modbus.FuncCodeWriteMultipleRegisters:
		return WriteReplySize, nil
	default:
		return 0, fmt.Errorf("modbus: reply length of function code 0x%02X is undetermined", request[1])
	}
}

// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"encoding/binary"

	"github.com/ffutop/simple-modbus/modbus"
	"github.com/ffutop/simple-modbus/modbus/crc"
)

// Validate verifies that reply answers request: length, unit id and
// function code echo, then CRC.
func Validate(request, reply []byte) error {
	if len(request) < MinSize || len(reply) < MinSize {
		return modbus.InvalidData(modbus.ReasonUnexpectedReplySize, "request length '%v', response length '%v', minimum '%v'", len(request), len(reply), MinSize)
	}
	if reply[0] != request[0] {
		return modbus.InvalidResponse(modbus.ReasonUnitIDMismatch, "response unit id '%v' does not match request '%v'", reply[0], request[0])
	}
	if reply[1] != request[1] {
		return modbus.InvalidResponse(modbus.ReasonFunctionCodeMismatch, "response function code '%v' does not match request '%v'", reply[1], request[1])
	}
	length := len(reply)
	checksum := binary.BigEndian.Uint16(reply[length-crcSize:])
	if expected := crc.CRC16(reply[:length-crcSize]); checksum != expected {
		return modbus.InvalidData(modbus.ReasonChecksumMismatch, "response crc '%#04x' does not match expected '%#04x'", checksum, expected)
	}
	return nil
}

// Extract returns the payload of a read reply, stripping unit id,
// function code, byte count and CRC.
func Extract(reply []byte) ([]byte, error) {
	length := len(reply)
	if length <= EnvelopeSize {
		return nil, modbus.InvalidData(modbus.ReasonRecvBufferEmpty, "response length '%v' leaves no payload", length)
	}
	count := int(reply[2])
	if EnvelopeSize+count != length {
		return nil, modbus.InvalidData(modbus.ReasonUnexpectedReplySize, "response byte count '%v' does not match length '%v'", count, length)
	}
	return reply[3 : 3+count], nil
}

// DecodeException recognizes a well formed exception reply. The client
// does not act on it; it is used to annotate failed exchanges in logs.
func DecodeException(reply []byte) (*modbus.ExceptionError, bool) {
	if len(reply) != ExceptionSize || reply[1]&modbus.ExceptionFlag == 0 {
		return nil, false
	}
	if binary.BigEndian.Uint16(reply[3:]) != crc.CRC16(reply[:3]) {
		return nil, false
	}
	return &modbus.ExceptionError{
		FunctionCode:  reply[1],
		ExceptionCode: modbus.ExceptionCode(reply[2]),
	}, true
}

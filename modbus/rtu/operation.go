// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"encoding/binary"

	"github.com/ffutop/simple-modbus/modbus"
)

// Class tells the client what a successful exchange returns.
type Class int

const (
	// ClassRead replies carry a byte count prefixed payload.
	ClassRead Class = iota
	// ClassWrite replies are an acknowledgment without payload.
	ClassWrite
	// ClassCustom replies are returned raw.
	ClassCustom
)

// Operation is a request the client can put on the wire. The set of
// operations is closed; see the types below.
type Operation interface {
	Class() Class
	encode() (request []byte, err error)
}

// ReadCoils reads Quantity coils starting at Address.
type ReadCoils struct {
	UnitID   byte
	Address  uint16
	Quantity uint16
}

// ReadDiscreteInputs reads Quantity discrete inputs starting at Address.
type ReadDiscreteInputs struct {
	UnitID   byte
	Address  uint16
	Quantity uint16
}

// ReadHoldingRegisters reads Quantity holding registers starting at Address.
type ReadHoldingRegisters struct {
	UnitID   byte
	Address  uint16
	Quantity uint16
}

// ReadInputRegisters reads Quantity input registers starting at Address.
type ReadInputRegisters struct {
	UnitID   byte
	Address  uint16
	Quantity uint16
}

// WriteSingleCoil forces one coil.
type WriteSingleCoil struct {
	UnitID  byte
	Address uint16
	Value   modbus.Coil
}

// WriteSingleRegister writes one holding register.
type WriteSingleRegister struct {
	UnitID  byte
	Address uint16
	Value   uint16
}

// WriteMultipleCoils forces len(Values) coils starting at Address.
type WriteMultipleCoils struct {
	UnitID  byte
	Address uint16
	Values  []modbus.Coil
}

// WriteMultipleRegisters writes len(Values) holding registers starting at Address.
type WriteMultipleRegisters struct {
	UnitID  byte
	Address uint16
	Values  []uint16
}

// CustomFrame sends Request verbatim and expects ReplyLength bytes back.
// Request must already carry its CRC, see AppendCRC. A ReplyLength of
// zero means no reply is read.
type CustomFrame struct {
	Request     []byte
	ReplyLength int
}

func (ReadCoils) Class() Class              { return ClassRead }
func (ReadDiscreteInputs) Class() Class     { return ClassRead }
func (ReadHoldingRegisters) Class() Class   { return ClassRead }
func (ReadInputRegisters) Class() Class     { return ClassRead }
func (WriteSingleCoil) Class() Class        { return ClassWrite }
func (WriteSingleRegister) Class() Class    { return ClassWrite }
func (WriteMultipleCoils) Class() Class     { return ClassWrite }
func (WriteMultipleRegisters) Class() Class { return ClassWrite }
func (CustomFrame) Class() Class            { return ClassCustom }

func (op ReadCoils) encode() ([]byte, error) {
	return encodeRead(op.UnitID, modbus.FuncCodeReadCoils, op.Address, op.Quantity, MaxReadBits)
}

func (op ReadDiscreteInputs) encode() ([]byte, error) {
	return encodeRead(op.UnitID, modbus.FuncCodeReadDiscreteInputs, op.Address, op.Quantity, MaxReadBits)
}

func (op ReadHoldingRegisters) encode() ([]byte, error) {
	return encodeRead(op.UnitID, modbus.FuncCodeReadHoldingRegisters, op.Address, op.Quantity, MaxReadRegisters)
}

func (op ReadInputRegisters) encode() ([]byte, error) {
	return encodeRead(op.UnitID, modbus.FuncCodeReadInputRegisters, op.Address, op.Quantity, MaxReadRegisters)
}

func (op WriteSingleCoil) encode() ([]byte, error) {
	return encodeWrite(op.UnitID, modbus.FuncCodeWriteSingleCoil, op.Address, op.Value.Code()), nil
}

func (op WriteSingleRegister) encode() ([]byte, error) {
	return encodeWrite(op.UnitID, modbus.FuncCodeWriteSingleRegister, op.Address, op.Value), nil
}

func (op WriteMultipleCoils) encode() ([]byte, error) {
	count := len(op.Values)
	if count == 0 || count > MaxWriteBits {
		return nil, modbus.InvalidFrame(modbus.ReasonQuantityOutOfRange, "%d coils, want 1..%d", count, MaxWriteBits)
	}
	return encodeWriteMultiple(op.UnitID, modbus.FuncCodeWriteMultipleCoils, op.Address, count, modbus.PackCoils(op.Values)), nil
}

func (op WriteMultipleRegisters) encode() ([]byte, error) {
	count := len(op.Values)
	if count == 0 || count > MaxWriteRegisters {
		return nil, modbus.InvalidFrame(modbus.ReasonQuantityOutOfRange, "%d registers, want 1..%d", count, MaxWriteRegisters)
	}
	return encodeWriteMultiple(op.UnitID, modbus.FuncCodeWriteMultipleRegisters, op.Address, count, modbus.UnpackWords(op.Values)), nil
}

func (op CustomFrame) encode() ([]byte, error) {
	if op.ReplyLength < 0 || op.ReplyLength > MaxSize || (op.ReplyLength > 0 && op.ReplyLength < MinSize) {
		return nil, modbus.InvalidFrame(modbus.ReasonUnexpectedReplySize, "reply length %d", op.ReplyLength)
	}
	request := make([]byte, len(op.Request))
	copy(request, op.Request)
	return request, nil
}

func bitBytes(count int) int {
	return (count + 7) / 8
}

// header starts a request: unit id, function code, address (big-endian).
func header(unitID, functionCode byte, address uint16, size int) []byte {
	b := make([]byte, 0, size)
	b = append(b, unitID, functionCode)
	return binary.BigEndian.AppendUint16(b, address)
}

func encodeRead(unitID, functionCode byte, address, quantity, max uint16) ([]byte, error) {
	if quantity == 0 || quantity > max {
		return nil, modbus.InvalidFrame(modbus.ReasonQuantityOutOfRange, "quantity %d, want 1..%d", quantity, max)
	}
	b := header(unitID, functionCode, address, 8)
	b = binary.BigEndian.AppendUint16(b, quantity)
	return AppendCRC(b), nil
}

func encodeWrite(unitID, functionCode byte, address, value uint16) []byte {
	b := header(unitID, functionCode, address, 8)
	b = binary.BigEndian.AppendUint16(b, value)
	return AppendCRC(b)
}

//	Unit ID         : 1 byte
//	Function        : 1 byte
//	Address         : 2 bytes
//	Quantity        : 2 bytes
//	Byte count      : 1 byte
//	Values          : byte count bytes
//	CRC             : 2 bytes
func encodeWriteMultiple(unitID, functionCode byte, address uint16, quantity int, values []byte) []byte {
	b := header(unitID, functionCode, address, 9+len(values))
	b = binary.BigEndian.AppendUint16(b, uint16(quantity))
	b = append(b, byte(len(values)))
	b = append(b, values...)
	return AppendCRC(b)
}

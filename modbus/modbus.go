// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

/*
Package modbus holds the protocol vocabulary shared by the RTU framer and
the client: function codes, exception codes, the error taxonomy and the
register/coil value codec.
*/
package modbus

import "fmt"

const (
	// FuncCodeReadCoils for bit wise access
	FuncCodeReadCoils = 0x01
	// FuncCodeReadDiscreteInputs for bit wise access
	FuncCodeReadDiscreteInputs = 0x02
	// FuncCodeReadHoldingRegisters 16-bit wise access
	FuncCodeReadHoldingRegisters = 0x03
	// FuncCodeReadInputRegisters 16-bit wise access
	FuncCodeReadInputRegisters = 0x04
	// FuncCodeWriteSingleCoil for bit wise access
	FuncCodeWriteSingleCoil = 0x05
	// FuncCodeWriteSingleRegister 16-bit wise access
	FuncCodeWriteSingleRegister = 0x06
	// FuncCodeWriteMultipleCoils for bit wise access
	FuncCodeWriteMultipleCoils = 0x0F
	// FuncCodeWriteMultipleRegisters 16-bit wise access
	FuncCodeWriteMultipleRegisters = 0x10

	// ExceptionFlag is set in the function code of an exception reply.
	ExceptionFlag = 0x80
)

// ExceptionCode is the one byte reason carried by a Modbus exception reply.
type ExceptionCode byte

const (
	ExceptionCodeIllegalFunction         ExceptionCode = 0x01
	ExceptionCodeIllegalDataAddress      ExceptionCode = 0x02
	ExceptionCodeIllegalDataValue        ExceptionCode = 0x03
	ExceptionCodeServerDeviceFailure     ExceptionCode = 0x04
	ExceptionCodeAcknowledge             ExceptionCode = 0x05
	ExceptionCodeServerDeviceBusy        ExceptionCode = 0x06
	ExceptionCodeNegativeAcknowledge     ExceptionCode = 0x07
	ExceptionCodeMemoryParityError       ExceptionCode = 0x08
	ExceptionCodeNotDefined              ExceptionCode = 0x09
	ExceptionCodeGatewayPathUnavailable  ExceptionCode = 0x0A
	ExceptionCodeGatewayTargetNoResponse ExceptionCode = 0x0B
)

func (c ExceptionCode) String() string {
	switch c {
	case ExceptionCodeIllegalFunction:
		return "illegal function"
	case ExceptionCodeIllegalDataAddress:
		return "illegal data address"
	case ExceptionCodeIllegalDataValue:
		return "illegal data value"
	case ExceptionCodeServerDeviceFailure:
		return "server device failure"
	case ExceptionCodeAcknowledge:
		return "acknowledge"
	case ExceptionCodeServerDeviceBusy:
		return "server device busy"
	case ExceptionCodeNegativeAcknowledge:
		return "negative acknowledge"
	case ExceptionCodeMemoryParityError:
		return "memory parity error"
	case ExceptionCodeNotDefined:
		return "not defined"
	case ExceptionCodeGatewayPathUnavailable:
		return "gateway path unavailable"
	case ExceptionCodeGatewayTargetNoResponse:
		return "gateway target device failed to respond"
	default:
		return fmt.Sprintf("unknown exception 0x%02X", byte(c))
	}
}

// FunctionName returns a readable name for the function codes this
// package knows about.
func FunctionName(code byte) string {
	switch code &^ ExceptionFlag {
	case FuncCodeReadCoils:
		return "read coils"
	case FuncCodeReadDiscreteInputs:
		return "read discrete inputs"
	case FuncCodeReadHoldingRegisters:
		return "read holding registers"
	case FuncCodeReadInputRegisters:
		return "read input registers"
	case FuncCodeWriteSingleCoil:
		return "write single coil"
	case FuncCodeWriteSingleRegister:
		return "write single register"
	case FuncCodeWriteMultipleCoils:
		return "write multiple coils"
	case FuncCodeWriteMultipleRegisters:
		return "write multiple registers"
	default:
		return fmt.Sprintf("function 0x%02X", code&^ExceptionFlag)
	}
}

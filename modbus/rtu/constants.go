// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

const (
	// MinSize is the shortest frame the validator accepts: unit id,
	// function code and at least one more byte.
	MinSize = 3
	// MaxSize is the RTU-over-serial packet ceiling.
	MaxSize = 260

	// ExceptionSize is unit id, function code, exception code and CRC.
	ExceptionSize = 5
	// EnvelopeSize is unit id, function code, byte count and CRC around
	// a read reply payload.
	EnvelopeSize = 5
	// WriteReplySize is the echoed acknowledgment of every write.
	WriteReplySize = 8

	crcSize = 2
)

// Quantity limits from the Modbus application protocol. They keep every
// byte count field within one byte.
const (
	MaxReadBits       = 2000
	MaxReadRegisters  = 125
	MaxWriteBits      = 1968
	MaxWriteRegisters = 123
)

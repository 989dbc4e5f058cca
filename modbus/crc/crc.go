// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package crc implements the Modbus RTU CRC-16 (polynomial 0xA001,
// initial value 0xFFFF).
package crc

import "github.com/sigurn/crc16"

const (
	initial    = 0xFFFF
	polynomial = 0xA001
)

var table = crc16.MakeTable(crc16.CRC16_MODBUS)

// CRC is a streaming Modbus CRC-16 register.
// The zero value is not ready for use, call Reset first.
type CRC struct {
	value uint16
}

// Reset loads the register with its initial value.
func (c *CRC) Reset() *CRC {
	c.value = initial
	return c
}

// PushBytes shifts data through the register, eight bits per byte.
func (c *CRC) PushBytes(data []byte) *CRC {
	for _, b := range data {
		c.value ^= uint16(b)
		for i := 0; i < 8; i++ {
			odd := c.value&0x0001 != 0
			c.value >>= 1
			if odd {
				c.value ^= polynomial
			}
		}
	}
	return c
}

// Value returns the register content. The low byte is transmitted first.
func (c *CRC) Value() uint16 {
	return c.value
}

// Checksum returns the Modbus CRC of data in the same form as Value.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, table)
}

// CRC16 returns the byte-swapped checksum of data. Writing the result
// big-endian puts the CRC on the wire in Modbus order (low byte first).
func CRC16(data []byte) uint16 {
	sum := Checksum(data)
	return sum<<8 | sum>>8
}

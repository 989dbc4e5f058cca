// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "encoding/binary"

// PackWords groups big-endian byte pairs into register words.
func PackWords(data []byte) ([]uint16, error) {
	if len(data)%2 != 0 {
		return nil, InvalidData(ReasonByteCountNotEven, "got %d bytes", len(data))
	}
	words := make([]uint16, len(data)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return words, nil
}

// UnpackWords writes each word high byte first.
func UnpackWords(words []uint16) []byte {
	data := make([]byte, 2*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint16(data[2*i:], w)
	}
	return data
}

// PackCoils packs coils 8 per byte, least significant bit first.
func PackCoils(coils []Coil) []byte {
	data := make([]byte, (len(coils)+7)/8)
	for i, c := range coils {
		if c == On {
			data[i/8] |= 1 << uint(i%8)
		}
	}
	return data
}

// UnpackCoils reads count coils from data using the PackCoils bit order.
func UnpackCoils(data []byte, count int) ([]Coil, error) {
	if count < 0 || len(data) < (count+7)/8 {
		return nil, InvalidData(ReasonCoilsOutOfRange, "%d coils need %d bytes, got %d", count, (count+7)/8, len(data))
	}
	coils := make([]Coil, count)
	for i := range coils {
		if data[i/8]&(1<<uint(i%8)) != 0 {
			coils[i] = On
		}
	}
	return coils, nil
}

// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package capture

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ffutop/simple-modbus/modbus/rtu"
)

// On-disk records use fixed size slots, little-endian:
//
//	Time (unix ns)  : 8 bytes
//	Request length  : 2 bytes
//	Reply length    : 2 bytes
//	Error length    : 2 bytes
//	Request         : 260 bytes
//	Reply           : 260 bytes
//	Error text      : remainder, truncated
const (
	slotSize   = 768
	slotHeader = 14
	maxFrame   = rtu.MaxSize
	maxErr     = slotSize - slotHeader - 2*maxFrame

	offsetRequest = slotHeader
	offsetReply   = offsetRequest + maxFrame
	offsetErr     = offsetReply + maxFrame
)

// encodeSlot writes rec into dst, which must be slotSize bytes long.
// Oversized fields are truncated.
func encodeSlot(dst []byte, rec Record) {
	clear(dst[:slotSize])

	req := truncate(rec.Request, maxFrame)
	reply := truncate(rec.Reply, maxFrame)
	errText := truncate([]byte(rec.Err), maxErr)

	binary.LittleEndian.PutUint64(dst[0:], uint64(rec.Time.UnixNano()))
	binary.LittleEndian.PutUint16(dst[8:], uint16(len(req)))
	binary.LittleEndian.PutUint16(dst[10:], uint16(len(reply)))
	binary.LittleEndian.PutUint16(dst[12:], uint16(len(errText)))
	copy(dst[offsetRequest:], req)
	copy(dst[offsetReply:], reply)
	copy(dst[offsetErr:], errText)
}

// decodeSlot reads a record from src; the result does not alias src.
func decodeSlot(src []byte) (Record, error) {
	if len(src) < slotSize {
		return Record{}, fmt.Errorf("capture slot is %d bytes, want %d", len(src), slotSize)
	}
	reqLen := int(binary.LittleEndian.Uint16(src[8:]))
	replyLen := int(binary.LittleEndian.Uint16(src[10:]))
	errLen := int(binary.LittleEndian.Uint16(src[12:]))
	if reqLen > maxFrame || replyLen > maxFrame || errLen > maxErr {
		return Record{}, fmt.Errorf("corrupt capture slot: lengths %d/%d/%d", reqLen, replyLen, errLen)
	}

	rec := Record{
		Time: time.Unix(0, int64(binary.LittleEndian.Uint64(src[0:]))),
		Err:  string(src[offsetErr : offsetErr+errLen]),
	}
	if reqLen > 0 {
		rec.Request = append([]byte(nil), src[offsetRequest:offsetRequest+reqLen]...)
	}
	if replyLen > 0 {
		rec.Reply = append([]byte(nil), src[offsetReply:offsetReply+replyLen]...)
	}
	return rec, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

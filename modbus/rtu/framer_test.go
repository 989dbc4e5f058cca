// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ffutop/simple-modbus/modbus"
	"github.com/ffutop/simple-modbus/modbus/crc"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name      string
		op        Operation
		request   []byte
		replySize int
		class     Class
	}{
		{"ReadHoldingRegisters", ReadHoldingRegisters{UnitID: 1, Address: 0x1122, Quantity: 2},
			[]byte{0x01, 0x03, 0x11, 0x22, 0x00, 0x02, 0x61, 0x3D}, 9, ClassRead},
		{"ReadInputRegisters", ReadInputRegisters{UnitID: 1, Address: 0x0008, Quantity: 1},
			[]byte{0x01, 0x04, 0x00, 0x08, 0x00, 0x01, 0xB0, 0x08}, 7, ClassRead},
		{"ReadCoils", ReadCoils{UnitID: 1, Address: 0x0013, Quantity: 0x25},
			[]byte{0x01, 0x01, 0x00, 0x13, 0x00, 0x25, 0x0C, 0x14}, 10, ClassRead},
		{"ReadDiscreteInputs", ReadDiscreteInputs{UnitID: 1, Address: 0x00C4, Quantity: 0x16},
			[]byte{0x01, 0x02, 0x00, 0xC4, 0x00, 0x16, 0xB8, 0x39}, 8, ClassRead},
		{"WriteSingleRegister", WriteSingleRegister{UnitID: 15, Address: 0x0000, Value: 0x0001},
			[]byte{0x0F, 0x06, 0x00, 0x00, 0x00, 0x01, 0x49, 0x24}, 8, ClassWrite},
		{"WriteSingleCoil", WriteSingleCoil{UnitID: 1, Address: 0x00AC, Value: modbus.On},
			[]byte{0x01, 0x05, 0x00, 0xAC, 0xFF, 0x00, 0x4C, 0x1B}, 8, ClassWrite},
		{"WriteMultipleRegisters", WriteMultipleRegisters{UnitID: 1, Address: 0x0001, Values: []uint16{0x000A, 0x0102}},
			[]byte{0x01, 0x10, 0x00, 0x01, 0x00, 0x02, 0x04, 0x00, 0x0A, 0x01, 0x02, 0x92, 0x30}, 8, ClassWrite},
		{"WriteMultipleCoils", WriteMultipleCoils{UnitID: 1, Address: 0x0013, Values: []modbus.Coil{
			modbus.On, modbus.Off, modbus.On, modbus.On, modbus.Off, modbus.Off, modbus.On, modbus.On, modbus.On, modbus.Off}},
			[]byte{0x01, 0x0F, 0x00, 0x13, 0x00, 0x0A, 0x02, 0xCD, 0x01, 0x72, 0xCB}, 8, ClassWrite},
		{"CustomFrame", CustomFrame{Request: []byte{0x01, 0x41, 0x00, 0x10, 0x50}, ReplyLength: 6},
			[]byte{0x01, 0x41, 0x00, 0x10, 0x50}, 6, ClassCustom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Build(tt.op)
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			if !bytes.Equal(frame.Request, tt.request) {
				t.Errorf("Request mismatch.\nWant: % X\nGot:  % X", tt.request, frame.Request)
			}
			if len(frame.Reply) != tt.replySize {
				t.Errorf("Reply buffer length = %d, want %d", len(frame.Reply), tt.replySize)
			}
			if !bytes.Equal(frame.Reply, make([]byte, tt.replySize)) {
				t.Errorf("Reply buffer not zeroed: % X", frame.Reply)
			}
			if frame.Class != tt.class {
				t.Errorf("Class = %v, want %v", frame.Class, tt.class)
			}
		})
	}
}

func TestBuildEndsInValidCRC(t *testing.T) {
	frame, err := Build(ReadHoldingRegisters{UnitID: 1, Address: 0x1122, Quantity: 2})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(frame.Request) != 8 {
		t.Fatalf("request length = %d, want 8", len(frame.Request))
	}
	var c crc.CRC
	c.Reset().PushBytes(frame.Request[:6])
	sum := c.Value()
	if frame.Request[6] != byte(sum) || frame.Request[7] != byte(sum>>8) {
		t.Errorf("CRC bytes % X, want low byte first of %#04x", frame.Request[6:], sum)
	}
}

func TestBuildInvalid(t *testing.T) {
	tests := []struct {
		name   string
		op     Operation
		reason modbus.Reason
	}{
		{"Nil", nil, modbus.ReasonSendBufferEmpty},
		{"EmptyWriteMultipleRegisters", WriteMultipleRegisters{UnitID: 1, Address: 0x10}, modbus.ReasonQuantityOutOfRange},
		{"EmptyWriteMultipleCoils", WriteMultipleCoils{UnitID: 1}, modbus.ReasonQuantityOutOfRange},
		{"TooManyRegisters", WriteMultipleRegisters{UnitID: 1, Values: make([]uint16, MaxWriteRegisters+1)}, modbus.ReasonQuantityOutOfRange},
		{"TooManyCoils", WriteMultipleCoils{UnitID: 1, Values: make([]modbus.Coil, MaxWriteBits+1)}, modbus.ReasonQuantityOutOfRange},
		{"ZeroQuantity", ReadHoldingRegisters{UnitID: 1, Quantity: 0}, modbus.ReasonQuantityOutOfRange},
		{"ReadTooManyRegisters", ReadInputRegisters{UnitID: 1, Quantity: MaxReadRegisters + 1}, modbus.ReasonQuantityOutOfRange},
		{"ReadTooManyCoils", ReadCoils{UnitID: 1, Quantity: MaxReadBits + 1}, modbus.ReasonQuantityOutOfRange},
		{"EmptyCustom", CustomFrame{ReplyLength: 5}, modbus.ReasonSendBufferEmpty},
		{"OversizedCustom", CustomFrame{Request: make([]byte, MaxSize+1), ReplyLength: 5}, modbus.ReasonSendBufferTooBig},
		{"NegativeCustomReply", CustomFrame{Request: []byte{1, 2, 3}, ReplyLength: -1}, modbus.ReasonUnexpectedReplySize},
		{"ShortCustomReply", CustomFrame{Request: []byte{1, 2, 3}, ReplyLength: 2}, modbus.ReasonUnexpectedReplySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Build(tt.op)
			if frame != nil {
				t.Errorf("expected no frame, got % X", frame.Request)
			}
			if !errors.Is(err, modbus.ErrInvalidFrame) {
				t.Fatalf("error = %v, want ErrInvalidFrame", err)
			}
			var merr *modbus.Error
			if !errors.As(err, &merr) || merr.Reason != tt.reason {
				t.Errorf("reason = %v, want %v", err, tt.reason)
			}
		})
	}
}

func TestBuildLimits(t *testing.T) {
	frame, err := Build(WriteMultipleRegisters{UnitID: 1, Values: make([]uint16, MaxWriteRegisters)})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(frame.Request) != 9+2*MaxWriteRegisters {
		t.Errorf("request length = %d", len(frame.Request))
	}
	frame, err = Build(ReadHoldingRegisters{UnitID: 1, Quantity: MaxReadRegisters})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(frame.Reply) != EnvelopeSize+2*MaxReadRegisters || len(frame.Reply) > MaxSize {
		t.Errorf("reply length = %d", len(frame.Reply))
	}
	frame, err = Build(CustomFrame{Request: make([]byte, MaxSize), ReplyLength: 0})
	if err != nil {
		t.Fatalf("Build failed for a %d byte custom frame: %v", MaxSize, err)
	}
	if len(frame.Reply) != 0 {
		t.Errorf("reply length = %d, want 0", len(frame.Reply))
	}
}

func TestBuildCustomFrameCopiesRequest(t *testing.T) {
	raw := []byte{0x01, 0x41, 0x00, 0x10, 0x50}
	frame, err := Build(CustomFrame{Request: raw, ReplyLength: 6})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	raw[0] = 0xFF
	if frame.Request[0] != 0x01 {
		t.Error("frame shares memory with the caller's request")
	}
}

func TestAppendCRC(t *testing.T) {
	got := AppendCRC([]byte{0x02, 0x07})
	want := []byte{0x02, 0x07, 0x41, 0x12}
	if !bytes.Equal(got, want) {
		t.Errorf("AppendCRC = % X, want % X", got, want)
	}
}

func TestExpectedReplyLength(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		want int
	}{
		{"ReadCoils", ReadCoils{UnitID: 1, Quantity: 9}, 7},
		{"ReadDiscreteInputs", ReadDiscreteInputs{UnitID: 1, Quantity: 16}, 7},
		{"ReadHoldingRegisters", ReadHoldingRegisters{UnitID: 1, Quantity: 3}, 11},
		{"ReadInputRegisters", ReadInputRegisters{UnitID: 1, Quantity: 125}, 255},
		{"WriteSingleCoil", WriteSingleCoil{UnitID: 1}, 8},
		{"WriteSingleRegister", WriteSingleRegister{UnitID: 1}, 8},
		{"WriteMultipleCoils", WriteMultipleCoils{UnitID: 1, Values: []modbus.Coil{modbus.On}}, 8},
		{"WriteMultipleRegisters", WriteMultipleRegisters{UnitID: 1, Values: []uint16{1}}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Build(tt.op)
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			got, err := ExpectedReplyLength(frame.Request)
			if err != nil {
				t.Fatalf("ExpectedReplyLength failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExpectedReplyLength() = %v, want %v", got, tt.want)
			}
			if len(frame.Reply) != tt.want {
				t.Errorf("Build reply buffer = %v bytes, want %v", len(frame.Reply), tt.want)
			}
		})
	}

	unknown := AppendCRC([]byte{0x01, 0x41, 0x00, 0x00})
	if _, err := ExpectedReplyLength(unknown); err == nil {
		t.Error("expected error for an unknown function code")
	}
	if _, err := ExpectedReplyLength([]byte{0x01, 0x03}); err == nil {
		t.Error("expected error for a truncated request")
	}
}

func TestBuildCustomKeepsReplyLength(t *testing.T) {
	// A custom frame carrying a standard read still uses its own reply length.
	request := AppendCRC([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x02})
	for _, op := range []Operation{
		CustomFrame{Request: request, ReplyLength: 5},
		&CustomFrame{Request: request, ReplyLength: 5},
	} {
		frame, err := Build(op)
		if err != nil {
			t.Fatalf("Build(%T) failed: %v", op, err)
		}
		if len(frame.Reply) != 5 {
			t.Errorf("Build(%T) reply buffer = %v bytes, want 5", op, len(frame.Reply))
		}
		if frame.Class != ClassCustom {
			t.Errorf("Build(%T) class = %v", op, frame.Class)
		}
	}
}

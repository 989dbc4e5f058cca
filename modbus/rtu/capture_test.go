// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"bytes"
	"encoding/hex"
	"os"
	"strings"
	"testing"

	goburrow "github.com/goburrow/modbus"
	"gopkg.in/yaml.v3"

	"github.com/ffutop/simple-modbus/modbus"
)

type hexBytes []byte

func (h *hexBytes) UnmarshalYAML(node *yaml.Node) error {
	b, err := hex.DecodeString(strings.Join(strings.Fields(node.Value), ""))
	if err != nil {
		return err
	}
	*h = b
	return nil
}

type capture struct {
	Name    string   `yaml:"name"`
	Request hexBytes `yaml:"request"`
	Reply   hexBytes `yaml:"reply"`
	Payload hexBytes `yaml:"payload"`
}

func loadCaptures(t *testing.T) []capture {
	t.Helper()
	raw, err := os.ReadFile("testdata/captures.yaml")
	if err != nil {
		t.Fatalf("read captures: %v", err)
	}
	var doc struct {
		Captures []capture `yaml:"captures"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parse captures: %v", err)
	}
	if len(doc.Captures) == 0 {
		t.Fatal("no captures loaded")
	}
	return doc.Captures
}

func TestCaptures(t *testing.T) {
	for _, c := range loadCaptures(t) {
		t.Run(c.Name, func(t *testing.T) {
			if err := Validate(c.Request, c.Reply); err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
			n, err := ExpectedReplyLength(c.Request)
			if err != nil {
				t.Fatalf("ExpectedReplyLength failed: %v", err)
			}
			if n != len(c.Reply) {
				t.Errorf("predicted reply length %d, captured %d", n, len(c.Reply))
			}
			if c.Payload == nil {
				return
			}
			payload, err := Extract(c.Reply)
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if !bytes.Equal(payload, c.Payload) {
				t.Errorf("payload % X, want % X", payload, c.Payload)
			}
		})
	}
}

// The builder must produce the same bytes as an independent encoder.
func TestBuildMatchesReferenceEncoder(t *testing.T) {
	tests := []struct {
		op   Operation
		unit byte
		pdu  goburrow.ProtocolDataUnit
	}{
		{ReadHoldingRegisters{UnitID: 1, Address: 0x1122, Quantity: 2}, 1,
			goburrow.ProtocolDataUnit{FunctionCode: 0x03, Data: []byte{0x11, 0x22, 0x00, 0x02}}},
		{ReadCoils{UnitID: 17, Address: 0x0013, Quantity: 37}, 17,
			goburrow.ProtocolDataUnit{FunctionCode: 0x01, Data: []byte{0x00, 0x13, 0x00, 0x25}}},
		{WriteSingleRegister{UnitID: 247, Address: 0xBEEF, Value: 0xCAFE}, 247,
			goburrow.ProtocolDataUnit{FunctionCode: 0x06, Data: []byte{0xBE, 0xEF, 0xCA, 0xFE}}},
		{WriteSingleCoil{UnitID: 3, Address: 0x00AC, Value: modbus.Off}, 3,
			goburrow.ProtocolDataUnit{FunctionCode: 0x05, Data: []byte{0x00, 0xAC, 0x00, 0x00}}},
		{WriteMultipleRegisters{UnitID: 9, Address: 0x0100, Values: []uint16{0x0102, 0x0304, 0xFFFF}}, 9,
			goburrow.ProtocolDataUnit{FunctionCode: 0x10, Data: []byte{0x01, 0x00, 0x00, 0x03, 0x06, 0x01, 0x02, 0x03, 0x04, 0xFF, 0xFF}}},
	}

	for _, tt := range tests {
		frame, err := Build(tt.op)
		if err != nil {
			t.Fatalf("Build(%+v) failed: %v", tt.op, err)
		}
		handler := goburrow.NewRTUClientHandler("")
		handler.SlaveId = tt.unit
		want, err := handler.Encode(&tt.pdu)
		if err != nil {
			t.Fatalf("reference Encode failed: %v", err)
		}
		if !bytes.Equal(frame.Request, want) {
			t.Errorf("%T mismatch.\nWant: % X\nGot:  % X", tt.op, want, frame.Request)
		}
	}
}

// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPackWords(t *testing.T) {
	words, err := PackWords([]byte{0x00, 0x01, 0x12, 0x34, 0xFF, 0xFE})
	if err != nil {
		t.Fatalf("PackWords failed: %v", err)
	}
	if diff := cmp.Diff([]uint16{0x0001, 0x1234, 0xFFFE}, words); diff != "" {
		t.Errorf("PackWords mismatch (-want +got):\n%s", diff)
	}
}

func TestPackWordsOddLength(t *testing.T) {
	for _, n := range []int{1, 3, 5, 251} {
		_, err := PackWords(make([]byte, n))
		if !errors.Is(err, ErrInvalidData) {
			t.Errorf("PackWords(%d bytes) error = %v, want ErrInvalidData", n, err)
		}
		var merr *Error
		if !errors.As(err, &merr) || merr.Reason != ReasonByteCountNotEven {
			t.Errorf("PackWords(%d bytes) reason = %v, want %v", n, err, ReasonByteCountNotEven)
		}
	}
}

func TestWordsRoundTrip(t *testing.T) {
	tests := [][]uint16{
		{0},
		{1, 2},
		{0xFFFF, 0x8000, 0x0001, 0x7FFF},
	}
	for _, words := range tests {
		data := UnpackWords(words)
		if len(data) != 2*len(words) {
			t.Fatalf("UnpackWords(%v) produced %d bytes", words, len(data))
		}
		got, err := PackWords(data)
		if err != nil {
			t.Fatalf("PackWords failed: %v", err)
		}
		if diff := cmp.Diff(words, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestUnpackWordsHighByteFirst(t *testing.T) {
	got := UnpackWords([]uint16{0x1122, 0x3344})
	want := []byte{0x11, 0x22, 0x33, 0x44}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UnpackWords mismatch (-want +got):\n%s", diff)
	}
}

func TestPackCoils(t *testing.T) {
	// CD 01: 10 coils, the example from the Modbus application protocol.
	coils := []Coil{On, Off, On, On, Off, Off, On, On, On, Off}
	got := PackCoils(coils)
	want := []byte{0xCD, 0x01}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PackCoils mismatch (-want +got):\n%s", diff)
	}
}

func TestCoilsRoundTrip(t *testing.T) {
	for n := 0; n <= 20; n++ {
		coils := make([]Coil, n)
		for i := range coils {
			coils[i] = CoilFromBool(i%3 == 0 || i%5 == 0)
		}
		data := PackCoils(coils)
		if len(data) != (n+7)/8 {
			t.Fatalf("PackCoils(%d coils) produced %d bytes", n, len(data))
		}
		got, err := UnpackCoils(data, n)
		if err != nil {
			t.Fatalf("UnpackCoils failed: %v", err)
		}
		if diff := cmp.Diff(coils, got); diff != "" {
			t.Errorf("%d coils round trip mismatch (-want +got):\n%s", n, diff)
		}
	}
}

func TestUnpackCoilsBounds(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		count int
	}{
		{"NineCoilsOneByte", []byte{0xFF}, 9},
		{"Empty", nil, 1},
		{"Negative", []byte{0x01}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnpackCoils(tt.data, tt.count)
			if !errors.Is(err, ErrInvalidData) {
				t.Errorf("UnpackCoils error = %v, want ErrInvalidData", err)
			}
		})
	}
}

func TestUnpackCoilsIgnoresPadding(t *testing.T) {
	got, err := UnpackCoils([]byte{0xFF}, 3)
	if err != nil {
		t.Fatalf("UnpackCoils failed: %v", err)
	}
	if diff := cmp.Diff([]Coil{On, On, On}, got); diff != "" {
		t.Errorf("UnpackCoils mismatch (-want +got):\n%s", diff)
	}
}

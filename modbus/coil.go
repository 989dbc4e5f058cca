// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "fmt"

// Coil is a single bit status value.
type Coil byte

const (
	Off Coil = iota
	On
)

// CoilFromBool maps true to On.
func CoilFromBool(b bool) Coil {
	if b {
		return On
	}
	return Off
}

// ParseCoil accepts "On" and "Off".
func ParseCoil(s string) (Coil, error) {
	switch s {
	case "On":
		return On, nil
	case "Off":
		return Off, nil
	}
	return Off, fmt.Errorf("modbus: coil %q could not be parsed", s)
}

// Not returns the opposite state.
func (c Coil) Not() Coil {
	if c == On {
		return Off
	}
	return On
}

// Bool reports whether c is On.
func (c Coil) Bool() bool {
	return c == On
}

// Code is the register value used by write single coil.
func (c Coil) Code() uint16 {
	if c == On {
		return 0xFF00
	}
	return 0x0000
}

func (c Coil) String() string {
	if c == On {
		return "On"
	}
	return "Off"
}

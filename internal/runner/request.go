// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package runner

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ffutop/simple-modbus/internal/config"
	"github.com/ffutop/simple-modbus/modbus"
	"github.com/ffutop/simple-modbus/modbus/rtu"
)

// Function names accepted in configuration.
const (
	FuncReadCoils              = "read_coils"
	FuncReadDiscreteInputs     = "read_discrete_inputs"
	FuncReadHoldingRegisters   = "read_holding_registers"
	FuncReadInputRegisters     = "read_input_registers"
	FuncWriteSingleCoil        = "write_single_coil"
	FuncWriteSingleRegister    = "write_single_register"
	FuncWriteMultipleCoils     = "write_multiple_coils"
	FuncWriteMultipleRegisters = "write_multiple_registers"
	FuncCustom                 = "custom"
)

// Request is a configured operation bound to the units it is sent to.
type Request struct {
	Name     string
	Function string
	UnitIDs  []byte

	cfg config.RequestConfig
	pdu []byte // custom only
}

// NewRequest checks cfg and prepares it for execution.
func NewRequest(cfg config.RequestConfig) (*Request, error) {
	units, err := config.ParseUnitIDs(cfg.UnitIDs)
	if err != nil {
		return nil, err
	}
	r := &Request{
		Name:     cfg.Name,
		Function: strings.ToLower(cfg.Function),
		UnitIDs:  units,
		cfg:      cfg,
	}
	if r.Name == "" {
		r.Name = r.Function
	}

	switch r.Function {
	case FuncReadCoils, FuncReadDiscreteInputs, FuncReadHoldingRegisters, FuncReadInputRegisters:
		if cfg.Quantity == 0 {
			return nil, fmt.Errorf("%s: quantity is required", r.Name)
		}
	case FuncWriteSingleCoil, FuncWriteSingleRegister:
		if len(cfg.Values) != 1 {
			return nil, fmt.Errorf("%s: exactly one value is required, got %d", r.Name, len(cfg.Values))
		}
	case FuncWriteMultipleCoils, FuncWriteMultipleRegisters:
		if len(cfg.Values) == 0 {
			return nil, fmt.Errorf("%s: values are required", r.Name)
		}
	case FuncCustom:
		pdu, err := hex.DecodeString(strings.Join(strings.Fields(cfg.Frame), ""))
		if err != nil {
			return nil, fmt.Errorf("%s: invalid frame: %w", r.Name, err)
		}
		if len(pdu) == 0 {
			return nil, fmt.Errorf("%s: frame is required", r.Name)
		}
		r.pdu = pdu
	default:
		return nil, fmt.Errorf("%s: unknown function %q", r.Name, cfg.Function)
	}
	return r, nil
}

// Operation returns the operation addressed to unitID.
func (r *Request) Operation(unitID byte) rtu.Operation {
	cfg := r.cfg
	switch r.Function {
	case FuncReadCoils:
		return rtu.ReadCoils{UnitID: unitID, Address: cfg.Address, Quantity: cfg.Quantity}
	case FuncReadDiscreteInputs:
		return rtu.ReadDiscreteInputs{UnitID: unitID, Address: cfg.Address, Quantity: cfg.Quantity}
	case FuncReadHoldingRegisters:
		return rtu.ReadHoldingRegisters{UnitID: unitID, Address: cfg.Address, Quantity: cfg.Quantity}
	case FuncReadInputRegisters:
		return rtu.ReadInputRegisters{UnitID: unitID, Address: cfg.Address, Quantity: cfg.Quantity}
	case FuncWriteSingleCoil:
		return rtu.WriteSingleCoil{UnitID: unitID, Address: cfg.Address, Value: modbus.CoilFromBool(cfg.Values[0] != 0)}
	case FuncWriteSingleRegister:
		return rtu.WriteSingleRegister{UnitID: unitID, Address: cfg.Address, Value: cfg.Values[0]}
	case FuncWriteMultipleCoils:
		return rtu.WriteMultipleCoils{UnitID: unitID, Address: cfg.Address, Values: coils(cfg.Values)}
	case FuncWriteMultipleRegisters:
		return rtu.WriteMultipleRegisters{UnitID: unitID, Address: cfg.Address, Values: cfg.Values}
	default:
		request := append([]byte{unitID}, r.pdu...)
		return rtu.CustomFrame{Request: rtu.AppendCRC(request), ReplyLength: cfg.ReplyLength}
	}
}

// decode turns the payload of a successful exchange into a Result.
func (r *Request) decode(res *Result, payload []byte) error {
	switch r.Function {
	case FuncReadCoils, FuncReadDiscreteInputs:
		coils, err := modbus.UnpackCoils(payload, int(r.cfg.Quantity))
		if err != nil {
			return err
		}
		res.Coils = coils
	case FuncReadHoldingRegisters, FuncReadInputRegisters:
		words, err := modbus.PackWords(payload)
		if err != nil {
			return err
		}
		res.Registers = words
	case FuncCustom:
		res.Raw = payload
	}
	return nil
}

func coils(values []uint16) []modbus.Coil {
	out := make([]modbus.Coil, len(values))
	for i, v := range values {
		out[i] = modbus.CoilFromBool(v != 0)
	}
	return out
}

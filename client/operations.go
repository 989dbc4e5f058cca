// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package client

import (
	"context"

	"github.com/ffutop/simple-modbus/modbus"
	"github.com/ffutop/simple-modbus/modbus/rtu"
)

// ReadCoils reads quantity coils starting at address.
func (mb *Client) ReadCoils(ctx context.Context, unitID byte, address, quantity uint16) ([]modbus.Coil, error) {
	payload, err := mb.Execute(ctx, rtu.ReadCoils{UnitID: unitID, Address: address, Quantity: quantity})
	if err != nil {
		return nil, err
	}
	return modbus.UnpackCoils(payload, int(quantity))
}

// ReadDiscreteInputs reads quantity discrete inputs starting at address.
func (mb *Client) ReadDiscreteInputs(ctx context.Context, unitID byte, address, quantity uint16) ([]modbus.Coil, error) {
	payload, err := mb.Execute(ctx, rtu.ReadDiscreteInputs{UnitID: unitID, Address: address, Quantity: quantity})
	if err != nil {
		return nil, err
	}
	return modbus.UnpackCoils(payload, int(quantity))
}

// ReadHoldingRegisters reads quantity holding registers starting at address.
func (mb *Client) ReadHoldingRegisters(ctx context.Context, unitID byte, address, quantity uint16) ([]uint16, error) {
	payload, err := mb.Execute(ctx, rtu.ReadHoldingRegisters{UnitID: unitID, Address: address, Quantity: quantity})
	if err != nil {
		return nil, err
	}
	return modbus.PackWords(payload)
}

// ReadInputRegisters reads quantity input registers starting at address.
func (mb *Client) ReadInputRegisters(ctx context.Context, unitID byte, address, quantity uint16) ([]uint16, error) {
	payload, err := mb.Execute(ctx, rtu.ReadInputRegisters{UnitID: unitID, Address: address, Quantity: quantity})
	if err != nil {
		return nil, err
	}
	return modbus.PackWords(payload)
}

// WriteSingleCoil forces one coil on or off.
func (mb *Client) WriteSingleCoil(ctx context.Context, unitID byte, address uint16, value modbus.Coil) error {
	_, err := mb.Execute(ctx, rtu.WriteSingleCoil{UnitID: unitID, Address: address, Value: value})
	return err
}

// WriteSingleRegister writes one holding register.
func (mb *Client) WriteSingleRegister(ctx context.Context, unitID byte, address, value uint16) error {
	_, err := mb.Execute(ctx, rtu.WriteSingleRegister{UnitID: unitID, Address: address, Value: value})
	return err
}

// WriteMultipleCoils forces consecutive coils starting at address.
func (mb *Client) WriteMultipleCoils(ctx context.Context, unitID byte, address uint16, values []modbus.Coil) error {
	_, err := mb.Execute(ctx, rtu.WriteMultipleCoils{UnitID: unitID, Address: address, Values: values})
	return err
}

// WriteMultipleRegisters writes consecutive holding registers starting at address.
func (mb *Client) WriteMultipleRegisters(ctx context.Context, unitID byte, address uint16, values []uint16) error {
	_, err := mb.Execute(ctx, rtu.WriteMultipleRegisters{UnitID: unitID, Address: address, Values: values})
	return err
}

// Custom sends request verbatim, CRC included, and returns the raw
// replyLength byte reply after validating it against the request. A
// replyLength of zero returns once the request is flushed.
func (mb *Client) Custom(ctx context.Context, request []byte, replyLength int) ([]byte, error) {
	return mb.Execute(ctx, rtu.CustomFrame{Request: request, ReplyLength: replyLength})
}

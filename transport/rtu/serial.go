// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package rtu provides a serial line transport for Modbus RTU frames.
package rtu

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/grid-x/serial"

	"github.com/ffutop/simple-modbus/internal/config"
	"github.com/ffutop/simple-modbus/transport"
)

const (
	// Default timeout
	serialTimeout     = 5 * time.Second
	serialIdleTimeout = 60 * time.Second
)

// Port is a transport.Transport over a serial line. The device is opened
// on first use and closed again after IdleTimeout without traffic.
type Port struct {
	// Serial port configuration.
	serial.Config

	IdleTimeout time.Duration

	mu sync.Mutex
	// port is platform-dependent data structure for serial port.
	port         io.ReadWriteCloser
	pending      bytes.Buffer
	lastActivity time.Time
	closeTimer   *time.Timer
}

var _ transport.Transport = (*Port)(nil)

// NewPort allocates a Port for the given serial settings.
func NewPort(cfg config.SerialConfig) *Port {
	p := &Port{IdleTimeout: serialIdleTimeout}

	p.Config.Address = cfg.Device
	p.Config.BaudRate = cfg.BaudRate
	p.Config.DataBits = cfg.DataBits
	p.Config.StopBits = cfg.StopBits
	p.Config.Parity = cfg.Parity
	p.Config.Timeout = cfg.Timeout
	if p.Config.Timeout <= 0 {
		p.Config.Timeout = serialTimeout
	}
	if cfg.IdleTimeout > 0 {
		p.IdleTimeout = cfg.IdleTimeout
	}

	if cfg.RS485 {
		p.Config.RS485.Enabled = true
		p.Config.RS485.DelayRtsBeforeSend = cfg.DelayRtsBeforeSend
		p.Config.RS485.DelayRtsAfterSend = cfg.DelayRtsAfterSend
		p.Config.RS485.RtsHighDuringSend = cfg.RtsHighDuringSend
		p.Config.RS485.RtsHighAfterSend = cfg.RtsHighAfterSend
		p.Config.RS485.RxDuringTx = cfg.RxDuringTx
	}
	return p
}

// Write buffers p until Flush.
func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending.Write(b)
}

// Flush sends the buffered frame in one write, after the line has been
// silent for at least 3.5 character times.
func (p *Port) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending.Len() == 0 {
		return nil
	}
	defer p.pending.Reset()

	if err := p.connect(); err != nil {
		return err
	}
	if wait := p.calculateDelay(0) - time.Since(p.lastActivity); wait > 0 {
		time.Sleep(wait)
	}

	frame := p.pending.Bytes()
	slog.Debug("send to modbus slave", "port", p.Address, "request", hex.EncodeToString(frame))
	n, err := p.port.Write(frame)
	p.touch()
	if err != nil {
		return err
	}
	if n != len(frame) {
		return io.ErrShortWrite
	}
	return nil
}

// Read reads reply bytes. A read that returns nothing within the
// configured timeout is reported as a transport.TimeoutError.
func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(b) == 0 {
		return 0, nil
	}
	if err := p.connect(); err != nil {
		return 0, err
	}
	n, err := p.port.Read(b)
	if n > 0 {
		p.touch()
		slog.Debug("recv from modbus slave", "port", p.Address, "response", hex.EncodeToString(b[:n]))
	}
	if n == 0 && (err == nil || errors.Is(err, serial.ErrTimeout)) {
		return 0, &transport.TimeoutError{Op: "read", After: p.Config.Timeout}
	}
	return n, err
}

// SetTimeout changes the read timeout. The device is reopened on next use
// so the new value takes effect.
func (p *Port) SetTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if timeout == p.Config.Timeout {
		return nil
	}
	p.Config.Timeout = timeout
	return p.close()
}

// Close closes the device if it is open.
func (p *Port) Close() (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closeTimer != nil {
		p.closeTimer.Stop()
	}
	return p.close()
}

// connect opens the serial port if it is not open. Caller must hold the mutex.
func (p *Port) connect() error {
	if p.port == nil {
		port, err := serial.Open(&p.Config)
		if err != nil {
			return fmt.Errorf("could not open %s: %w", p.Config.Address, err)
		}
		p.port = port
	}
	return nil
}

// close closes the serial port if it is open. Caller must hold the mutex.
func (p *Port) close() (err error) {
	if p.port != nil {
		err = p.port.Close()
		p.port = nil
	}
	return
}

func (p *Port) touch() {
	p.lastActivity = time.Now()
	p.startCloseTimer()
}

func (p *Port) startCloseTimer() {
	if p.IdleTimeout <= 0 {
		return
	}
	if p.closeTimer == nil {
		p.closeTimer = time.AfterFunc(p.IdleTimeout, p.closeIdle)
	} else {
		p.closeTimer.Reset(p.IdleTimeout)
	}
}

// closeIdle closes the port if the last activity is older than IdleTimeout.
func (p *Port) closeIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.IdleTimeout <= 0 {
		return
	}

	if idle := time.Since(p.lastActivity); idle >= p.IdleTimeout {
		slog.Debug("closing serial port due to idle timeout", "port", p.Address, "idle", idle)
		p.close()
	}
}

// calculateDelay returns the time needed to transmit chars characters
// followed by the 3.5 character inter-frame silence.
func (p *Port) calculateDelay(chars int) time.Duration {
	var characterDelay, frameDelay int

	if p.BaudRate <= 0 || p.BaudRate > 19200 {
		characterDelay = 750
		frameDelay = 1750
	} else {
		characterDelay = 15000000 / p.BaudRate
		frameDelay = 35000000 / p.BaudRate
	}
	return time.Duration(characterDelay*chars+frameDelay) * time.Microsecond
}

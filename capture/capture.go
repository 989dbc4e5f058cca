// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package capture records request/reply exchanges so wire traffic can be
// inspected and compared against known-good captures after the fact.
package capture

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ffutop/simple-modbus/internal/config"
)

// Record is one exchange as it appeared on the wire. Reply holds the
// bytes actually read, which may be fewer than expected on failure.
type Record struct {
	Time    time.Time
	Request []byte
	Reply   []byte
	Err     string
}

// UnitID returns the unit id of the request, or 0 if the request is empty.
func (r Record) UnitID() byte {
	if len(r.Request) < 1 {
		return 0
	}
	return r.Request[0]
}

// FunctionCode returns the function code of the request, or 0 if absent.
func (r Record) FunctionCode() byte {
	if len(r.Request) < 2 {
		return 0
	}
	return r.Request[1]
}

// Recorder stores exchanges.
type Recorder interface {
	// Record stores one exchange.
	Record(rec Record) error

	// Load returns the stored exchanges, oldest first.
	Load() ([]Record, error)

	Close() error
}

// Open creates the recorder described by cfg. It returns nil without an
// error when capturing is disabled.
//
// The SQL recorder needs its driver registered by the main package, e.g.
// _ "github.com/mattn/go-sqlite3".
func Open(cfg config.CaptureConfig) (Recorder, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "none":
		return nil, nil
	case "memory":
		slog.Info("Capturing exchanges in memory", "limit", cfg.Slots)
		return NewMemoryRecorder(cfg.Slots), nil
	case "file":
		slog.Info("Capturing exchanges to file", "path", cfg.Path)
		fr, err := OpenFileRecorder(cfg.Path)
		if err != nil {
			return nil, err
		}
		return fr, nil
	case "mmap":
		slog.Info("Capturing exchanges to mmap ring", "path", cfg.Path, "slots", cfg.Slots)
		mr, err := OpenMmapRecorder(cfg.Path, cfg.Slots)
		if err != nil {
			return nil, err
		}
		return mr, nil
	case "sql":
		slog.Info("Capturing exchanges to database", "driver", cfg.Driver, "dsn", cfg.DSN)
		sr, err := OpenSQLRecorder(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return sr, nil
	default:
		return nil, fmt.Errorf("unknown capture type %q", cfg.Type)
	}
}

// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/pflag"

	"github.com/ffutop/simple-modbus/capture"
	"github.com/ffutop/simple-modbus/client"
	"github.com/ffutop/simple-modbus/internal/config"
	"github.com/ffutop/simple-modbus/internal/runner"
	"github.com/ffutop/simple-modbus/transport"
	"github.com/ffutop/simple-modbus/transport/memory"
	"github.com/ffutop/simple-modbus/transport/rtu"
	"github.com/ffutop/simple-modbus/transport/rtuovertcp"
)

func main() {
	fs := pflag.NewFlagSet("modbus-rtu", pflag.ExitOnError)
	config.RegisterFlags(fs)
	fs.Parse(os.Args[1:])
	configFile, _ := fs.GetString("config")

	// Load Configuration
	cfg, err := config.LoadConfig(configFile, fs)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	slog.Info("Starting Modbus RTU master...", "transport", cfg.Transport.Type)

	tr, err := newTransport(cfg.Transport)
	if err != nil {
		slog.Error("Failed to create transport", "err", err)
		os.Exit(1)
	}
	if c, ok := tr.(io.Closer); ok {
		defer c.Close()
	}

	mb := client.New(tr)
	mb.SetNoReply(cfg.Client.NoReply)
	if cfg.Client.Timeout > 0 {
		if err := mb.SetTimeout(cfg.Client.Timeout); err != nil {
			slog.Error("Failed to set timeout", "err", err)
			os.Exit(1)
		}
	}

	recorder, err := capture.Open(cfg.Capture)
	if err != nil {
		slog.Error("Failed to open capture recorder", "err", err)
		os.Exit(1)
	}
	if recorder != nil {
		mb.Recorder = recorder
		defer recorder.Close()
	}

	r, err := runner.New(mb, cfg.Runner, cfg.Requests)
	if err != nil {
		slog.Error("Invalid request configuration", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx)
	}()

	// Wait for Signal or completion
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		slog.Info("Shutting down...")
		cancel()
		<-done
	case err := <-done:
		if err != nil {
			slog.Error("Runner stopped with error", "err", err)
		}
	}
	slog.Info("Goodbye.")
}

func newTransport(cfg config.TransportConfig) (transport.Transport, error) {
	switch cfg.Type {
	case "rtu":
		if cfg.Serial.Device == "" {
			return nil, fmt.Errorf("serial device is required")
		}
		return rtu.NewPort(cfg.Serial), nil
	case "rtu-over-tcp":
		if cfg.Tcp.Address == "" {
			return nil, fmt.Errorf("tcp address is required")
		}
		return rtuovertcp.NewConn(cfg.Tcp.Address, cfg.Tcp.Timeout), nil
	case "memory":
		if cfg.Memory.Echo {
			return memory.NewEcho(), nil
		}
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown transport type %q", cfg.Type)
	}
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stdout: %v\n", err)
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

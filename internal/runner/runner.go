// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package runner

import (
	"context"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/ffutop/simple-modbus/client"
	"github.com/ffutop/simple-modbus/internal/config"
	"github.com/ffutop/simple-modbus/modbus"
)

// Result is the outcome of one request to one unit.
type Result struct {
	Request   string
	UnitID    byte
	Registers []uint16
	Coils     []modbus.Coil
	Raw       []byte
	Err       error
}

// Runner issues configured requests through a client, once or on an
// interval. It runs on a single goroutine, which is all the client allows.
type Runner struct {
	Client    *client.Client
	Requests  []*Request
	Interval  time.Duration
	RqstPause time.Duration

	// OnResult, if set, is called after every exchange.
	OnResult func(Result)
}

// New builds a Runner from configuration.
func New(c *client.Client, cfg config.RunnerConfig, requests []config.RequestConfig) (*Runner, error) {
	r := &Runner{
		Client:    c,
		Interval:  cfg.Interval,
		RqstPause: cfg.RqstPause,
	}
	for _, rc := range requests {
		req, err := NewRequest(rc)
		if err != nil {
			return nil, err
		}
		r.Requests = append(r.Requests, req)
	}
	return r, nil
}

// Run executes all requests once, or every Interval until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.Requests) == 0 {
		slog.Warn("No requests configured")
		return nil
	}

	r.RunOnce(ctx)
	if r.Interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce sends every request to each of its units in order. Failures are
// logged and reported, never retried.
func (r *Runner) RunOnce(ctx context.Context) []Result {
	var results []Result
	first := true
	for _, req := range r.Requests {
		for _, unit := range req.UnitIDs {
			if !first && !r.pause(ctx) {
				return results
			}
			first = false

			res := r.execute(ctx, req, unit)
			results = append(results, res)
			if r.OnResult != nil {
				r.OnResult(res)
			}
		}
	}
	return results
}

func (r *Runner) execute(ctx context.Context, req *Request, unit byte) Result {
	res := Result{Request: req.Name, UnitID: unit}

	payload, err := r.Client.Execute(ctx, req.Operation(unit))
	if err == nil {
		err = req.decode(&res, payload)
	}
	if err != nil {
		res.Err = err
		slog.Error("Request failed", "request", req.Name, "unit", unit, "err", err)
		return res
	}

	switch {
	case res.Registers != nil:
		slog.Info("Request done", "request", req.Name, "unit", unit, "registers", res.Registers)
	case res.Coils != nil:
		slog.Info("Request done", "request", req.Name, "unit", unit, "coils", res.Coils)
	case res.Raw != nil:
		slog.Info("Request done", "request", req.Name, "unit", unit, "reply", hex.EncodeToString(res.Raw))
	default:
		slog.Info("Request done", "request", req.Name, "unit", unit)
	}
	return res
}

// pause waits RqstPause between requests; it reports false if ctx ended.
func (r *Runner) pause(ctx context.Context) bool {
	if r.RqstPause <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(r.RqstPause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package source

import (
	"context"
	"time"

	"github.com/Thermoquad/lumper/internal/config"
)

// Ramp sweeps every sample from Min to Max in Step increments, then
// wraps back to Min. Useful for checking a hub's display without hardware.
type Ramp struct {
	cfg   config.RampConfig
	count int
	value float64
}

// NewRamp returns a ramp emitting count samples per vector
func NewRamp(cfg config.RampConfig, count int) *Ramp {
	if count < 1 {
		count = 1
	}
	if cfg.Step == 0 {
		cfg.Step = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	start := cfg.Min
	if cfg.Step < 0 {
		start = cfg.Max
	}
	return &Ramp{cfg: cfg, count: count, value: start}
}

// Next returns the current vector and advances the ramp
func (r *Ramp) Next() []float64 {
	values := make([]float64, r.count)
	for i := range values {
		values[i] = r.value
	}

	r.value += r.cfg.Step
	if (r.cfg.Step > 0 && r.value > r.cfg.Max) || (r.cfg.Step < 0 && r.value < r.cfg.Min) {
		if r.cfg.Step > 0 {
			r.value = r.cfg.Min
		} else {
			r.value = r.cfg.Max
		}
	}
	return values
}

// Run implements Source
func (r *Ramp) Run(ctx context.Context, sink Sink) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	sink(r.Next())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sink(r.Next())
		}
	}
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"io"
	"time"
)

// Transport is the hardware a sensor talks through: one UART whose TX line
// can also be held low to signal a reset to the hub.
type Transport interface {
	io.Writer
	io.Closer

	// SetBaudRate (re)configures the line at 8N1 and the given bit rate.
	SetBaudRate(baud int) error
	// Read returns whatever bytes are available without blocking.
	// It returns 0, nil when nothing has arrived.
	Read(p []byte) (int, error)
	// Break holds TX low for d, then releases it high.
	Break(d time.Duration) error
	// Drain blocks until every written byte has left the UART.
	Drain() error
}

// clock is swapped out in tests so handshakes do not take seconds
type clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

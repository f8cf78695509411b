// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/Thermoquad/lumper/pkg/lump"
)

// Read timeout used to make port reads non-blocking for the engine
const serialPollTimeout = time.Millisecond

// SerialTransport drives a sensor line through a serial adapter. The
// adapter's break condition stands in for holding TX low.
type SerialTransport struct {
	port serial.Port
	name string
}

var _ lump.Transport = (*SerialTransport)(nil)

// OpenSerialTransport opens portName at the LUMP bootstrap rate
func OpenSerialTransport(portName string) (*SerialTransport, error) {
	if portName == "" {
		return nil, fmt.Errorf("--port must be specified")
	}

	mode := &serial.Mode{
		BaudRate: lump.BootstrapBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(serialPollTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}
	return &SerialTransport{port: port, name: portName}, nil
}

func (s *SerialTransport) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// Read returns whatever arrived within the poll timeout, possibly nothing
func (s *SerialTransport) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialTransport) SetBaudRate(baud int) error {
	if err := s.port.SetMode(&serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}); err != nil {
		return fmt.Errorf("failed to set %s to %d baud: %w", s.name, baud, err)
	}
	return nil
}

func (s *SerialTransport) Break(d time.Duration) error {
	return s.port.Break(d)
}

func (s *SerialTransport) Drain() error {
	return s.port.Drain()
}

func (s *SerialTransport) Close() error {
	return s.port.Close()
}

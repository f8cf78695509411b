// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"bytes"
	"fmt"
)

// handshake announces the sensor at the bootstrap rate, waits for the hub to
// accept it and switches the line to the operating rate.
func (e *Engine) handshake() error {
	t := e.transport

	resetPulse := func() error {
		return t.Break(DefaultResetPulse)
	}
	if err := e.profile.OpenLink(t, resetPulse); err != nil {
		return &HandshakeError{Step: "open link", Err: err}
	}

	frames, err := AnnounceFrames(e.modes, e.sensorType, uint32(e.baudRate),
		e.profile.VersionFrame(e.hwVersion, e.swVersion))
	if err != nil {
		return err
	}
	for _, step := range frames {
		for _, f := range step.Frames {
			if err := writeAll(t, f); err != nil {
				return &HandshakeError{Step: step.Name, Err: err}
			}
		}
		if step.Mode >= 0 {
			e.clock.Sleep(DefaultModeDelay)
		}
	}

	if err := writeAll(t, []byte{ByteAck}); err != nil {
		return &HandshakeError{Step: "ack", Err: err}
	}
	if err := e.waitForAck(); err != nil {
		return err
	}

	// The hub expects a short low pulse before the rate changes
	if err := t.Break(DefaultSwitchPulse); err != nil {
		return &HandshakeError{Step: "speed switch", Err: err}
	}
	if err := t.SetBaudRate(e.baudRate); err != nil {
		return &HandshakeError{Step: "speed switch", Err: err}
	}

	first, _ := e.modes.Mode(0)
	zero, err := ZeroPayload(0, first.Format)
	if err != nil {
		return err
	}
	e.payload.Store(&zero)
	return nil
}

// AnnounceStep is a group of frames sent together during the handshake
type AnnounceStep struct {
	Name   string
	Mode   int // mode number for INFO groups, -1 otherwise
	Frames []Frame
}

// AnnounceFrames returns every frame a sensor sends between the sync byte
// and the final ACK, in wire order. A nil version frame is skipped.
func AnnounceFrames(modes *ModeTable, sensorType byte, baud uint32, version Frame) ([]AnnounceStep, error) {
	steps := []AnnounceStep{
		{Name: "type", Mode: -1, Frames: []Frame{TypeFrame(sensorType)}},
		{Name: "modes", Mode: -1, Frames: []Frame{ModesFrame(modes)}},
		{Name: "speed", Mode: -1, Frames: []Frame{SpeedFrame(baud)}},
	}
	if len(version) > 0 {
		steps = append(steps, AnnounceStep{Name: "version", Mode: -1, Frames: []Frame{version}})
	}

	for i := modes.Len() - 1; i >= 0; i-- {
		m, _ := modes.Mode(i)
		frames, err := ModeFrames(i, m)
		if err != nil {
			return nil, err
		}
		steps = append(steps, AnnounceStep{Name: fmt.Sprintf("mode %d info", i), Mode: i, Frames: frames})
	}
	return steps, nil
}

// waitForAck polls the line until the hub echoes ACK or the timeout expires
func (e *Engine) waitForAck() error {
	buf := make([]byte, 64)
	deadline := e.clock.Now().Add(e.ackTimeout)
	for e.clock.Now().Before(deadline) {
		e.clock.Sleep(DefaultAckPoll)
		n, err := e.transport.Read(buf)
		if err != nil {
			return &HandshakeError{Step: "wait ack", Err: err}
		}
		if bytes.IndexByte(buf[:n], ByteAck) >= 0 {
			return nil
		}
	}
	return ErrHandshakeTimeout
}

// writeAll writes p and waits for it to leave the UART
func writeAll(t Transport, p []byte) error {
	n, err := t.Write(p)
	if err != nil {
		return err
	}
	if n < len(p) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrTransmitFailure, n, len(p))
	}
	return t.Drain()
}

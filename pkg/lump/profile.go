// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"fmt"
	"strings"
)

// HostProfile captures what differs between hub families during the
// handshake: how the link is opened and whether a version frame is sent.
type HostProfile interface {
	Name() string
	// OpenLink resets the line and opens it at the bootstrap rate, then
	// writes the sync byte.
	OpenLink(t Transport, resetPulse func() error) error
	// VersionFrame returns the frame to send, or nil to skip it.
	VersionFrame(hardware, software uint32) Frame
}

// PrimeProfile talks to SPIKE Prime / Powered Up hubs. The hub only starts
// listening after the sensor pulls TX low for at least half a second.
type PrimeProfile struct{}

// Name implements HostProfile
func (PrimeProfile) Name() string { return "prime" }

// OpenLink implements HostProfile
func (PrimeProfile) OpenLink(t Transport, resetPulse func() error) error {
	if err := t.SetBaudRate(BootstrapBaudRate); err != nil {
		return err
	}
	if err := resetPulse(); err != nil {
		return err
	}
	return writeSync(t)
}

// VersionFrame implements HostProfile
func (PrimeProfile) VersionFrame(hardware, software uint32) Frame {
	return VersionFrame(hardware, software)
}

// EV3Profile talks to EV3 bricks, which need neither the reset pulse nor
// the version frame.
type EV3Profile struct{}

// Name implements HostProfile
func (EV3Profile) Name() string { return "ev3" }

// OpenLink implements HostProfile
func (EV3Profile) OpenLink(t Transport, _ func() error) error {
	if err := t.SetBaudRate(BootstrapBaudRate); err != nil {
		return err
	}
	return writeSync(t)
}

// VersionFrame implements HostProfile
func (EV3Profile) VersionFrame(uint32, uint32) Frame {
	return nil
}

func writeSync(t Transport) error {
	return writeAll(t, []byte{ByteSync})
}

// ProfileByName returns the profile for "prime" (also "spike", "lpf2") or "ev3"
func ProfileByName(name string) (HostProfile, error) {
	switch strings.ToLower(name) {
	case "", "prime", "spike", "lpf2":
		return PrimeProfile{}, nil
	case "ev3":
		return EV3Profile{}, nil
	default:
		return nil, &ConfigError{Field: "profile", Reason: fmt.Sprintf("unknown host profile %q", name)}
	}
}

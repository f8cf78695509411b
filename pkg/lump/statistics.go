// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"fmt"
	"time"
)

// Statistics tracks link activity from engine events. It is not safe for
// concurrent use; feed it from the engine's observer.
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	Handshakes        uint64
	HandshakeFailures uint64
	LinkTimeouts      uint64
	TransmitFailures  uint64
	FramesSent        uint64
	BytesSent         uint64
	Heartbeats        uint64
	ModeSelects       uint64
	TextWrites        uint64
	MalformedControl  uint64
	UnknownControl    uint64

	// Rates (calculated)
	FrameRate     float64 // frames/sec
	HeartbeatRate float64 // heartbeats/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update accounts for one engine event
func (s *Statistics) Update(ev Event) {
	switch ev.Kind {
	case EventStateChange:
		if ev.State == Connected {
			s.Handshakes++
		}
	case EventHandshakeFailed:
		s.HandshakeFailures++
	case EventLinkTimeout:
		s.LinkTimeouts++
	case EventTransmitFailure:
		s.TransmitFailures++
	case EventTransmit:
		if ev.Bytes > 0 {
			s.FramesSent++
			s.BytesSent += uint64(ev.Bytes)
		}
	case EventHeartbeat:
		s.Heartbeats++
	case EventModeSelect:
		s.ModeSelects++
	case EventText:
		s.TextWrites++
	case EventMalformedControl:
		s.MalformedControl++
	case EventUnknownControl:
		s.UnknownControl++
	}

	s.LastUpdateTime = time.Now()
}

// CalculateRates calculates frame and heartbeat rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.FramesSent) / elapsed
		s.HeartbeatRate = float64(s.Heartbeats) / elapsed
	}
}

// Errors returns the number of failures of any kind
func (s *Statistics) Errors() uint64 {
	return s.HandshakeFailures + s.LinkTimeouts + s.TransmitFailures + s.MalformedControl
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()
	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Handshakes:      %8d\n", s.Handshakes)
	if s.HandshakeFailures > 0 {
		result += fmt.Sprintf("  Failed:          %6d\n", s.HandshakeFailures)
	}
	result += fmt.Sprintf("Frames Sent:     %8d (%d bytes)\n", s.FramesSent, s.BytesSent)
	result += fmt.Sprintf("Heartbeats:      %8d\n", s.Heartbeats)
	if s.LinkTimeouts > 0 {
		result += fmt.Sprintf("Link Timeouts:   %8d\n", s.LinkTimeouts)
	}
	if s.TransmitFailures > 0 {
		result += fmt.Sprintf("Tx Failures:     %8d\n", s.TransmitFailures)
	}
	if s.ModeSelects > 0 {
		result += fmt.Sprintf("Mode Selects:    %8d\n", s.ModeSelects)
	}
	if s.MalformedControl > 0 || s.UnknownControl > 0 {
		result += fmt.Sprintf("Bad Control:     %8d (unknown: %d)\n", s.MalformedControl, s.UnknownControl)
	}
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Heartbeat Rate:  %8.1f beats/sec\n", s.HeartbeatRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"fmt"
	"time"
)

// State is the engine's connection state
type State int32

// Connection states
const (
	Disconnected State = iota
	Handshaking
	Connected
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Handshaking:
		return "HANDSHAKING"
	case Connected:
		return "CONNECTED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// EventKind classifies diagnostic events
type EventKind int

// Event kinds
const (
	EventStateChange EventKind = iota
	EventHandshakeFailed
	EventLinkTimeout
	EventTransmitFailure
	EventTransmit
	EventHeartbeat
	EventModeSelect
	EventText
	EventMalformedControl
	EventUnknownControl
)

// String returns the event kind name
func (k EventKind) String() string {
	switch k {
	case EventStateChange:
		return "STATE_CHANGE"
	case EventHandshakeFailed:
		return "HANDSHAKE_FAILED"
	case EventLinkTimeout:
		return "LINK_TIMEOUT"
	case EventTransmitFailure:
		return "TRANSMIT_FAILURE"
	case EventTransmit:
		return "TRANSMIT"
	case EventHeartbeat:
		return "HEARTBEAT"
	case EventModeSelect:
		return "MODE_SELECT"
	case EventText:
		return "TEXT"
	case EventMalformedControl:
		return "MALFORMED_CONTROL"
	case EventUnknownControl:
		return "UNKNOWN_CONTROL"
	default:
		return "UNKNOWN"
	}
}

// Event is a diagnostic notification from the engine. Observers run on the
// goroutine that drives the engine and must not block.
type Event struct {
	Time       time.Time
	Kind       EventKind
	State      State
	Mode       uint8
	Heartbeats uint32
	Acks       uint32
	Bytes      int    // bytes written (EventTransmit) or byte value (EventUnknownControl)
	Text       string // EventText only
	Err        error
}

// Observer receives engine events
type Observer func(Event)

// String renders the event for logs and text-mode output
func (ev Event) String() string {
	ts := ev.Time.Format("15:04:05.000")
	switch ev.Kind {
	case EventStateChange:
		return fmt.Sprintf("[%s] %s -> %s", ts, ev.Kind, ev.State)
	case EventModeSelect:
		return fmt.Sprintf("[%s] %s mode=%d", ts, ev.Kind, ev.Mode)
	case EventText:
		return fmt.Sprintf("[%s] %s mode=%d %q", ts, ev.Kind, ev.Mode, ev.Text)
	case EventUnknownControl:
		return fmt.Sprintf("[%s] %s 0x%02X", ts, ev.Kind, ev.Bytes)
	case EventTransmit, EventHeartbeat:
		return fmt.Sprintf("[%s] %s heartbeats=%d acks=%d", ts, ev.Kind, ev.Heartbeats, ev.Acks)
	}
	if ev.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", ts, ev.Kind, ev.Err)
	}
	return fmt.Sprintf("[%s] %s", ts, ev.Kind)
}

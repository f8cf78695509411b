// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package lump implements the sensor side of the LEGO UART Message Protocol
// (LUMP), the single-wire serial bus used by LPF2 hubs to talk to smart sensors.
//
// An Engine announces a mode table to the hub, switches the link to the
// negotiated operating rate and then streams data frames while watching the
// hub's heartbeat. The hardware is reached only through the Transport
// interface.
package lump

import "time"

// System bytes (single byte, no checksum)
const (
	ByteSync = 0x00
	ByteNack = 0x02
	ByteAck  = 0x04
)

// Message classes (bits 7-6 of the header)
const (
	MsgSys  = 0x00
	MsgCmd  = 0x40
	MsgInfo = 0x80
	MsgData = 0xC0

	msgClassMask = 0xC0
	lengthShift  = 3
	lengthMask   = 0x38
	subMask      = 0x07
)

// Command sub-types (bits 2-0 of a CMD header)
const (
	CmdType    = 0x00
	CmdModes   = 0x01
	CmdSpeed   = 0x02
	CmdSelect  = 0x03
	CmdWrite   = 0x04
	CmdExtMode = 0x06
	CmdVersion = 0x07
)

// Complete CMD header bytes as they appear on the wire
const (
	HeaderType    = MsgCmd | 0<<lengthShift | CmdType    // 0x40
	HeaderModes   = MsgCmd | 1<<lengthShift | CmdModes   // 0x49
	HeaderSpeed   = MsgCmd | 2<<lengthShift | CmdSpeed   // 0x52
	HeaderSelect  = MsgCmd | 0<<lengthShift | CmdSelect  // 0x43
	HeaderExtMode = MsgCmd | 0<<lengthShift | CmdExtMode // 0x46
	HeaderVersion = MsgCmd | 3<<lengthShift | CmdVersion // 0x5F

	// headerUnknown is sent by some hubs with a single argument byte.
	// Nothing is known about it beyond its length.
	headerUnknown = 0x4C
)

// INFO message types (first payload byte of an INFO frame)
const (
	InfoName        = 0x00
	InfoRaw         = 0x01
	InfoPercent     = 0x02
	InfoSI          = 0x03
	InfoSymbol      = 0x04
	InfoFunctionMap = 0x05
	InfoFormat      = 0x80
)

// Protocol limits
const (
	MaxPayloadSize = 16 // largest single payload block (length code 4)
	MaxLengthCode  = 4
	MaxModes       = 8 // mode number lives in the low three header bits
	MaxNameLength  = 15
)

// Link defaults
const (
	BootstrapBaudRate = 2400
	DefaultBaudRate   = 115200
	DefaultSensorType = 62 // SPIKE distance sensor

	DefaultTickRate      = 10 // Hz
	DefaultAckTimeout    = 2 * time.Second
	DefaultAckPoll       = 5 * time.Millisecond
	DefaultModeDelay     = 5 * time.Millisecond
	DefaultResetPulse    = 500 * time.Millisecond
	DefaultSwitchPulse   = 10 * time.Millisecond
	DefaultRetryDelay    = 50 * time.Millisecond
	DefaultMissThreshold = 8
)

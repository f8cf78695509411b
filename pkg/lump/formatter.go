// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// FormatMessage formats a message into a human-readable string
func FormatMessage(m *Message) string {
	timestamp := m.Timestamp.Format("15:04:05.000")
	name := FormatMessageType(m)

	if m.Class() == MsgSys {
		return fmt.Sprintf("[%s] %s (0x%02X)\n", timestamp, name, m.Header)
	}

	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d\n", timestamp, name, m.Header, len(m.Payload))
	return result + FormatPayload(m)
}

// FormatMessageType returns the human-readable name for a message
func FormatMessageType(m *Message) string {
	switch m.Class() {
	case MsgSys:
		switch m.Header {
		case ByteSync:
			return "SYNC"
		case ByteNack:
			return "NACK"
		case ByteAck:
			return "ACK"
		}
		return "SYS_UNKNOWN"

	case MsgCmd:
		switch m.Sub() {
		case CmdType:
			return "CMD_TYPE"
		case CmdModes:
			return "CMD_MODES"
		case CmdSpeed:
			return "CMD_SPEED"
		case CmdSelect:
			return "CMD_SELECT"
		case CmdWrite:
			return "CMD_WRITE"
		case CmdExtMode:
			return "CMD_EXT_MODE"
		case CmdVersion:
			return "CMD_VERSION"
		}
		return "CMD_UNKNOWN"

	case MsgInfo:
		return fmt.Sprintf("INFO_%s[%d]", formatInfoType(m.InfoType), m.Sub())

	default:
		return fmt.Sprintf("DATA[%d]", m.Sub())
	}
}

func formatInfoType(t byte) string {
	switch t {
	case InfoName:
		return "NAME"
	case InfoRaw:
		return "RAW"
	case InfoPercent:
		return "PCT"
	case InfoSI:
		return "SI"
	case InfoSymbol:
		return "SYMBOL"
	case InfoFunctionMap:
		return "MAPPING"
	case InfoFormat:
		return "FORMAT"
	default:
		return fmt.Sprintf("0x%02X", t)
	}
}

var wireTypeNames = []string{"DATA8", "DATA16", "DATA32", "DATAF"}

// FormatPayload returns the decoded payload fields of a message
func FormatPayload(m *Message) string {
	p := m.Payload

	switch m.Class() {
	case MsgCmd:
		switch m.Sub() {
		case CmdType:
			if len(p) >= 1 {
				return fmt.Sprintf("  Sensor type: %d\n", p[0])
			}
		case CmdModes:
			if len(p) >= 2 {
				return fmt.Sprintf("  Modes: %d, Visible: %d\n", int(p[0])+1, int(p[1])+1)
			}
		case CmdSpeed:
			if len(p) >= 4 {
				return fmt.Sprintf("  Baud: %d\n", binary.LittleEndian.Uint32(p))
			}
		case CmdSelect:
			if len(p) >= 1 {
				return fmt.Sprintf("  Mode: %d\n", p[0])
			}
		case CmdVersion:
			if len(p) >= 8 {
				return fmt.Sprintf("  Hardware: %d, Software: %d\n",
					binary.BigEndian.Uint32(p[:4]), binary.BigEndian.Uint32(p[4:8]))
			}
		}

	case MsgInfo:
		switch m.InfoType {
		case InfoName, InfoSymbol:
			return fmt.Sprintf("  %q\n", string(bytes.TrimRight(p, "\x00")))
		case InfoRaw, InfoPercent, InfoSI:
			if len(p) >= 8 {
				lo := math.Float32frombits(binary.LittleEndian.Uint32(p[:4]))
				hi := math.Float32frombits(binary.LittleEndian.Uint32(p[4:8]))
				return fmt.Sprintf("  Range: %g .. %g\n", lo, hi)
			}
		case InfoFunctionMap:
			if len(p) >= 2 {
				return fmt.Sprintf("  Mapping: in=0x%02X out=0x%02X\n", p[0], p[1])
			}
		case InfoFormat:
			if len(p) >= 4 {
				typeName := "UNKNOWN"
				if int(p[1]) < len(wireTypeNames) {
					typeName = wireTypeNames[p[1]]
				}
				return fmt.Sprintf("  Samples: %d, Type: %s, Format: %d.%d\n", p[0], typeName, p[2], p[3])
			}
		}
	}

	return FormatHex(p)
}

// FormatHex returns a hex dump of data, 16 bytes per line
func FormatHex(data []byte) string {
	var b strings.Builder
	b.WriteString("  Payload: ")
	for i, c := range data {
		if i > 0 && i%16 == 0 {
			b.WriteString("\n           ")
		}
		fmt.Fprintf(&b, "%02X ", c)
	}
	b.WriteString("\n")
	return b.String()
}

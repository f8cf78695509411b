// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"encoding/binary"
	"math"
	"math/bits"
)

// Frame is a complete, checksummed LUMP message: header, payload, checksum
type Frame []byte

// Header returns the header byte
func (f Frame) Header() byte {
	if len(f) == 0 {
		return 0
	}
	return f[0]
}

// Payload returns the bytes between the header and the checksum
func (f Frame) Payload() []byte {
	if len(f) < 2 {
		return nil
	}
	return f[1 : len(f)-1]
}

// Valid reports whether the trailing checksum matches
func (f Frame) Valid() bool {
	return Valid(f)
}

// LengthCode returns the header length code for an n-byte payload:
// floor(log2(n)) clamped to 0..MaxLengthCode.
func LengthCode(n int) byte {
	if n <= 1 {
		return 0
	}
	code := bits.Len(uint(n)) - 1
	if code > MaxLengthCode {
		code = MaxLengthCode
	}
	return byte(code)
}

// PayloadLength returns the payload size encoded by a header's length code
func PayloadLength(header byte) int {
	return 1 << ((header & lengthMask) >> lengthShift)
}

// nextPow2 rounds n up to a power of two (0 and 1 give 1)
func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

func header(class, code, sub byte) byte {
	return class | code<<lengthShift | sub&subMask
}

func newFrame(hdr byte, payload ...byte) Frame {
	f := make([]byte, 0, len(payload)+2)
	f = append(f, hdr)
	f = append(f, payload...)
	return Frame(AppendChecksum(f))
}

// TypeFrame announces the sensor type id
func TypeFrame(sensorType byte) Frame {
	return newFrame(HeaderType, sensorType)
}

// ModesFrame announces the number of modes and how many are visible.
// Both counts are sent minus one, modulo 256.
func ModesFrame(t *ModeTable) Frame {
	return newFrame(HeaderModes, byte(t.Len()-1), byte(t.VisibleCount()-1))
}

// SpeedFrame requests the operating bit rate (little-endian)
func SpeedFrame(baud uint32) Frame {
	var p [4]byte
	binary.LittleEndian.PutUint32(p[:], baud)
	return newFrame(HeaderSpeed, p[:]...)
}

// VersionFrame announces the hardware and software versions (big-endian)
func VersionFrame(hardware, software uint32) Frame {
	var p [8]byte
	binary.BigEndian.PutUint32(p[:4], hardware)
	binary.BigEndian.PutUint32(p[4:], software)
	return newFrame(HeaderVersion, p[:]...)
}

// SelectFrame is the hub's mode-select command. Sensors never send it;
// it is used to simulate a hub.
func SelectFrame(mode byte) Frame {
	return newFrame(HeaderSelect, mode)
}

func infoFrame(mode int, code byte, infoType byte, payload []byte) Frame {
	p := make([]byte, 0, len(payload)+1)
	p = append(p, infoType)
	p = append(p, payload...)
	return newFrame(header(MsgInfo, code, byte(mode)), p...)
}

// stringFrame pads s with zeros to the next power of two
func stringFrame(mode int, infoType byte, s string) Frame {
	size := nextPow2(len(s))
	p := make([]byte, size)
	copy(p, s)
	return infoFrame(mode, LengthCode(size), infoType, p)
}

// NameFrame announces a mode's name
func NameFrame(mode int, name string) Frame {
	return stringFrame(mode, InfoName, name)
}

// SymbolFrame announces a mode's SI unit symbol
func SymbolFrame(mode int, symbol string) Frame {
	return stringFrame(mode, InfoSymbol, symbol)
}

// RangeFrame announces one of the raw, percent or SI ranges
func RangeFrame(mode int, infoType byte, r Range) Frame {
	var p [8]byte
	binary.LittleEndian.PutUint32(p[:4], math.Float32bits(r.Min))
	binary.LittleEndian.PutUint32(p[4:], math.Float32bits(r.Max))
	return infoFrame(mode, 3, infoType, p[:])
}

// FunctionMapFrame announces a mode's input/output function map
func FunctionMapFrame(mode int, fm [2]uint8) Frame {
	return infoFrame(mode, 1, InfoFunctionMap, fm[:])
}

// FormatFrame announces sample count, wire type and display format
func FormatFrame(mode int, f Format) (Frame, error) {
	ti, err := f.Type.info()
	if err != nil {
		return nil, err
	}
	p := []byte{byte(f.Count), ti.wireCode, byte(f.Figures), byte(f.Decimals)}
	return infoFrame(mode, 2, InfoFormat, p), nil
}

// ModeFrames returns the seven INFO frames describing mode number i of m,
// in the order hubs expect them.
func ModeFrames(i int, m Mode) ([]Frame, error) {
	format, err := FormatFrame(i, m.Format)
	if err != nil {
		return nil, err
	}
	return []Frame{
		NameFrame(i, m.Name),
		RangeFrame(i, InfoRaw, m.Raw),
		RangeFrame(i, InfoPercent, m.Percent),
		RangeFrame(i, InfoSI, m.SI),
		SymbolFrame(i, m.Symbol),
		FunctionMapFrame(i, m.FunctionMap),
		format,
	}, nil
}

// DataFrame builds a DATA frame for mode from an already packed payload.
// The payload must be a power of two no longer than MaxPayloadSize.
func DataFrame(mode byte, payload []byte) Frame {
	return newFrame(header(MsgData, LengthCode(len(payload)), mode), payload...)
}

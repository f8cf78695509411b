// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Capacity returns how many elements of type t fit in a data frame built
// from n values: the packed length is rounded down to a power of two and
// capped at MaxPayloadSize.
func Capacity(t DataType, n int) int {
	size := t.Size()
	if size == 0 || n <= 0 {
		return 0
	}
	return (1 << LengthCode(size*n)) / size
}

// EncodePayload packs values as little-endian elements of type t into a DATA
// frame for mode. Values beyond the frame's capacity are dropped: a block
// never exceeds 16 bytes and its length is always a power of two.
func EncodePayload(mode byte, t DataType, values ...float64) (Frame, error) {
	ti, err := t.info()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrEmptyPayload
	}

	values = values[:Capacity(t, len(values))]
	payload := make([]byte, len(values)*ti.size)
	for i, v := range values {
		if err := putElement(payload[i*ti.size:], t, v); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return DataFrame(mode, payload), nil
}

// ZeroPayload returns the all-zero data frame for a mode's declared format
func ZeroPayload(mode byte, f Format) (Frame, error) {
	return EncodePayload(mode, f.Type, make([]float64, f.Count)...)
}

func putElement(b []byte, t DataType, v float64) error {
	if t != Float32 && (v != math.Trunc(v) || math.IsInf(v, 0)) {
		return fmt.Errorf("%w: %v is not an integer", ErrValueRange, v)
	}
	check := func(min, max float64) error {
		if v < min || v > max || math.IsNaN(v) {
			return fmt.Errorf("%w: %v not in %s range [%v, %v]", ErrValueRange, v, t, min, max)
		}
		return nil
	}

	switch t {
	case Int8:
		if err := check(math.MinInt8, math.MaxInt8); err != nil {
			return err
		}
		b[0] = byte(int8(v))
	case UInt8:
		if err := check(0, math.MaxUint8); err != nil {
			return err
		}
		b[0] = uint8(v)
	case Int16:
		if err := check(math.MinInt16, math.MaxInt16); err != nil {
			return err
		}
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case UInt16:
		if err := check(0, math.MaxUint16); err != nil {
			return err
		}
		binary.LittleEndian.PutUint16(b, uint16(v))
	case Int32:
		if err := check(math.MinInt32, math.MaxInt32); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	case UInt32:
		if err := check(0, math.MaxUint32); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(b, uint32(v))
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	}
	return nil
}

// DecodePayload unpacks the elements of a DATA frame as type t
func DecodePayload(t DataType, f Frame) ([]float64, error) {
	ti, err := t.info()
	if err != nil {
		return nil, err
	}
	if f.Header()&msgClassMask != MsgData {
		return nil, fmt.Errorf("not a data frame: header 0x%02X", f.Header())
	}
	if !f.Valid() {
		return nil, fmt.Errorf("checksum mismatch in data frame")
	}

	p := f.Payload()
	values := make([]float64, 0, len(p)/ti.size)
	for off := 0; off+ti.size <= len(p); off += ti.size {
		b := p[off:]
		var v float64
		switch t {
		case Int8:
			v = float64(int8(b[0]))
		case UInt8:
			v = float64(b[0])
		case Int16:
			v = float64(int16(binary.LittleEndian.Uint16(b)))
		case UInt16:
			v = float64(binary.LittleEndian.Uint16(b))
		case Int32:
			v = float64(int32(binary.LittleEndian.Uint32(b)))
		case UInt32:
			v = float64(binary.LittleEndian.Uint32(b))
		case Float32:
			v = float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		}
		values = append(values, v)
	}
	return values, nil
}

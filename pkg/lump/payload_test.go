// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"errors"
	"math"
	"testing"
)

var allTypes = []DataType{Int8, UInt8, Int16, UInt16, Int32, UInt32, Float32}

func TestEncodePayload_RoundTrip(t *testing.T) {
	for _, typ := range allTypes {
		for n := 1; n <= 8; n++ {
			values := make([]float64, n)
			for i := range values {
				values[i] = float64(i + 1)
			}

			f, err := EncodePayload(1, typ, values...)
			if err != nil {
				t.Fatalf("%s x %d: EncodePayload failed: %v", typ, n, err)
			}
			if code := (f.Header() & lengthMask) >> lengthShift; code > MaxLengthCode {
				t.Errorf("%s x %d: length code %d exceeds %d", typ, n, code, MaxLengthCode)
			}
			if len(f.Payload()) != PayloadLength(f.Header()) {
				t.Errorf("%s x %d: payload %d bytes, header says %d", typ, n, len(f.Payload()), PayloadLength(f.Header()))
			}
			if f.Header()&subMask != 1 {
				t.Errorf("%s x %d: mode bits %d, want 1", typ, n, f.Header()&subMask)
			}

			decoded, err := DecodePayload(typ, f)
			if err != nil {
				t.Fatalf("%s x %d: DecodePayload failed: %v", typ, n, err)
			}
			want := values[:Capacity(typ, n)]
			if len(decoded) != len(want) {
				t.Fatalf("%s x %d: decoded %d values, want %d", typ, n, len(decoded), len(want))
			}
			for i := range want {
				if decoded[i] != want[i] {
					t.Errorf("%s x %d: value %d = %v, want %v", typ, n, i, decoded[i], want[i])
				}
			}
		}
	}
}

func TestEncodePayload_Truncation(t *testing.T) {
	tests := []struct {
		name    string
		typ     DataType
		n       int
		wantCap int
	}{
		{"three int16 round down to two", Int16, 3, 2},
		{"eight int16 fill the block", Int16, 8, 8},
		{"five floats cap at four", Float32, 5, 4},
		{"twenty bytes cap at sixteen", UInt8, 20, 16},
		{"three int32 round down to two", Int32, 3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := EncodePayload(0, tt.typ, make([]float64, tt.n)...)
			if err != nil {
				t.Fatalf("EncodePayload failed: %v", err)
			}
			if got := len(f.Payload()) / tt.typ.Size(); got != tt.wantCap {
				t.Errorf("encoded %d elements, want %d", got, tt.wantCap)
			}
		})
	}
}

func TestEncodePayload_KnownBytes(t *testing.T) {
	f, err := EncodePayload(0, Int16, 160, 120, -1, 0)
	if err != nil {
		t.Fatalf("EncodePayload failed: %v", err)
	}
	want := []byte{0xD8, 0xA0, 0x00, 0x78, 0x00, 0xFF, 0xFF, 0x00, 0x00}
	got := f[:len(f)-1]
	if string(got) != string(want) {
		t.Errorf("got % X, want % X", []byte(got), want)
	}
}

func TestEncodePayload_Errors(t *testing.T) {
	tests := []struct {
		name   string
		typ    DataType
		values []float64
		target error
	}{
		{"empty", UInt8, nil, ErrEmptyPayload},
		{"uint8 overflow", UInt8, []float64{256}, ErrValueRange},
		{"negative unsigned", UInt16, []float64{-1}, ErrValueRange},
		{"int8 underflow", Int8, []float64{-129}, ErrValueRange},
		{"fraction for integer type", Int32, []float64{1.5}, ErrValueRange},
		{"NaN for integer type", Int16, []float64{math.NaN()}, ErrValueRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodePayload(0, tt.typ, tt.values...)
			if !errors.Is(err, tt.target) {
				t.Errorf("got %v, want %v", err, tt.target)
			}
		})
	}

	_, err := EncodePayload(0, DataType(99), 1)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("unsupported type: got %v, want ConfigError", err)
	}
}

func TestZeroPayload(t *testing.T) {
	f, err := ZeroPayload(0, Format{Count: 1, Type: UInt8})
	if err != nil {
		t.Fatalf("ZeroPayload failed: %v", err)
	}
	if string(f) != string([]byte{0xC0, 0x00, 0x3F}) {
		t.Errorf("got % X", []byte(f))
	}
}

func TestDecodePayload_RejectsNonData(t *testing.T) {
	if _, err := DecodePayload(UInt8, TypeFrame(62)); err == nil {
		t.Error("expected error decoding a CMD frame")
	}
	f := DataFrame(0, []byte{1, 2})
	f[1] = 9
	if _, err := DecodePayload(UInt8, f); err == nil {
		t.Error("expected checksum error")
	}
}

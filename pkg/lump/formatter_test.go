// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"strings"
	"testing"
)

func decodeOne(t *testing.T, f Frame) *Message {
	t.Helper()
	msgs, errs := DecodeAll(f)
	if len(errs) != 0 || len(msgs) != 1 {
		t.Fatalf("decode % X: %d messages, errors %v", []byte(f), len(msgs), errs)
	}
	return msgs[0]
}

func TestFormatMessageType(t *testing.T) {
	tests := []struct {
		frame Frame
		want  string
	}{
		{Frame{ByteAck}, "ACK"},
		{TypeFrame(62), "CMD_TYPE"},
		{SpeedFrame(115200), "CMD_SPEED"},
		{SelectFrame(1), "CMD_SELECT"},
		{NameFrame(2, "COLOR"), "INFO_NAME[2]"},
		{FunctionMapFrame(0, [2]uint8{16, 0}), "INFO_MAPPING[0]"},
		{DataFrame(5, []byte{1}), "DATA[5]"},
	}
	for _, tt := range tests {
		if got := FormatMessageType(decodeOne(t, tt.frame)); got != tt.want {
			t.Errorf("% X: got %q, want %q", []byte(tt.frame), got, tt.want)
		}
	}
}

func TestFormatPayload(t *testing.T) {
	format, err := FormatFrame(0, Format{Count: 8, Type: Int16, Figures: 3})
	if err != nil {
		t.Fatalf("FormatFrame failed: %v", err)
	}

	tests := []struct {
		frame Frame
		want  string
	}{
		{TypeFrame(62), "Sensor type: 62"},
		{SpeedFrame(115200), "Baud: 115200"},
		{VersionFrame(2, 3), "Hardware: 2, Software: 3"},
		{NameFrame(0, "LUMP-ALL"), `"LUMP-ALL"`},
		{RangeFrame(0, InfoSI, Range{-10, 10}), "Range: -10 .. 10"},
		{format, "Samples: 8, Type: DATA16, Format: 3.0"},
		{DataFrame(0, []byte{0xAB}), "Payload: AB"},
	}
	for _, tt := range tests {
		got := FormatPayload(decodeOne(t, tt.frame))
		if !strings.Contains(got, tt.want) {
			t.Errorf("% X: %q does not contain %q", []byte(tt.frame), got, tt.want)
		}
	}
}

func TestFormatHex_Wraps(t *testing.T) {
	data := make([]byte, 20)
	if got := FormatHex(data); strings.Count(got, "\n") != 2 {
		t.Errorf("expected two lines, got %q", got)
	}
}

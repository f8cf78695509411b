// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"fmt"
	"strconv"
	"strings"
)

// DataType identifies the numeric element type of a mode's samples
type DataType int

// Element types
const (
	Int8 DataType = iota
	UInt8
	Int16
	UInt16
	Int32
	UInt32
	Float32
)

// Wire codes carried in the INFO_FORMAT block
const (
	wireData8  = 0
	wireData16 = 1
	wireData32 = 2
	wireFloat  = 3
)

type typeInfo struct {
	name     string
	size     int
	wireCode byte
	signed   bool
	float    bool
}

var dataTypes = map[DataType]typeInfo{
	Int8:    {name: "Int8", size: 1, wireCode: wireData8, signed: true},
	UInt8:   {name: "UInt8", size: 1, wireCode: wireData8},
	Int16:   {name: "Int16", size: 2, wireCode: wireData16, signed: true},
	UInt16:  {name: "UInt16", size: 2, wireCode: wireData16},
	Int32:   {name: "Int32", size: 4, wireCode: wireData32, signed: true},
	UInt32:  {name: "UInt32", size: 4, wireCode: wireData32},
	Float32: {name: "Float32", size: 4, wireCode: wireFloat, float: true},
}

func (t DataType) info() (typeInfo, error) {
	ti, ok := dataTypes[t]
	if !ok {
		return typeInfo{}, &ConfigError{Field: "type", Reason: fmt.Sprintf("unsupported element type %d", int(t))}
	}
	return ti, nil
}

// Size returns the encoded byte length of one element (0 if unsupported)
func (t DataType) Size() int {
	return dataTypes[t].size
}

// String returns the type name
func (t DataType) String() string {
	if ti, ok := dataTypes[t]; ok {
		return ti.name
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// ParseDataType accepts the type names used in config files (case-insensitive).
// "float" and "uint8" style spellings are accepted as well.
func ParseDataType(s string) (DataType, error) {
	for t, ti := range dataTypes {
		if strings.EqualFold(ti.name, s) {
			return t, nil
		}
	}
	if strings.EqualFold(s, "float") {
		return Float32, nil
	}
	return 0, &ConfigError{Field: "type", Reason: fmt.Sprintf("unknown element type %q", s)}
}

// Format describes how a mode's samples are laid out and displayed
type Format struct {
	Count    int
	Type     DataType
	Figures  int
	Decimals int
}

// ParseFigures parses a "figures.decimals" display format such as "3.0"
func ParseFigures(s string) (figures, decimals int, err error) {
	fig, dec, ok := strings.Cut(s, ".")
	if !ok {
		return 0, 0, &ConfigError{Field: "format", Reason: fmt.Sprintf("expected figures.decimals, got %q", s)}
	}
	if figures, err = strconv.Atoi(fig); err != nil {
		return 0, 0, &ConfigError{Field: "format", Reason: err.Error()}
	}
	if decimals, err = strconv.Atoi(dec); err != nil {
		return 0, 0, &ConfigError{Field: "format", Reason: err.Error()}
	}
	return figures, decimals, nil
}

// Range is a min/max pair announced for raw, percent and SI values
type Range struct {
	Min float32
	Max float32
}

// Mode describes one measurement channel announced to the hub
type Mode struct {
	Name        string
	Format      Format
	Raw         Range
	Percent     Range
	SI          Range
	Symbol      string
	FunctionMap [2]uint8
	Visible     bool
}

// NewMode returns a mode with the defaults hubs expect for an unconfigured
// channel: one UInt8-sized sample, ranges 0..100, function map {16, 0}.
func NewMode(name string, count int, t DataType) Mode {
	return Mode{
		Name:        name,
		Format:      Format{Count: count, Type: t, Figures: 3, Decimals: 0},
		Raw:         Range{0, 100},
		Percent:     Range{0, 100},
		SI:          Range{0, 100},
		FunctionMap: [2]uint8{16, 0},
		Visible:     true,
	}
}

// BlockSize returns the payload length a full sample vector occupies on the
// wire: the element bytes rounded up to the next power of two.
func (m Mode) BlockSize() int {
	return nextPow2(m.Format.Type.Size() * m.Format.Count)
}

func (m Mode) validate(index int) error {
	field := func(name string) string { return fmt.Sprintf("modes[%d].%s", index, name) }

	if len(m.Name) > MaxNameLength {
		return &ConfigError{Field: field("name"), Reason: fmt.Sprintf("%q longer than %d bytes", m.Name, MaxNameLength)}
	}
	if len(m.Symbol) > MaxNameLength {
		return &ConfigError{Field: field("symbol"), Reason: fmt.Sprintf("%q longer than %d bytes", m.Symbol, MaxNameLength)}
	}
	if _, err := m.Format.Type.info(); err != nil {
		return &ConfigError{Field: field("type"), Reason: err.(*ConfigError).Reason}
	}
	if m.Format.Count < 1 {
		return &ConfigError{Field: field("count"), Reason: fmt.Sprintf("sample count %d < 1", m.Format.Count)}
	}
	if size := m.BlockSize(); size > MaxPayloadSize {
		return &ConfigError{Field: field("count"), Reason: fmt.Sprintf("%d x %s needs %d bytes (max %d)",
			m.Format.Count, m.Format.Type, size, MaxPayloadSize)}
	}
	return nil
}

// ModeTable is the immutable, ordered list of modes a sensor exposes
type ModeTable struct {
	modes []Mode
}

// NewModeTable validates modes and returns a table owning a copy of them
func NewModeTable(modes ...Mode) (*ModeTable, error) {
	if len(modes) == 0 {
		return nil, &ConfigError{Field: "modes", Reason: "at least one mode is required"}
	}
	if len(modes) > MaxModes {
		return nil, &ConfigError{Field: "modes", Reason: fmt.Sprintf("%d modes (max %d)", len(modes), MaxModes)}
	}
	for i, m := range modes {
		if err := m.validate(i); err != nil {
			return nil, err
		}
	}
	return &ModeTable{modes: append([]Mode(nil), modes...)}, nil
}

// MustModeTable is like NewModeTable but panics on error
func MustModeTable(modes ...Mode) *ModeTable {
	t, err := NewModeTable(modes...)
	if err != nil {
		panic(fmt.Sprintf("lump: %v", err))
	}
	return t
}

// Len returns the number of modes
func (t *ModeTable) Len() int {
	return len(t.modes)
}

// Mode returns the mode at index i; ok is false when i is out of range
func (t *ModeTable) Mode(i int) (Mode, bool) {
	if i < 0 || i >= len(t.modes) {
		return Mode{}, false
	}
	return t.modes[i], true
}

// Modes returns a copy of the modes in index order
func (t *ModeTable) Modes() []Mode {
	return append([]Mode(nil), t.modes...)
}

// VisibleCount counts modes shown in the hub's UI
func (t *ModeTable) VisibleCount() int {
	n := 0
	for _, m := range t.modes {
		if m.Visible {
			n++
		}
	}
	return n
}

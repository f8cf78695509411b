// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"fmt"
	"time"
)

// Decoder states (internal)
const (
	stateIdle = iota
	stateInfoType
	statePayload
	stateChecksum
)

// Message is one decoded LUMP message
type Message struct {
	Header    byte
	InfoType  byte // INFO messages only
	Payload   []byte
	Checksum  byte
	Timestamp time.Time
}

// Class returns the message class (MsgSys, MsgCmd, MsgInfo or MsgData)
func (m *Message) Class() byte {
	return m.Header & msgClassMask
}

// Sub returns the command number (CMD) or mode number (INFO, DATA)
func (m *Message) Sub() byte {
	return m.Header & subMask
}

// Frame returns the message's wire bytes
func (m *Message) Frame() Frame {
	if m.Class() == MsgSys {
		return Frame{m.Header}
	}
	f := Frame{m.Header}
	if m.Class() == MsgInfo {
		f = append(f, m.InfoType)
	}
	f = append(f, m.Payload...)
	return append(f, m.Checksum)
}

// Decoder implements the LUMP message decoder state machine
type Decoder struct {
	state     int
	msg       *Message
	remaining int
	rawBuffer []byte // Accumulate raw bytes of the current message
}

// NewDecoder creates a new protocol decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:     stateIdle,
		rawBuffer: make([]byte, 0, MaxPayloadSize+3),
	}
}

// Reset resets the decoder state to idle
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.msg = nil
	d.remaining = 0
	d.rawBuffer = d.rawBuffer[:0]
}

// GetRawBytes returns the accumulated raw bytes of the message in progress
func (d *Decoder) GetRawBytes() []byte {
	return d.rawBuffer
}

// DecodeByte processes a single byte through the decoder state machine
// Returns a completed message, or nil if the message is incomplete
// Returns an error if decoding fails
func (d *Decoder) DecodeByte(b byte) (*Message, error) {
	d.rawBuffer = append(d.rawBuffer, b)

	switch d.state {
	case stateIdle:
		d.rawBuffer = append(d.rawBuffer[:0], b)
		if b&msgClassMask == MsgSys {
			d.rawBuffer = d.rawBuffer[:0]
			switch b {
			case ByteSync, ByteNack, ByteAck:
				return &Message{Header: b, Timestamp: time.Now()}, nil
			}
			return nil, fmt.Errorf("unknown system byte: 0x%02X", b)
		}
		d.msg = &Message{Header: b}
		d.remaining = PayloadLength(b)
		d.msg.Payload = make([]byte, 0, d.remaining)
		if b&msgClassMask == MsgInfo {
			d.state = stateInfoType
		} else {
			d.state = statePayload
		}
		return nil, nil

	case stateInfoType:
		d.msg.InfoType = b
		d.state = statePayload
		return nil, nil

	case statePayload:
		d.msg.Payload = append(d.msg.Payload, b)
		if len(d.msg.Payload) >= d.remaining {
			d.state = stateChecksum
		}
		return nil, nil

	case stateChecksum:
		msg := d.msg
		msg.Checksum = b
		expected := Checksum(d.rawBuffer[:len(d.rawBuffer)-1])
		d.Reset()
		if b != expected {
			return nil, fmt.Errorf("checksum mismatch: expected 0x%02X, got 0x%02X", expected, b)
		}
		msg.Timestamp = time.Now()
		return msg, nil

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", d.state)
	}
}

// DecodeAll runs data through a fresh decoder and collects every message
// and error in order.
func DecodeAll(data []byte) ([]*Message, []error) {
	d := NewDecoder()
	var msgs []*Message
	var errs []error
	for _, b := range data {
		m, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if m != nil {
			msgs = append(msgs, m)
		}
	}
	return msgs, errs
}

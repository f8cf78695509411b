// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Control message kinds the hub sends once the link is up
type controlKind int

const (
	ctlSync controlKind = iota
	ctlHeartbeat
	ctlSelect
	ctlWrite
	ctlExtMode
	ctlUnknownArg
	ctlUnknownByte
)

// maxInbound bounds the bytes kept while waiting for a message to complete
const maxInbound = 256

// control is one parsed inbound message
type control struct {
	kind  controlKind
	valid bool // checksum matched (messages without checksum are always valid)
	value byte // mode for select/write, raw byte for unknown bytes
	text  []byte
}

var extModeIntro = []byte{HeaderExtMode, 0x00, 0xB9}

// parseControl parses the message at the start of buf. It returns the number
// of bytes the message occupies, or 0 if buf holds only part of it.
func parseControl(buf []byte) (control, int) {
	if len(buf) == 0 {
		return control{}, 0
	}

	switch b := buf[0]; b {
	case ByteSync:
		return control{kind: ctlSync, valid: true}, 1

	case ByteNack:
		return control{kind: ctlHeartbeat, valid: true}, 1

	case HeaderSelect:
		if len(buf) < 3 {
			return control{}, 0
		}
		return control{
			kind:  ctlSelect,
			value: buf[1],
			valid: buf[2] == Checksum(buf[:2]),
		}, 3

	case HeaderExtMode:
		if len(buf) < 3 {
			return control{}, 0
		}
		if !bytes.Equal(buf[:3], extModeIntro) {
			return control{kind: ctlExtMode}, 3
		}
		// The intro is followed by a write message: size/mode byte, text,
		// checksum over both.
		if len(buf) < 4 {
			return control{}, 0
		}
		sizeMode := buf[3]
		size := PayloadLength(sizeMode)
		end := 4 + size + 1
		if len(buf) < end {
			return control{}, 0
		}
		text := buf[4 : 4+size]
		return control{
			kind:  ctlWrite,
			value: sizeMode & subMask,
			text:  append([]byte(nil), text...),
			valid: buf[end-1] == Checksum(buf[3:end-1]),
		}, end

	case headerUnknown:
		if len(buf) < 3 {
			return control{}, 0
		}
		return control{
			kind:  ctlUnknownArg,
			value: buf[1],
			valid: buf[2] == Checksum(buf[:2]),
		}, 3

	default:
		return control{kind: ctlUnknownByte, value: b, valid: true}, 1
	}
}

// drainInbound reads every available byte and applies the complete control
// messages among them. An incomplete trailing message stays buffered.
func (e *Engine) drainInbound() {
	buf := make([]byte, 64)
	for {
		n, err := e.transport.Read(buf)
		if n > 0 {
			e.inbound = append(e.inbound, buf[:n]...)
		}
		if err != nil {
			e.log.WithError(err).Warn("inbound read failed")
			break
		}
		if n == 0 {
			break
		}
	}

	for len(e.inbound) > 0 {
		msg, n := parseControl(e.inbound)
		if n == 0 {
			break
		}
		e.inbound = e.inbound[n:]
		e.applyControl(msg)
	}

	if len(e.inbound) > maxInbound {
		e.log.WithField("bytes", len(e.inbound)).Warn("dropping stalled inbound message")
		e.inbound = e.inbound[:0]
	}
	// Compact so the backing array does not grow without bound
	e.inbound = append(e.inbound[:0:0], e.inbound...)
}

func (e *Engine) applyControl(msg control) {
	switch msg.kind {
	case ctlSync:

	case ctlHeartbeat:
		e.acks.Add(1)
		e.emit(Event{Kind: EventHeartbeat})

	case ctlSelect:
		if !msg.valid {
			e.malformed("mode select")
			return
		}
		e.mode.Store(uint32(msg.value))
		e.log.WithField("mode", msg.value).Info("hub selected mode")
		e.emit(Event{Kind: EventModeSelect})

	case ctlWrite:
		if !msg.valid {
			e.malformed("write")
			return
		}
		text := string(bytes.TrimRight(msg.text, "\x00"))
		e.text.Store(text)
		e.log.WithFields(logrus.Fields{"mode": msg.value, "text": text}).Debug("hub wrote text")
		e.emit(Event{Kind: EventText, Text: text, Mode: msg.value})

	case ctlUnknownArg:
		if !msg.valid {
			e.malformed(fmt.Sprintf("command 0x%02X", headerUnknown))
		}

	case ctlExtMode, ctlUnknownByte:
		e.log.WithField("byte", fmt.Sprintf("0x%02X", msg.value)).Debug("ignoring unknown control byte")
		e.emit(Event{Kind: EventUnknownControl, Bytes: int(msg.value)})
	}
}

func (e *Engine) malformed(what string) {
	err := fmt.Errorf("%w: %s checksum mismatch", ErrMalformedControl, what)
	e.log.WithError(err).Debug("discarding control message")
	e.emit(Event{Kind: EventMalformedControl, Err: err})
}

// transmit sends the current payload and applies the timeout policy.
// It reports whether the link is still up.
func (e *Engine) transmit() bool {
	payload := e.payload.Load()
	var n int
	var err error
	if payload != nil {
		n, err = e.transport.Write(*payload)
	}

	heartbeats := e.heartbeats.Add(1)
	acks := e.acks.Load()
	e.emit(Event{Kind: EventTransmit, Bytes: n})

	if int64(heartbeats)-int64(acks) > int64(e.missThreshold) {
		e.heartbeats.Store(0)
		e.acks.Store(0)
		e.log.WithFields(logrus.Fields{
			"heartbeats": heartbeats,
			"acks":       acks,
		}).Warn("hub heartbeat lost")
		e.disconnect(EventLinkTimeout, ErrLinkTimeout)
		return false
	}

	if n == 0 || err != nil {
		if err == nil {
			err = errors.New("zero bytes written")
		}
		err = fmt.Errorf("%w: %v", ErrTransmitFailure, err)
		e.log.WithError(err).Warn("data frame not sent")
		e.disconnect(EventTransmitFailure, err)
		return false
	}
	return true
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Thermoquad/lumper/pkg/lump"
)

// sniffer decodes one direction of a sensor line and tracks the speed
// change the sensor announces during its handshake.
type sniffer struct {
	decoder   *lump.Decoder
	out       io.Writer
	announced int // rate from the last CMD_SPEED, 0 if none
	messages  int
	errors    int
}

func newSniffer(out io.Writer) *sniffer {
	return &sniffer{decoder: lump.NewDecoder(), out: out}
}

// feed decodes data and prints every message. It returns the rate the line
// switches to when the sensor's closing ACK follows a speed announcement,
// or 0.
func (s *sniffer) feed(data []byte) int {
	switchTo := 0
	for _, b := range data {
		msg, err := s.decoder.DecodeByte(b)
		if err != nil {
			s.errors++
			fmt.Fprintf(s.out, "[ERROR] %v\n", err)
			continue
		}
		if msg == nil {
			continue
		}
		s.messages++
		fmt.Fprint(s.out, lump.FormatMessage(msg))

		switch {
		case msg.Class() == lump.MsgCmd && msg.Sub() == lump.CmdSpeed && len(msg.Payload) >= 4:
			s.announced = int(binary.LittleEndian.Uint32(msg.Payload))
		case msg.Header == lump.ByteAck && s.announced > 0:
			switchTo = s.announced
			s.announced = 0
		case msg.Header == lump.ByteSync:
			s.announced = 0
		}
	}
	return switchTo
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CaptureRecord is one chunk of sniffed line traffic
type CaptureRecord struct {
	Time time.Time `cbor:"0,keyasint"`
	Baud int       `cbor:"1,keyasint,omitempty"`
	Data []byte    `cbor:"2,keyasint"`
}

// CaptureWriter appends CBOR capture records to a stream
type CaptureWriter struct {
	enc *cbor.Encoder
}

// NewCaptureWriter creates a writer encoding records to w
func NewCaptureWriter(w io.Writer) (*CaptureWriter, error) {
	mode, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	return &CaptureWriter{enc: mode.NewEncoder(w)}, nil
}

// Write records data received at baud
func (c *CaptureWriter) Write(baud int, data []byte) error {
	rec := CaptureRecord{
		Time: time.Now(),
		Baud: baud,
		Data: append([]byte(nil), data...),
	}
	if err := c.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode capture record: %w", err)
	}
	return nil
}

// ReadCapture decodes every record in r, calling fn for each one
func ReadCapture(r io.Reader, fn func(CaptureRecord) error) error {
	dec := cbor.NewDecoder(r)
	for {
		var rec CaptureRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to decode capture record: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

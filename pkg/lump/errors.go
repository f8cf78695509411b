// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"errors"
	"fmt"
)

var (
	// ErrHandshakeTimeout indicates the hub never echoed the final ACK.
	// The whole handshake must be restarted with Connect.
	ErrHandshakeTimeout = errors.New("handshake timeout: no ACK from hub")
	// ErrLinkTimeout indicates too many ticks passed without a hub heartbeat.
	ErrLinkTimeout = errors.New("link timeout: heartbeats missed")
	// ErrTransmitFailure indicates a data frame could not be written.
	ErrTransmitFailure = errors.New("transmit failure")
	// ErrMalformedControl indicates an inbound control message failed its checksum.
	ErrMalformedControl = errors.New("malformed control message")
	// ErrAlreadyConnected is returned by Connect outside the Disconnected state.
	ErrAlreadyConnected = errors.New("engine is not disconnected")
	// ErrEmptyPayload is returned when encoding a data frame without values.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrValueRange is returned when a value does not fit the element type.
	ErrValueRange = errors.New("value out of range")
)

// ConfigError reports an invalid sensor configuration. It is fatal: the
// configuration must be fixed, retrying cannot help.
type ConfigError struct {
	Field  string
	Reason string
}

// Error implements error
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// HandshakeError wraps a write failure during the handshake
type HandshakeError struct {
	Step string
	Err  error
}

// Error implements error
func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake failed at %s: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error
func (e *HandshakeError) Unwrap() error {
	return e.Err
}

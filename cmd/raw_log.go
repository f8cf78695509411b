// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/Thermoquad/lumper/pkg/lump"
)

var (
	recordPath  string
	initialBaud int
	followSpeed bool
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display sensor line traffic in human-readable format",
	Long: `Continuously decode and display LUMP messages sent by a sensor.

Connect the adapter's RX to the sensor's TX. The line is read at the
bootstrap rate (2400 baud) and, when following is enabled, switched to the
rate the sensor announced once it sends its closing ACK.

With --record, every chunk read from the line is also written to a CBOR
capture file that the replay command can decode later.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().StringVar(&recordPath, "record", "", "Write a CBOR capture to this file")
	rawLogCmd.Flags().IntVar(&initialBaud, "initial-baud", lump.BootstrapBaudRate, "Rate to start reading the serial line at")
	rawLogCmd.Flags().BoolVar(&followSpeed, "follow", true, "Switch to the announced rate after the handshake (serial only)")
}

// serialModeSetter is satisfied by serial ports, which can change rate
// while open
type serialModeSetter interface {
	SetMode(mode *serial.Mode) error
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(initialBaud)
	if err != nil {
		return err
	}
	defer conn.Close()

	var capture *lump.CaptureWriter
	if recordPath != "" {
		f, err := os.Create(recordPath)
		if err != nil {
			return fmt.Errorf("failed to create capture file: %w", err)
		}
		defer f.Close()
		if capture, err = lump.NewCaptureWriter(f); err != nil {
			return err
		}
	}

	fmt.Printf("Lumper - Raw Line Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	if recordPath != "" {
		fmt.Printf("Recording to: %s\n", recordPath)
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	s := newSniffer(os.Stdout)
	currentBaud := initialBaud
	if wsURL != "" {
		currentBaud = 0 // the bridge owns the line rate
	}
	buf := make([]byte, 128)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			// For WebSocket connections, a read error usually means
			// the connection is permanently closed - exit gracefully
			if errors.Is(err, ErrConnectionClosed) {
				logger.Info("Connection closed")
				return nil
			}
			logger.WithError(err).Warn("Read error")
			continue
		}
		if n == 0 {
			continue
		}

		if capture != nil {
			if err := capture.Write(currentBaud, buf[:n]); err != nil {
				return err
			}
		}

		switchTo := s.feed(buf[:n])
		if switchTo == 0 || !followSpeed {
			continue
		}
		port, ok := conn.(serialModeSetter)
		if !ok {
			continue
		}
		if err := port.SetMode(&serial.Mode{
			BaudRate: switchTo,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}); err != nil {
			logger.WithError(err).WithField("baud", switchTo).Error("Failed to follow speed change")
			continue
		}
		currentBaud = switchTo
		fmt.Printf("[SPEED] Line switched to %d baud\n\n", switchTo)
	}
}

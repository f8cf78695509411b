// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/lumper/pkg/lump"
)

var (
	packetTestTimeout int
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid LUMP frame",
	Long: `Wait for a valid LUMP frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any
checksummed LUMP frame (CMD, INFO or DATA). Single system bytes and invalid
bytes are ignored. The serial line is read at --baud.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking the wiring to a running sensor or hub.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

// firstFrame feeds data to the decoder and returns the first complete
// non-system message along with the number of bytes skipped before it.
func firstFrame(decoder *lump.Decoder, data []byte, skipped *int) *lump.Message {
	for _, b := range data {
		msg, err := decoder.DecodeByte(b)
		if err != nil {
			*skipped++
			continue
		}
		if msg != nil && msg.Class() != lump.MsgSys {
			return msg
		}
	}
	return nil
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(baudRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Lumper - Packet Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid LUMP frame...\n\n")

	frameChan := make(chan *lump.Message, 1)
	errChan := make(chan error, 1)

	go func() {
		decoder := lump.NewDecoder()
		buf := make([]byte, 128)
		skipped := 0
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}
			if msg := firstFrame(decoder, buf[:n], &skipped); msg != nil {
				if skipped > 0 {
					fmt.Printf("(skipped %d invalid bytes before sync)\n", skipped)
				}
				frameChan <- msg
				return
			}
		}
	}()

	select {
	case msg := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Type: %s (0x%02X)\n", lump.FormatMessageType(msg), msg.Header)
		fmt.Printf("  Length: %d bytes\n", len(msg.Frame()))
		fmt.Printf("  Checksum: 0x%02X\n", msg.Checksum)
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(packetTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
		os.Exit(1)
	}

	return nil
}

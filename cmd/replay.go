// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/lumper/pkg/lump"
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Decode a CBOR capture written by raw_log --record",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	s := newSniffer(os.Stdout)
	records, bytes, lastBaud := 0, 0, -1

	err = lump.ReadCapture(f, func(rec lump.CaptureRecord) error {
		if rec.Baud != lastBaud && rec.Baud != 0 {
			fmt.Printf("[%s] --- %d baud ---\n", rec.Time.Format("15:04:05.000"), rec.Baud)
			lastBaud = rec.Baud
		}
		records++
		bytes += len(rec.Data)
		s.feed(rec.Data)
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n%d records, %d bytes, %d messages, %d decode errors\n", records, bytes, s.messages, s.errors)
	return nil
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/lumper/pkg/lump"
)

var announceCmd = &cobra.Command{
	Use:   "announce",
	Short: "Print the handshake the configured sensor would send",
	Long: `Build every frame of the handshake for the configured sensor type, mode
table and host profile, and print each one as hex and decoded fields.

No hardware is needed. Useful for checking a mode table against a capture
of a real sensor.`,
	RunE: runAnnounce,
}

func init() {
	rootCmd.AddCommand(announceCmd)
}

func runAnnounce(cmd *cobra.Command, args []string) error {
	return printAnnouncement(os.Stdout)
}

func printAnnouncement(w io.Writer) error {
	modes, err := cfg.ModeTable()
	if err != nil {
		return err
	}
	profile, err := cfg.Profile()
	if err != nil {
		return err
	}

	version := profile.VersionFrame(cfg.Sensor.HardwareVersion, cfg.Sensor.SoftwareVersion)
	steps, err := lump.AnnounceFrames(modes, byte(cfg.Sensor.Type), uint32(cfg.Link.BaudRate), version)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Sensor type %d, %d modes, profile %s\n\n", cfg.Sensor.Type, modes.Len(), profile.Name())
	fmt.Fprintf(w, "SYNC   00\n")

	total := 1
	for _, step := range steps {
		fmt.Fprintf(w, "\n--- %s ---\n", step.Name)
		for _, f := range step.Frames {
			total += len(f)
			fmt.Fprintf(w, "% X\n", []byte(f))
			msgs, errs := lump.DecodeAll(f)
			for _, err := range errs {
				fmt.Fprintf(w, "  [ERROR] %v\n", err)
			}
			for _, m := range msgs {
				fmt.Fprintf(w, "  %s\n%s", lump.FormatMessageType(m), lump.FormatPayload(m))
			}
		}
	}
	fmt.Fprintf(w, "\nACK    04\n")
	fmt.Fprintf(w, "\n%d bytes at %d baud before the hub's ACK\n", total+1, lump.BootstrapBaudRate)
	return nil
}

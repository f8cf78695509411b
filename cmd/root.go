// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/lumper/internal/config"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	configPath string
	logLevel   string

	cfg    = config.Default()
	logger = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "lumper",
	Short: "LUMP sensor emulator",
	Long: `Lumper - Impersonate a LEGO Powered Up / EV3 smart sensor on a UART line.

The emulator runs the sensor side of the LUMP protocol: it announces a mode
table to the hub, renegotiates the baud rate, then streams sample vectors
while the hub keeps sending heartbeats.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user] (raw_log and packet_test only)

Settings not given on the command line come from --config (YAML).

For WebSocket authentication, the password is read from the LUMPER_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "0.3.0",
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Operating baud rate after the handshake")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// loadConfig merges the config file and command line flags. Flags win.
func loadConfig(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("port") || cfg.Link.Port == "" {
		cfg.Link.Port = portName
	} else {
		portName = cfg.Link.Port
	}
	if flags.Changed("baud") {
		cfg.Link.BaudRate = baudRate
	} else {
		baudRate = cfg.Link.BaudRate
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	return cfg.ConfigureLogger(logger)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

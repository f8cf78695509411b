// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Lumper - LUMP sensor emulator
//
// Impersonates a smart sensor on a LEGO Powered Up / EV3 sensor port and
// decodes sensor line traffic.

package main

import (
	"os"

	"github.com/Thermoquad/lumper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

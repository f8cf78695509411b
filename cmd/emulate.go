// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/lumper/internal/monitor"
	"github.com/Thermoquad/lumper/internal/source"
	"github.com/Thermoquad/lumper/pkg/lump"
)

var (
	useTUI        bool
	metricsAddr   string
	statsInterval int
)

var emulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "Run the sensor side of the LUMP protocol",
	Long: `Announce the configured mode table to the hub and stream sample vectors.

The engine handshakes at 2400 baud, switches to the operating rate once the
hub acknowledges, then sends the current payload on every tick. If the hub
stops sending heartbeats, or a write fails, the engine starts over.

Sample vectors come from the configured source:
  none   payload stays at zero (or whatever is typed in the TUI)
  stdin  one vector per line: "1 2 3" or "[1, 2, 3]"
  ramp   every sample sweeps min..max
  mqtt   messages on source.mqtt.topic
  redis  messages on source.redis.channel

Link statistics are printed periodically, shown in the TUI, and exported for
Prometheus with --metrics-addr.`,
	RunE: runEmulate,
}

func init() {
	rootCmd.AddCommand(emulateCmd)
	emulateCmd.Flags().BoolVar(&useTUI, "tui", false, "Use terminal UI (false for text mode)")
	emulateCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	emulateCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics print interval in text mode (seconds, 0 disables)")
}

// chainObservers fans one engine event out to every non-nil observer
func chainObservers(observers ...lump.Observer) lump.Observer {
	return func(ev lump.Event) {
		for _, o := range observers {
			if o != nil {
				o(ev)
			}
		}
	}
}

func runEmulate(cmd *cobra.Command, args []string) error {
	if useTUI && strings.EqualFold(cfg.Source.Kind, "stdin") {
		return fmt.Errorf("the stdin source cannot be combined with --tui")
	}
	if metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = metricsAddr
	}

	transport, err := OpenSerialTransport(cfg.Link.Port)
	if err != nil {
		return err
	}
	defer transport.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *monitor.Metrics
	if cfg.Metrics.Enabled {
		metrics = monitor.NewMetrics(logger)
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	var metricsObserver lump.Observer
	if metrics != nil {
		metricsObserver = metrics.Observe
	}

	if useTUI {
		return runEmulateTUI(ctx, transport, metricsObserver)
	}
	return runEmulateText(ctx, transport, metricsObserver)
}

// newEngine builds the engine and starts its value source
func newEngine(ctx context.Context, transport lump.Transport, observer lump.Observer) (*lump.Engine, error) {
	engineCfg, err := cfg.EngineConfig(transport, logger, observer)
	if err != nil {
		return nil, err
	}
	engine, err := lump.NewEngine(engineCfg)
	if err != nil {
		return nil, err
	}

	first, _ := engineCfg.Modes.Mode(0)
	src, err := source.New(cfg.Source, first.Format.Count, logger)
	if err != nil {
		return nil, err
	}
	if src != nil {
		go func() {
			err := src.Run(ctx, func(values []float64) {
				if err := engine.SetPayload(values...); err != nil {
					logger.WithError(err).Warn("Rejected sample vector")
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("Value source stopped")
			}
		}()
	}
	return engine, nil
}

// runEmulateText logs to the terminal and prints statistics periodically
func runEmulateText(ctx context.Context, transport lump.Transport, metricsObserver lump.Observer) error {
	var statsMu sync.Mutex
	stats := lump.NewStatistics()

	engine, err := newEngine(ctx, transport, chainObservers(
		func(ev lump.Event) {
			statsMu.Lock()
			stats.Update(ev)
			statsMu.Unlock()
		},
		metricsObserver,
	))
	if err != nil {
		return err
	}

	fmt.Printf("Lumper - Sensor Emulator\n")
	fmt.Printf("Port: %s, operating rate %d baud\n", cfg.Link.Port, cfg.Link.BaudRate)
	fmt.Printf("Sensor type: %d, modes: %d, source: %s\n", cfg.Sensor.Type, engine.Modes().Len(), cfg.Source.Kind)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	if statsInterval > 0 {
		go func() {
			ticker := time.NewTicker(time.Duration(statsInterval) * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					statsMu.Lock()
					summary := stats.String()
					statsMu.Unlock()
					fmt.Println()
					fmt.Print(summary)
					fmt.Println()
				}
			}
		}()
	}

	err = engine.Run(ctx)
	if errors.Is(err, context.Canceled) {
		statsMu.Lock()
		fmt.Print("\n" + stats.String())
		statsMu.Unlock()
		return nil
	}
	return err
}

// runEmulateTUI drives the dashboard; engine events reach it as messages
func runEmulateTUI(ctx context.Context, transport lump.Transport, metricsObserver lump.Observer) error {
	// Log lines would tear the alt screen
	logger.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var p *tea.Program
	engine, err := newEngine(ctx, transport, chainObservers(
		func(ev lump.Event) {
			p.Send(engineEventMsg(ev))
		},
		metricsObserver,
	))
	if err != nil {
		return err
	}

	m := initialEmulateModel(engine, fmt.Sprintf("%s @ %d baud", cfg.Link.Port, cfg.Link.BaudRate))
	p = tea.NewProgram(m, tea.WithContext(ctx))

	runErr := make(chan error, 1)
	go func() {
		runErr <- engine.Run(ctx)
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}

	cancel()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

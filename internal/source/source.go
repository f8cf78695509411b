// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package source produces sample vectors for the emulated sensor. Each
// source pushes values to a sink, normally Engine.SetPayload.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/lumper/internal/config"
)

// Sink receives one sample vector
type Sink func(values []float64)

// Source feeds a sink until ctx is cancelled or the source is exhausted
type Source interface {
	Run(ctx context.Context, sink Sink) error
}

// New builds the source selected by cfg.Kind. count is the number of
// samples the ramp source emits per vector. A "none" kind returns nil.
func New(cfg config.SourceConfig, count int, log logrus.FieldLogger) (Source, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "none":
		return nil, nil
	case "stdin":
		return NewStdin(log), nil
	case "ramp":
		return NewRamp(cfg.Ramp, count), nil
	case "mqtt":
		return NewMQTT(cfg.MQTT, log), nil
	case "redis":
		return NewRedis(cfg.Redis, log), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// ParseValues accepts a JSON array ("[1, 2.5, -3]") or a list of numbers
// separated by whitespace or commas ("1 2.5,-3").
func ParseValues(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty sample vector")
	}

	if strings.HasPrefix(s, "[") {
		var values []float64
		if err := json.Unmarshal([]byte(s), &values); err != nil {
			return nil, fmt.Errorf("invalid JSON sample vector: %w", err)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("empty sample vector")
		}
		return values, nil
	}

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid sample %q: %w", f, err)
		}
		values = append(values, v)
	}
	return values, nil
}

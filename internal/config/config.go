// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads lumper's YAML configuration and turns it into
// engine settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/lumper/pkg/lump"
)

type Config struct {
	Link    LinkConfig    `yaml:"link"`
	Sensor  SensorConfig  `yaml:"sensor"`
	Engine  EngineConfig  `yaml:"engine"`
	Modes   []ModeConfig  `yaml:"modes"`
	Source  SourceConfig  `yaml:"source"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type LinkConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

type SensorConfig struct {
	Type            int    `yaml:"type"`
	Profile         string `yaml:"profile"`
	HardwareVersion uint32 `yaml:"hardware_version"`
	SoftwareVersion uint32 `yaml:"software_version"`
}

type EngineConfig struct {
	TickRate      int           `yaml:"tick_rate"`
	AckTimeout    time.Duration `yaml:"ack_timeout"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	MissThreshold int           `yaml:"miss_threshold"`
}

// ModeConfig is one entry of the mode table. Omitted ranges and function
// map fall back to lump.NewMode's defaults.
type ModeConfig struct {
	Name        string    `yaml:"name"`
	Type        string    `yaml:"type"`
	Count       int       `yaml:"count"`
	Format      string    `yaml:"format"`
	Symbol      string    `yaml:"symbol"`
	Raw         []float32 `yaml:"raw"`
	Percent     []float32 `yaml:"percent"`
	SI          []float32 `yaml:"si"`
	FunctionMap []uint8   `yaml:"function_map"`
	Hidden      bool      `yaml:"hidden"`
}

type SourceConfig struct {
	Kind  string      `yaml:"kind"` // none, stdin, ramp, mqtt, redis
	MQTT  MQTTConfig  `yaml:"mqtt"`
	Redis RedisConfig `yaml:"redis"`
	Ramp  RampConfig  `yaml:"ramp"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type RampConfig struct {
	Min      float64       `yaml:"min"`
	Max      float64       `yaml:"max"`
	Step     float64       `yaml:"step"`
	Interval time.Duration `yaml:"interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration of a stock emulated sensor: type 62
// with one LUMP-ALL mode of eight Int16 samples.
func Default() *Config {
	return &Config{
		Link: LinkConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: lump.DefaultBaudRate,
		},
		Sensor: SensorConfig{
			Type:            lump.DefaultSensorType,
			Profile:         "prime",
			HardwareVersion: 2,
			SoftwareVersion: 2,
		},
		Engine: EngineConfig{
			TickRate:      lump.DefaultTickRate,
			AckTimeout:    lump.DefaultAckTimeout,
			RetryDelay:    lump.DefaultRetryDelay,
			MissThreshold: lump.DefaultMissThreshold,
		},
		Modes: []ModeConfig{
			{Name: "LUMP-ALL", Type: "Int16", Count: 8, Format: "3.0"},
		},
		Source: SourceConfig{
			Kind: "none",
			MQTT: MQTTConfig{
				Broker: "tcp://localhost:1883",
				Topic:  "lumper/values",
			},
			Redis: RedisConfig{
				Addr:    "localhost:6379",
				Channel: "lumper:values",
			},
			Ramp: RampConfig{
				Min:      0,
				Max:      100,
				Step:     1,
				Interval: 100 * time.Millisecond,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Validate checks everything the engine would otherwise reject at start-up
func (c *Config) Validate() error {
	if c.Sensor.Type < 0 || c.Sensor.Type > 255 {
		return &lump.ConfigError{Field: "sensor.type", Reason: fmt.Sprintf("%d out of range 0..255", c.Sensor.Type)}
	}
	if c.Link.BaudRate <= 0 {
		return &lump.ConfigError{Field: "link.baud_rate", Reason: "must be positive"}
	}
	if _, err := c.Profile(); err != nil {
		return err
	}
	if _, err := c.ModeTable(); err != nil {
		return err
	}
	switch strings.ToLower(c.Source.Kind) {
	case "", "none", "stdin", "ramp", "mqtt", "redis":
	default:
		return &lump.ConfigError{Field: "source.kind", Reason: fmt.Sprintf("unknown source %q", c.Source.Kind)}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return &lump.ConfigError{Field: "log.level", Reason: err.Error()}
	}
	return nil
}

// Profile returns the configured host profile
func (c *Config) Profile() (lump.HostProfile, error) {
	return lump.ProfileByName(c.Sensor.Profile)
}

// ModeTable builds the validated mode table
func (c *Config) ModeTable() (*lump.ModeTable, error) {
	modes := make([]lump.Mode, 0, len(c.Modes))
	for i, mc := range c.Modes {
		m, err := mc.mode(i)
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return lump.NewModeTable(modes...)
}

func (mc ModeConfig) mode(i int) (lump.Mode, error) {
	field := func(name string) string { return fmt.Sprintf("modes[%d].%s", i, name) }

	typeName := mc.Type
	if typeName == "" {
		typeName = "Int16"
	}
	t, err := lump.ParseDataType(typeName)
	if err != nil {
		return lump.Mode{}, &lump.ConfigError{Field: field("type"), Reason: err.(*lump.ConfigError).Reason}
	}
	count := mc.Count
	if count == 0 {
		count = 1
	}

	m := lump.NewMode(mc.Name, count, t)
	m.Symbol = mc.Symbol
	m.Visible = !mc.Hidden

	if mc.Format != "" {
		fig, dec, err := lump.ParseFigures(mc.Format)
		if err != nil {
			return lump.Mode{}, &lump.ConfigError{Field: field("format"), Reason: err.(*lump.ConfigError).Reason}
		}
		m.Format.Figures, m.Format.Decimals = fig, dec
	}

	ranges := []struct {
		name string
		src  []float32
		dst  *lump.Range
	}{
		{"raw", mc.Raw, &m.Raw},
		{"percent", mc.Percent, &m.Percent},
		{"si", mc.SI, &m.SI},
	}
	for _, r := range ranges {
		if r.src == nil {
			continue
		}
		if len(r.src) != 2 {
			return lump.Mode{}, &lump.ConfigError{Field: field(r.name), Reason: "expected [min, max]"}
		}
		*r.dst = lump.Range{Min: r.src[0], Max: r.src[1]}
	}

	if mc.FunctionMap != nil {
		if len(mc.FunctionMap) != 2 {
			return lump.Mode{}, &lump.ConfigError{Field: field("function_map"), Reason: "expected [in, out]"}
		}
		m.FunctionMap = [2]uint8{mc.FunctionMap[0], mc.FunctionMap[1]}
	}
	return m, nil
}

// EngineConfig assembles a lump.Config for transport t
func (c *Config) EngineConfig(t lump.Transport, log logrus.FieldLogger, observer lump.Observer) (lump.Config, error) {
	modes, err := c.ModeTable()
	if err != nil {
		return lump.Config{}, err
	}
	profile, err := c.Profile()
	if err != nil {
		return lump.Config{}, err
	}
	return lump.Config{
		Transport:       t,
		Modes:           modes,
		Profile:         profile,
		SensorType:      byte(c.Sensor.Type),
		BaudRate:        c.Link.BaudRate,
		HardwareVersion: c.Sensor.HardwareVersion,
		SoftwareVersion: c.Sensor.SoftwareVersion,
		TickRate:        c.Engine.TickRate,
		AckTimeout:      c.Engine.AckTimeout,
		RetryDelay:      c.Engine.RetryDelay,
		MissThreshold:   c.Engine.MissThreshold,
		Logger:          log,
		Observer:        observer,
	}, nil
}

// ConfigureLogger applies the log section to l
func (c *Config) ConfigureLogger(l *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return &lump.ConfigError{Field: "log.level", Reason: err.Error()}
	}
	l.SetLevel(level)

	switch strings.ToLower(c.Log.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return &lump.ConfigError{Field: "log.format", Reason: fmt.Sprintf("unknown format %q", c.Log.Format)}
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Config configures an Engine. Transport and Modes are required; zero values
// elsewhere select the defaults.
type Config struct {
	Transport Transport
	Modes     *ModeTable
	Profile   HostProfile

	SensorType      byte
	BaudRate        int
	HardwareVersion uint32
	SoftwareVersion uint32

	TickRate      int           // ticks per second while connected
	AckTimeout    time.Duration // how long to wait for the hub's ACK
	RetryDelay    time.Duration // pause between failed handshakes in Run
	MissThreshold int           // ticks without heartbeat before the link is declared dead

	Logger   logrus.FieldLogger
	Observer Observer
}

// Engine impersonates a LUMP sensor on one Transport.
//
// Connect and Tick must not run concurrently; Run serializes them. SetPayload
// and the accessors are safe from any goroutine.
type Engine struct {
	transport     Transport
	modes         *ModeTable
	profile       HostProfile
	sensorType    byte
	baudRate      int
	hwVersion     uint32
	swVersion     uint32
	tickRate      int
	ackTimeout    time.Duration
	retryDelay    time.Duration
	missThreshold int
	log           logrus.FieldLogger
	observer      Observer
	clock         clock

	state      atomic.Int32
	mode       atomic.Uint32
	heartbeats atomic.Uint32
	acks       atomic.Uint32
	payload    atomic.Pointer[Frame]
	text       atomic.Value // string

	inbound []byte
}

// NewEngine validates cfg and returns a disconnected engine
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Transport == nil {
		return nil, &ConfigError{Field: "transport", Reason: "required"}
	}
	if cfg.Modes == nil {
		return nil, &ConfigError{Field: "modes", Reason: "required"}
	}
	if cfg.Profile == nil {
		cfg.Profile = PrimeProfile{}
	}
	if cfg.SensorType == 0 {
		cfg.SensorType = DefaultSensorType
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.BaudRate < 0 {
		return nil, &ConfigError{Field: "baud_rate", Reason: fmt.Sprintf("invalid rate %d", cfg.BaudRate)}
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.MissThreshold <= 0 {
		cfg.MissThreshold = DefaultMissThreshold
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.Logger = l
	}

	e := &Engine{
		transport:     cfg.Transport,
		modes:         cfg.Modes,
		profile:       cfg.Profile,
		sensorType:    cfg.SensorType,
		baudRate:      cfg.BaudRate,
		hwVersion:     cfg.HardwareVersion,
		swVersion:     cfg.SoftwareVersion,
		tickRate:      cfg.TickRate,
		ackTimeout:    cfg.AckTimeout,
		retryDelay:    cfg.RetryDelay,
		missThreshold: cfg.MissThreshold,
		log:           cfg.Logger,
		observer:      cfg.Observer,
		clock:         realClock{},
	}
	e.text.Store("")

	first, _ := cfg.Modes.Mode(0)
	zero, err := ZeroPayload(0, first.Format)
	if err != nil {
		return nil, err
	}
	e.payload.Store(&zero)
	return e, nil
}

// State returns the current connection state
func (e *Engine) State() State {
	return State(e.state.Load())
}

// ActiveMode returns the mode most recently selected by the hub
func (e *Engine) ActiveMode() uint8 {
	return uint8(e.mode.Load())
}

// Counters returns the heartbeat (tick) and ack counts of the current session
func (e *Engine) Counters() (heartbeats, acks uint32) {
	return e.heartbeats.Load(), e.acks.Load()
}

// Payload returns a copy of the frame sent on the next tick
func (e *Engine) Payload() Frame {
	p := e.payload.Load()
	if p == nil {
		return nil
	}
	return append(Frame(nil), *p...)
}

// LastText returns the last string the hub wrote to the sensor
func (e *Engine) LastText() string {
	return e.text.Load().(string)
}

// Modes returns the engine's mode table
func (e *Engine) Modes() *ModeTable {
	return e.modes
}

// SetPayload encodes values with the active mode's element type and makes
// them the frame sent on every following tick. Last write wins.
func (e *Engine) SetPayload(values ...float64) error {
	mode := e.ActiveMode()
	m, ok := e.modes.Mode(int(mode))
	if !ok {
		return fmt.Errorf("active mode %d not in mode table (%d modes)", mode, e.modes.Len())
	}
	return e.SetPayloadAs(m.Format.Type, values...)
}

// SetPayloadAs is SetPayload with an explicit element type
func (e *Engine) SetPayloadAs(t DataType, values ...float64) error {
	f, err := EncodePayload(e.ActiveMode(), t, values...)
	if err != nil {
		return err
	}
	e.payload.Store(&f)
	return nil
}

// Connect runs the handshake. On success the engine is Connected and Tick
// must be called periodically; on failure it stays Disconnected and the
// caller retries Connect.
func (e *Engine) Connect() error {
	if !e.state.CompareAndSwap(int32(Disconnected), int32(Handshaking)) {
		return ErrAlreadyConnected
	}
	e.heartbeats.Store(0)
	e.acks.Store(0)
	e.mode.Store(0)
	e.inbound = e.inbound[:0]
	e.emit(Event{Kind: EventStateChange})
	e.log.WithField("profile", e.profile.Name()).Info("starting handshake")

	if err := e.handshake(); err != nil {
		e.log.WithError(err).Warn("handshake failed")
		e.disconnect(EventHandshakeFailed, err)
		return err
	}

	e.setState(Connected)
	e.log.WithField("baud", e.baudRate).Info("sensor connected")
	return nil
}

// Tick drains inbound control bytes, sends the current payload and applies
// the heartbeat timeout. It does nothing unless the engine is Connected.
func (e *Engine) Tick() {
	if e.State() != Connected {
		return
	}
	e.drainInbound()
	e.transmit()
}

// Run drives the engine until ctx is done: it connects, retrying after
// RetryDelay, then ticks at TickRate until the link drops, and starts over.
func (e *Engine) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if e.State() == Disconnected {
			if err := e.Connect(); err != nil {
				var cfgErr *ConfigError
				if errors.As(err, &cfgErr) {
					return err
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(e.retryDelay):
				}
				continue
			}
		}

		e.tickUntilDisconnected(ctx)
	}
}

func (e *Engine) tickUntilDisconnected(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(e.tickRate))
	defer ticker.Stop()

	for e.State() == Connected {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

func (e *Engine) setState(s State) {
	if State(e.state.Swap(int32(s))) != s {
		e.emit(Event{Kind: EventStateChange})
	}
}

func (e *Engine) disconnect(kind EventKind, err error) {
	e.setState(Disconnected)
	e.emit(Event{Kind: kind, Err: err})
}

func (e *Engine) emit(ev Event) {
	if e.observer == nil {
		return
	}
	ev.Time = e.clock.Now()
	ev.State = e.State()
	if ev.Kind != EventText {
		ev.Mode = e.ActiveMode()
	}
	ev.Heartbeats, ev.Acks = e.Counters()
	e.observer(ev)
}

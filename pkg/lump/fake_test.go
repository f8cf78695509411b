// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errWire = errors.New("wire cut")

// fakeClock advances only when slept on
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeTransport records everything the sensor does and plays a scripted hub
type fakeTransport struct {
	mu    sync.Mutex
	clock *fakeClock

	writes [][]byte
	bauds  []int
	breaks []time.Duration
	rx     []byte

	echoAck    bool // hub answers the sensor's ACK with its own
	failWrite  int  // 1-based index of the write that fails (0: never)
	zeroWrites bool
}

func newFakeTransport(clock *fakeClock) *fakeTransport {
	return &fakeTransport{clock: clock, echoAck: true}
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWrite > 0 && len(f.writes)+1 == f.failWrite {
		return 0, errWire
	}
	if f.zeroWrites {
		return 0, nil
	}
	f.writes = append(f.writes, append([]byte(nil), p...))
	if f.echoAck && len(p) == 1 && p[0] == ByteAck {
		f.rx = append(f.rx, ByteAck)
	}
	return len(p), nil
}

func (f *fakeTransport) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := copy(p, f.rx)
	f.rx = f.rx[n:]
	return n, nil
}

func (f *fakeTransport) SetBaudRate(baud int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bauds = append(f.bauds, baud)
	return nil
}

func (f *fakeTransport) Break(d time.Duration) error {
	f.mu.Lock()
	f.breaks = append(f.breaks, d)
	f.mu.Unlock()
	f.clock.Sleep(d)
	return nil
}

func (f *fakeTransport) Drain() error { return nil }
func (f *fakeTransport) Close() error { return nil }

// hubSends queues bytes for the sensor to read
func (f *fakeTransport) hubSends(b ...byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rx = append(f.rx, b...)
}

func (f *fakeTransport) written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.writes...)
}

func (f *fakeTransport) lastWrite() []byte {
	w := f.written()
	if len(w) == 0 {
		return nil
	}
	return w[len(w)-1]
}

func (f *fakeTransport) clearWrites() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = nil
}

// eventLog collects observer events
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) observe(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

type testRig struct {
	engine    *Engine
	transport *fakeTransport
	clock     *fakeClock
	events    *eventLog
}

func defaultTestModes() *ModeTable {
	return MustModeTable(NewMode("LUMP-ALL", 8, Int16))
}

func newTestRig(t *testing.T, cfg Config) *testRig {
	t.Helper()
	clock := newFakeClock()
	tr := newFakeTransport(clock)
	events := &eventLog{}

	cfg.Transport = tr
	if cfg.Modes == nil {
		cfg.Modes = defaultTestModes()
	}
	cfg.Observer = events.observe

	e, err := NewEngine(cfg)
	require.NoError(t, err)
	e.clock = clock

	return &testRig{engine: e, transport: tr, clock: clock, events: events}
}

func (r *testRig) connect(t *testing.T) {
	t.Helper()
	require.NoError(t, r.engine.Connect())
	require.Equal(t, Connected, r.engine.State())
	r.transport.clearWrites()
}

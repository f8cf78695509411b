// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func threeModes() *ModeTable {
	return MustModeTable(
		NewMode("DIST", 1, Int16),
		NewMode("RAW", 4, UInt8),
		NewMode("LIGHT", 2, Float32),
	)
}

// ============================================================
// Handshake
// ============================================================

func TestConnect_HandshakeSequence(t *testing.T) {
	modes := threeModes()
	r := newTestRig(t, Config{Modes: modes, HardwareVersion: 2, SoftwareVersion: 2})

	require.NoError(t, r.engine.Connect())
	require.Equal(t, Connected, r.engine.State())

	want := [][]byte{
		{ByteSync},
		TypeFrame(DefaultSensorType),
		ModesFrame(modes),
		SpeedFrame(DefaultBaudRate),
		VersionFrame(2, 2),
	}
	for i := modes.Len() - 1; i >= 0; i-- {
		m, _ := modes.Mode(i)
		frames, err := ModeFrames(i, m)
		require.NoError(t, err)
		for _, f := range frames {
			want = append(want, f)
		}
	}
	want = append(want, []byte{ByteAck})

	got := r.transport.written()
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i], got[i], "write %d", i)
	}

	require.Equal(t, []int{BootstrapBaudRate, DefaultBaudRate}, r.transport.bauds)
	require.Equal(t, []time.Duration{DefaultResetPulse, DefaultSwitchPulse}, r.transport.breaks)
}

func TestConnect_ZeroPayloadAfterHandshake(t *testing.T) {
	r := newTestRig(t, Config{})
	require.NoError(t, r.engine.SetPayload(1, 2, 3, 4, 5, 6, 7, 8))

	require.NoError(t, r.engine.Connect())

	want, err := ZeroPayload(0, Format{Count: 8, Type: Int16})
	require.NoError(t, err)
	require.Equal(t, want, r.engine.Payload())
}

func TestConnect_NoAckTimesOut(t *testing.T) {
	r := newTestRig(t, Config{})
	r.transport.echoAck = false
	start := r.clock.Now()

	err := r.engine.Connect()
	require.ErrorIs(t, err, ErrHandshakeTimeout)
	require.Equal(t, Disconnected, r.engine.State())
	require.GreaterOrEqual(t, r.clock.Now().Sub(start), DefaultAckTimeout)
	require.Equal(t, []int{BootstrapBaudRate}, r.transport.bauds, "no speed switch after a failed handshake")
	require.Equal(t, 1, r.events.count(EventHandshakeFailed))

	// The caller may retry from scratch
	r.transport.echoAck = true
	require.NoError(t, r.engine.Connect())
	require.Equal(t, Connected, r.engine.State())
}

func TestConnect_WriteFailureAbandonsHandshake(t *testing.T) {
	r := newTestRig(t, Config{})
	r.transport.failWrite = 3 // modes frame

	err := r.engine.Connect()
	var hsErr *HandshakeError
	require.ErrorAs(t, err, &hsErr)
	require.Equal(t, "modes", hsErr.Step)
	require.ErrorIs(t, err, errWire)
	require.Equal(t, Disconnected, r.engine.State())
	require.Len(t, r.transport.written(), 2, "nothing written after the failure")
}

func TestConnect_RejectedWhenConnected(t *testing.T) {
	r := newTestRig(t, Config{})
	r.connect(t)
	require.ErrorIs(t, r.engine.Connect(), ErrAlreadyConnected)
	require.Equal(t, Connected, r.engine.State())
}

func TestConnect_EV3Profile(t *testing.T) {
	r := newTestRig(t, Config{Profile: EV3Profile{}, HardwareVersion: 2, SoftwareVersion: 2})
	require.NoError(t, r.engine.Connect())

	for _, w := range r.transport.written() {
		require.NotEqual(t, byte(HeaderVersion), w[0], "EV3 hosts get no version frame")
	}
	require.Equal(t, []time.Duration{DefaultSwitchPulse}, r.transport.breaks, "EV3 hosts get no reset pulse")
}

func TestConnect_CustomSpeed(t *testing.T) {
	r := newTestRig(t, Config{BaudRate: 57600, SensorType: 61})
	require.NoError(t, r.engine.Connect())

	got := r.transport.written()
	require.Equal(t, []byte(TypeFrame(61)), got[1])
	require.Equal(t, []byte(SpeedFrame(57600)), got[3])
	require.Equal(t, []int{BootstrapBaudRate, 57600}, r.transport.bauds)
}

// ============================================================
// Liveness
// ============================================================

func TestTick_LinkTimeoutAfterNineSilentTicks(t *testing.T) {
	r := newTestRig(t, Config{})
	r.connect(t)

	for i := 0; i < DefaultMissThreshold; i++ {
		r.engine.Tick()
		require.Equal(t, Connected, r.engine.State(), "tick %d", i+1)
	}
	r.engine.Tick()

	require.Equal(t, Disconnected, r.engine.State())
	heartbeats, acks := r.engine.Counters()
	require.Zero(t, heartbeats)
	require.Zero(t, acks)
	require.Equal(t, 1, r.events.count(EventLinkTimeout))
	require.Len(t, r.transport.written(), DefaultMissThreshold+1)
}

func TestTick_HeartbeatsKeepLinkAlive(t *testing.T) {
	r := newTestRig(t, Config{})
	r.connect(t)

	for i := 0; i < 50; i++ {
		r.transport.hubSends(ByteNack)
		r.engine.Tick()
	}
	require.Equal(t, Connected, r.engine.State())
	heartbeats, acks := r.engine.Counters()
	require.Equal(t, uint32(50), heartbeats)
	require.Equal(t, uint32(50), acks)
}

func TestTick_ExtraHeartbeatsDoNotUnderflow(t *testing.T) {
	r := newTestRig(t, Config{})
	r.connect(t)

	r.transport.hubSends(ByteNack, ByteNack, ByteNack)
	r.engine.Tick()
	require.Equal(t, Connected, r.engine.State())
}

func TestTick_SendsCurrentPayload(t *testing.T) {
	r := newTestRig(t, Config{})
	r.connect(t)

	require.NoError(t, r.engine.SetPayload(160, 120, 40, 30, 0, 1, 0, 0))
	r.engine.Tick()

	want, err := EncodePayload(0, Int16, 160, 120, 40, 30, 0, 1, 0, 0)
	require.NoError(t, err)
	require.Equal(t, []byte(want), r.transport.lastWrite())
}

func TestTick_NoopWhenDisconnected(t *testing.T) {
	r := newTestRig(t, Config{})
	r.engine.Tick()
	require.Empty(t, r.transport.written())
	heartbeats, _ := r.engine.Counters()
	require.Zero(t, heartbeats)
}

func TestTick_TransmitFailureDisconnects(t *testing.T) {
	r := newTestRig(t, Config{})
	r.connect(t)

	r.transport.zeroWrites = true
	r.engine.Tick()

	require.Equal(t, Disconnected, r.engine.State())
	require.Equal(t, 1, r.events.count(EventTransmitFailure))
}

func TestTick_ModeSelect(t *testing.T) {
	tests := []struct {
		name     string
		checksum byte
		wantMode uint8
	}{
		{"valid checksum", 0xFF ^ 0x43 ^ 0x02, 2},
		{"bad checksum", 0x00, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRig(t, Config{Modes: threeModes()})
			r.connect(t)

			r.transport.hubSends(0x43, 0x02, tt.checksum)
			r.engine.Tick()
			require.Equal(t, tt.wantMode, r.engine.ActiveMode())
		})
	}
}

func TestTick_ModeSelectChangesPayloadType(t *testing.T) {
	r := newTestRig(t, Config{Modes: threeModes()})
	r.connect(t)

	r.transport.hubSends([]byte(SelectFrame(2))...)
	r.engine.Tick()
	require.Equal(t, uint8(2), r.engine.ActiveMode())

	require.NoError(t, r.engine.SetPayload(1.5, -2.25))
	want, err := EncodePayload(2, Float32, 1.5, -2.25)
	require.NoError(t, err)
	require.Equal(t, want, r.engine.Payload())
}

func TestTick_SplitControlMessage(t *testing.T) {
	r := newTestRig(t, Config{Modes: threeModes()})
	r.connect(t)

	sel := SelectFrame(1)
	r.transport.hubSends(sel[0])
	r.engine.Tick()
	require.Equal(t, uint8(0), r.engine.ActiveMode())

	r.transport.hubSends(sel[1:]...)
	r.engine.Tick()
	require.Equal(t, uint8(1), r.engine.ActiveMode())
}

func TestTick_TextWrite(t *testing.T) {
	r := newTestRig(t, Config{})
	r.connect(t)

	sizeMode := byte(MsgData | 2<<lengthShift | 0)
	msg := []byte{sizeMode, 'A', 'B', 'C', 0}
	r.transport.hubSends(0x46, 0x00, 0xB9)
	r.transport.hubSends(AppendChecksum(msg)...)
	r.transport.hubSends(ByteNack)
	r.engine.Tick()

	require.Equal(t, "ABC", r.engine.LastText())
	_, acks := r.engine.Counters()
	require.Equal(t, uint32(1), acks, "heartbeat after the text is still counted")
	require.Equal(t, 1, r.events.count(EventText))
}

func TestTick_TextWriteBadChecksum(t *testing.T) {
	r := newTestRig(t, Config{})
	r.connect(t)

	r.transport.hubSends(0x46, 0x00, 0xB9, MsgData|1<<lengthShift, 'H', 'I', 0x00)
	r.engine.Tick()

	require.Equal(t, "", r.engine.LastText())
	require.Equal(t, 1, r.events.count(EventMalformedControl))
	require.Equal(t, Connected, r.engine.State())
}

func TestTick_UnknownControlDrainedExactly(t *testing.T) {
	r := newTestRig(t, Config{})
	r.connect(t)

	// 0x4C carries one argument; the heartbeat after it must not be swallowed
	r.transport.hubSends(0x4C, 0x20, 0xFF^0x4C^0x20, ByteNack, 0x99, ByteNack)
	r.engine.Tick()

	_, acks := r.engine.Counters()
	require.Equal(t, uint32(2), acks)
	require.Equal(t, 1, r.events.count(EventUnknownControl))
	require.Equal(t, 0, r.events.count(EventMalformedControl))
}

func TestParseControl_Incomplete(t *testing.T) {
	tests := [][]byte{
		{HeaderSelect},
		{HeaderSelect, 0x01},
		{HeaderExtMode, 0x00},
		{HeaderExtMode, 0x00, 0xB9},
		{HeaderExtMode, 0x00, 0xB9, MsgData | 2<<lengthShift, 'A'},
		{0x4C, 0x20},
	}
	for _, buf := range tests {
		if _, n := parseControl(buf); n != 0 {
			t.Errorf("% X: consumed %d bytes of an incomplete message", buf, n)
		}
	}
}

// ============================================================
// Payload & configuration
// ============================================================

func TestSetPayload_InvalidActiveMode(t *testing.T) {
	r := newTestRig(t, Config{})
	r.connect(t)

	r.transport.hubSends([]byte(SelectFrame(5))...)
	r.engine.Tick()
	require.Equal(t, uint8(5), r.engine.ActiveMode())
	require.Error(t, r.engine.SetPayload(1))
}

func TestSetPayload_ValueRange(t *testing.T) {
	r := newTestRig(t, Config{})
	before := r.engine.Payload()
	require.ErrorIs(t, r.engine.SetPayload(70000), ErrValueRange)
	require.Equal(t, before, r.engine.Payload(), "a rejected payload leaves the old one in place")
}

func TestNewEngine_RequiresTransportAndModes(t *testing.T) {
	var cfgErr *ConfigError

	_, err := NewEngine(Config{Modes: defaultTestModes()})
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewEngine(Config{Transport: newFakeTransport(newFakeClock())})
	require.ErrorAs(t, err, &cfgErr)
}

// ============================================================
// Run loop
// ============================================================

func TestRun_ReconnectsAfterLinkLoss(t *testing.T) {
	r := newTestRig(t, Config{TickRate: 200, RetryDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.engine.Run(ctx) }()

	// Without heartbeats the link drops after nine ticks and Run reconnects
	require.Eventually(t, func() bool {
		return r.events.count(EventLinkTimeout) >= 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	r := newTestRig(t, Config{})
	r.transport.echoAck = false

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, r.engine.Run(ctx), context.Canceled)
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package monitor

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/lumper/pkg/lump"
)

func newTestMetrics() *Metrics {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewMetrics(l)
}

func TestObserve(t *testing.T) {
	m := newTestMetrics()
	start := time.Now()

	events := []lump.Event{
		{Kind: lump.EventStateChange, State: lump.Handshaking, Time: start},
		{Kind: lump.EventStateChange, State: lump.Connected, Time: start},
		{Kind: lump.EventTransmit, Bytes: 19, Time: start},
		{Kind: lump.EventTransmit, Bytes: 19, Time: start},
		{Kind: lump.EventHeartbeat, Time: start},
		{Kind: lump.EventModeSelect, Mode: 2, Time: start},
		{Kind: lump.EventUnknownControl, Time: start},
		{Kind: lump.EventLinkTimeout, Time: start.Add(3 * time.Second)},
		{Kind: lump.EventHandshakeFailed, Time: start},
	}
	for _, ev := range events {
		m.Observe(ev)
	}

	require.Equal(t, 2.0, testutil.ToFloat64(m.framesSent))
	require.Equal(t, 38.0, testutil.ToFloat64(m.bytesSent))
	require.Equal(t, 1.0, testutil.ToFloat64(m.heartbeats))
	require.Equal(t, 2.0, testutil.ToFloat64(m.activeMode))
	require.Equal(t, 1.0, testutil.ToFloat64(m.linkTimeouts))
	require.Equal(t, float64(lump.Disconnected), testutil.ToFloat64(m.state))
	require.Equal(t, 1.0, testutil.ToFloat64(m.handshakes.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.handshakes.WithLabelValues("failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.badControl.WithLabelValues("unknown")))
	require.Equal(t, 1, testutil.CollectAndCount(m.connectedTime))
}

func TestHandler(t *testing.T) {
	m := newTestMetrics()
	m.Observe(lump.Event{Kind: lump.EventHeartbeat})

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Contains(t, string(body), "lumper_heartbeats_total 1")

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package monitor exports link metrics for Prometheus
package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/lumper/pkg/lump"
)

// Metrics holds the collectors for one engine
type Metrics struct {
	registry *prometheus.Registry
	log      logrus.FieldLogger

	state         prometheus.Gauge
	activeMode    prometheus.Gauge
	handshakes    *prometheus.CounterVec
	linkTimeouts  prometheus.Counter
	txFailures    prometheus.Counter
	framesSent    prometheus.Counter
	bytesSent     prometheus.Counter
	heartbeats    prometheus.Counter
	modeSelects   prometheus.Counter
	textWrites    prometheus.Counter
	badControl    *prometheus.CounterVec
	connectedTime prometheus.Histogram

	connectedAt time.Time
}

// NewMetrics registers the lumper collectors, plus the Go runtime and
// process collectors, on a private registry.
func NewMetrics(log logrus.FieldLogger) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		log:      log,

		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lumper_link_state",
			Help: "Link state (0 disconnected, 1 handshaking, 2 connected)",
		}),
		activeMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lumper_active_mode",
			Help: "Mode currently selected by the hub",
		}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumper_handshakes_total",
			Help: "Handshake attempts by result",
		}, []string{"result"}),
		linkTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumper_link_timeouts_total",
			Help: "Links dropped for missing heartbeats",
		}),
		txFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumper_transmit_failures_total",
			Help: "Links dropped for failed payload writes",
		}),
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumper_frames_sent_total",
			Help: "Data frames transmitted",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumper_bytes_sent_total",
			Help: "Data frame bytes transmitted",
		}),
		heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumper_heartbeats_total",
			Help: "Heartbeats (NACK) received from the hub",
		}),
		modeSelects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumper_mode_selects_total",
			Help: "Mode select commands received",
		}),
		textWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumper_text_writes_total",
			Help: "Text write messages received",
		}),
		badControl: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumper_bad_control_total",
			Help: "Inbound control messages that were dropped",
		}, []string{"reason"}),
		connectedTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lumper_connection_duration_seconds",
			Help:    "How long links stayed connected",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}

	m.registry.MustRegister(
		m.state,
		m.activeMode,
		m.handshakes,
		m.linkTimeouts,
		m.txFailures,
		m.framesSent,
		m.bytesSent,
		m.heartbeats,
		m.modeSelects,
		m.textWrites,
		m.badControl,
		m.connectedTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe updates the collectors from one engine event. It is meant to be
// chained into the engine's observer and so runs on the engine goroutine.
func (m *Metrics) Observe(ev lump.Event) {
	switch ev.Kind {
	case lump.EventStateChange:
		m.state.Set(float64(ev.State))
		if ev.State == lump.Connected {
			m.handshakes.WithLabelValues("ok").Inc()
			m.connectedAt = ev.Time
		}
	case lump.EventHandshakeFailed:
		m.handshakes.WithLabelValues("failed").Inc()
	case lump.EventLinkTimeout:
		m.linkTimeouts.Inc()
		m.linkLost(ev)
	case lump.EventTransmitFailure:
		m.txFailures.Inc()
		m.linkLost(ev)
	case lump.EventTransmit:
		m.framesSent.Inc()
		m.bytesSent.Add(float64(ev.Bytes))
	case lump.EventHeartbeat:
		m.heartbeats.Inc()
	case lump.EventModeSelect:
		m.modeSelects.Inc()
		m.activeMode.Set(float64(ev.Mode))
	case lump.EventText:
		m.textWrites.Inc()
	case lump.EventMalformedControl:
		m.badControl.WithLabelValues("malformed").Inc()
	case lump.EventUnknownControl:
		m.badControl.WithLabelValues("unknown").Inc()
	}
}

func (m *Metrics) linkLost(ev lump.Event) {
	m.state.Set(float64(lump.Disconnected))
	if !m.connectedAt.IsZero() {
		m.connectedTime.Observe(ev.Time.Sub(m.connectedAt).Seconds())
		m.connectedAt = time.Time{}
	}
}

// Handler returns the HTTP handler serving /metrics and /health
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// Serve runs the metrics HTTP server on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	m.log.WithField("addr", addr).Info("Metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/lumper/internal/config"
)

const mqttConnectTimeout = 10 * time.Second

// MQTT subscribes to a topic whose messages are sample vectors
type MQTT struct {
	cfg config.MQTTConfig
	log logrus.FieldLogger
}

// NewMQTT creates an MQTT source; the broker is contacted in Run
func NewMQTT(cfg config.MQTTConfig, log logrus.FieldLogger) *MQTT {
	return &MQTT{cfg: cfg, log: log}
}

// clientOptions builds paho options from the broker URL. "mqtt://" and a
// missing scheme both mean plain TCP; credentials may be given in the URL.
func (m *MQTT) clientOptions() (*paho.ClientOptions, error) {
	broker := m.cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	u, err := url.Parse(broker)
	if err != nil {
		return nil, fmt.Errorf("invalid MQTT broker URL: %w", err)
	}
	if u.Scheme == "mqtt" {
		u.Scheme = "tcp"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(u.Scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetConnectTimeout(mqttConnectTimeout)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if m.cfg.ClientID != "" {
		opts.SetClientID(m.cfg.ClientID)
	}
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		m.log.WithError(err).Warn("MQTT connection lost")
	})
	return opts, nil
}

// Run implements Source
func (m *MQTT) Run(ctx context.Context, sink Sink) error {
	opts, err := m.clientOptions()
	if err != nil {
		return err
	}

	client := paho.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(mqttConnectTimeout) {
		return fmt.Errorf("MQTT connect to %s timed out", m.cfg.Broker)
	} else if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT connect to %s failed: %w", m.cfg.Broker, err)
	}
	defer client.Disconnect(250)

	m.log.WithFields(logrus.Fields{"broker": m.cfg.Broker, "topic": m.cfg.Topic}).Info("Subscribed to MQTT values")

	token := client.Subscribe(m.cfg.Topic, 0, func(_ paho.Client, msg paho.Message) {
		values, err := ParseValues(string(msg.Payload()))
		if err != nil {
			m.log.WithError(err).WithField("topic", msg.Topic()).Warn("Ignoring MQTT message")
			return
		}
		sink(values)
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT subscribe to %s failed: %w", m.cfg.Topic, err)
	}

	<-ctx.Done()
	client.Unsubscribe(m.cfg.Topic)
	return ctx.Err()
}

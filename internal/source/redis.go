// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package source

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/lumper/internal/config"
)

// Redis subscribes to a pub/sub channel whose messages are sample vectors
type Redis struct {
	cfg config.RedisConfig
	log logrus.FieldLogger
}

// NewRedis creates a Redis source; the server is contacted in Run
func NewRedis(cfg config.RedisConfig, log logrus.FieldLogger) *Redis {
	return &Redis{cfg: cfg, log: log}
}

// Run implements Source
func (r *Redis) Run(ctx context.Context, sink Sink) error {
	client := redis.NewClient(&redis.Options{
		Addr:     r.cfg.Addr,
		Password: r.cfg.Password,
		DB:       r.cfg.DB,
	})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", r.cfg.Addr, err)
	}

	pubsub := client.Subscribe(ctx, r.cfg.Channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.cfg.Channel, err)
	}
	r.log.WithFields(logrus.Fields{"addr": r.cfg.Addr, "channel": r.cfg.Channel}).Info("Subscribed to Redis values")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis subscription to %s closed", r.cfg.Channel)
			}
			values, err := ParseValues(msg.Payload)
			if err != nil {
				r.log.WithError(err).WithField("channel", msg.Channel).Warn("Ignoring Redis message")
				continue
			}
			sink(values)
		}
	}
}

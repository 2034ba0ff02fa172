// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package events

import "time"

// Config holds the event bus settings. Loaded from the nats section of the
// main configuration; koanf handles file and environment overrides.
type Config struct {
	// Enabled controls whether event processing is active.
	Enabled bool `koanf:"enabled"`

	// URL is the NATS server connection URL.
	URL string `koanf:"url"`

	// EmbeddedServer runs an in-process NATS JetStream server instead of
	// connecting to an external one at URL.
	EmbeddedServer bool `koanf:"embedded_server"`

	// StoreDir is the JetStream storage directory for the embedded server.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory caps JetStream memory for the embedded server, in bytes.
	MaxMemory int64 `koanf:"max_memory"`

	// MaxStore caps JetStream disk usage for the embedded server, in bytes.
	MaxStore int64 `koanf:"max_store"`

	// SubscribersCount is the number of concurrent message processors per
	// topic. Values above 1 trade ordering for throughput.
	SubscribersCount int `koanf:"subscribers_count"`

	// DurableName is the JetStream durable consumer prefix.
	DurableName string `koanf:"durable_name"`

	// QueueGroup is the queue group for load balancing across instances.
	QueueGroup string `koanf:"queue_group"`

	// MaxReconnects and ReconnectWait tune client reconnection behavior.
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`

	// AckWaitTimeout is how long JetStream waits for an ack before redelivery.
	AckWaitTimeout time.Duration `koanf:"ack_wait_timeout"`

	// CloseTimeout bounds graceful subscriber shutdown.
	CloseTimeout time.Duration `koanf:"close_timeout"`

	// MaxDeliver caps redelivery attempts per message.
	MaxDeliver int `koanf:"max_deliver"`

	// MaxAckPending caps in-flight unacked messages.
	MaxAckPending int `koanf:"max_ack_pending"`

	// ConsumeRate caps handler throughput in events per second. Zero
	// disables throttling.
	ConsumeRate float64 `koanf:"consume_rate"`

	// ConsumeBurst is the throttle burst size.
	ConsumeBurst int `koanf:"consume_burst"`
}

// DefaultConfig returns production defaults for the event bus.
func DefaultConfig() Config {
	return Config{
		Enabled:          false,
		URL:              "nats://127.0.0.1:4222",
		EmbeddedServer:   true,
		StoreDir:         "./data/nats/jetstream",
		MaxMemory:        1 << 30,
		MaxStore:         10 << 30,
		SubscribersCount: 4,
		DurableName:      "streamsense",
		QueueGroup:       "aggregators",
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    1024,
		ConsumeRate:      500,
		ConsumeBurst:     1000,
	}
}

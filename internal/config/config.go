// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

// Package config loads the layered StreamSense configuration: built-in
// defaults, then an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/streamsense/streamsense/internal/chat"
	"github.com/streamsense/streamsense/internal/events"
	"github.com/streamsense/streamsense/internal/logging"
	"github.com/streamsense/streamsense/internal/ratelimit"
	"github.com/streamsense/streamsense/internal/recommend"
	"github.com/streamsense/streamsense/internal/store"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Chat      chat.Config      `koanf:"chat"`
	RateLimit ratelimit.Config `koanf:"rate_limit"`
	Recommend recommend.Config `koanf:"recommend"`
	Store     store.Config     `koanf:"store"`
	NATS      events.Config    `koanf:"nats"`
	Logging   logging.Config   `koanf:"logging"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	// Host and Port define the listen address.
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// ReadTimeout and WriteTimeout bound individual requests. WriteTimeout
	// does not apply to hijacked WebSocket connections.
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// ShutdownTimeout bounds graceful drain on exit.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed origins for browser clients.
	CORSOrigins []string `koanf:"cors_origins"`

	// HTTPRateLimit caps requests per client IP per HTTPRateWindow.
	// Zero disables the HTTP-level limiter; the chat rate limiter is
	// independent and always active.
	HTTPRateLimit  int           `koanf:"http_rate_limit"`
	HTTPRateWindow time.Duration `koanf:"http_rate_window"`
}

// defaultConfig returns the built-in defaults. These are applied first,
// then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8090,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"*"},
			HTTPRateLimit:   300,
			HTTPRateWindow:  time.Minute,
		},
		Chat:      chat.DefaultConfig(),
		RateLimit: ratelimit.DefaultConfig(),
		Recommend: recommend.DefaultConfig(),
		Store:     store.DefaultConfig(),
		NATS:      events.DefaultConfig(),
		Logging: logging.Config{
			Level:     "info",
			Format:    "json",
			Timestamp: true,
		},
	}
}

// Validate checks cross-field constraints. Section-specific validation is
// delegated to the owning packages where they provide it.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}

	if c.RateLimit.Cooldown < 0 {
		return fmt.Errorf("rate_limit.cooldown must not be negative")
	}
	if c.RateLimit.PerMinute <= 0 || c.RateLimit.PerHour <= 0 {
		return fmt.Errorf("rate_limit.per_minute and rate_limit.per_hour must be positive")
	}
	if c.RateLimit.PerHour < c.RateLimit.PerMinute {
		return fmt.Errorf("rate_limit.per_hour %d below rate_limit.per_minute %d",
			c.RateLimit.PerHour, c.RateLimit.PerMinute)
	}

	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}

	if c.Chat.HistoryLimit <= 0 {
		return fmt.Errorf("chat.history_limit must be positive")
	}
	if c.Chat.ActivityWindow <= 0 {
		return fmt.Errorf("chat.activity_window must be positive")
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats.enabled is set")
	}

	return nil
}

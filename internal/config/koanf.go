// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where the config file is searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/streamsense/config.yaml",
	"/etc/streamsense/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "STREAMSENSE_CONFIG"

// Load builds the configuration from layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom loads configuration with an explicit config file path. An empty
// path skips the file layer.
func LoadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// they arrive from the environment as strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"recommend.fallback",
}

// processSliceFields converts comma-separated env strings to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are skipped so random environment noise never leaks
// into the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"streamsense_host":             "server.host",
		"streamsense_port":             "server.port",
		"streamsense_read_timeout":     "server.read_timeout",
		"streamsense_write_timeout":    "server.write_timeout",
		"streamsense_shutdown_timeout": "server.shutdown_timeout",
		"streamsense_cors_origins":     "server.cors_origins",
		"streamsense_http_rate_limit":  "server.http_rate_limit",
		"streamsense_http_rate_window": "server.http_rate_window",

		// Chat
		"streamsense_chat_history_limit":   "chat.history_limit",
		"streamsense_chat_activity_window": "chat.activity_window",

		// Chat rate limiter
		"streamsense_rate_cooldown":   "rate_limit.cooldown",
		"streamsense_rate_per_minute": "rate_limit.per_minute",
		"streamsense_rate_per_hour":   "rate_limit.per_hour",
		"streamsense_rate_max_keys":   "rate_limit.max_keys",

		// Recommendation engine
		"streamsense_recommend_collaborative_threshold": "recommend.collaborative_threshold",
		"streamsense_recommend_content_threshold":       "recommend.content_threshold",
		"streamsense_recommend_top_neighbors":           "recommend.top_neighbors",
		"streamsense_recommend_items_per_neighbor":      "recommend.items_per_neighbor",
		"streamsense_recommend_max_items":               "recommend.max_items",
		"streamsense_recommend_max_recent":              "recommend.max_recent_interactions",
		"streamsense_recommend_cache_ttl":               "recommend.cache_ttl",
		"streamsense_recommend_fallback":                "recommend.fallback",

		// Side store
		"streamsense_store_dir":       "store.dir",
		"streamsense_store_in_memory": "store.in_memory",
		"streamsense_store_ttl":       "store.ttl",

		// NATS event bus
		"streamsense_nats_enabled":      "nats.enabled",
		"streamsense_nats_url":          "nats.url",
		"streamsense_nats_embedded":     "nats.embedded_server",
		"streamsense_nats_store_dir":    "nats.store_dir",
		"streamsense_nats_max_memory":   "nats.max_memory",
		"streamsense_nats_max_store":    "nats.max_store",
		"streamsense_nats_subscribers":  "nats.subscribers_count",
		"streamsense_nats_durable_name": "nats.durable_name",
		"streamsense_nats_queue_group":  "nats.queue_group",

		// Logging
		"streamsense_log_level":  "logging.level",
		"streamsense_log_format": "logging.format",
		"streamsense_log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	return ""
}

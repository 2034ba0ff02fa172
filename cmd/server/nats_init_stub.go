// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

//go:build !nats

package main

import (
	"context"

	"github.com/streamsense/streamsense/internal/chat"
	"github.com/streamsense/streamsense/internal/config"
	"github.com/streamsense/streamsense/internal/logging"
	"github.com/streamsense/streamsense/internal/recommend"
	"github.com/streamsense/streamsense/internal/supervisor"
)

// EventBus is a stub for non-NATS builds.
type EventBus struct{}

// InitEventBus is a no-op stub for non-NATS builds. Returns nil to indicate
// the event bus is not available.
func InitEventBus(_ context.Context, cfg *config.Config, _ *chat.Service, _ *recommend.Engine) (*EventBus, error) {
	if cfg.NATS.Enabled {
		logging.Warn().Msg("nats.enabled=true but NATS support not compiled (build with -tags nats)")
	}
	return nil, nil
}

// Run is a no-op stub for non-NATS builds.
func (b *EventBus) Run(_ context.Context) error {
	return nil
}

// Close is a no-op stub for non-NATS builds.
func (b *EventBus) Close() error {
	return nil
}

// AddEventBusToSupervisor is a no-op stub for non-NATS builds. The bus will
// be nil from the stub InitEventBus.
func AddEventBusToSupervisor(_ *supervisor.Tree, _ *EventBus) {
	// No-op: NATS not compiled in
}

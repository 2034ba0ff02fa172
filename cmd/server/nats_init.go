// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

//go:build nats

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/streamsense/streamsense/internal/chat"
	"github.com/streamsense/streamsense/internal/config"
	"github.com/streamsense/streamsense/internal/events"
	"github.com/streamsense/streamsense/internal/logging"
	"github.com/streamsense/streamsense/internal/recommend"
	"github.com/streamsense/streamsense/internal/supervisor"
	"github.com/streamsense/streamsense/internal/supervisor/services"
)

// EventBus bundles the NATS components: the optional embedded server, the
// Watermill publisher wired into the chat service, and the JetStream consumer
// feeding the recommendation engine.
type EventBus struct {
	server    *events.EmbeddedServer
	publisher *events.Publisher
	consumer  *events.Consumer
}

// InitEventBus builds the event bus from config. Returns (nil, nil) when NATS
// is disabled; main treats a nil bus as "no event bus".
func InitEventBus(ctx context.Context, cfg *config.Config, chatSvc *chat.Service, engine *recommend.Engine) (*EventBus, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS event bus disabled")
		return nil, nil
	}

	natsCfg := cfg.NATS

	var srv *events.EmbeddedServer
	if natsCfg.EmbeddedServer {
		var err error
		srv, err = events.NewEmbeddedServer(natsCfg)
		if err != nil {
			return nil, fmt.Errorf("embedded NATS server: %w", err)
		}
		natsCfg.URL = srv.ClientURL()
		logging.Info().Str("url", natsCfg.URL).Msg("Embedded NATS server started")
	}

	shutdownServer := func() {
		if srv == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("Embedded NATS server shutdown failed")
		}
	}

	if err := events.EnsureStream(ctx, natsCfg.URL); err != nil {
		shutdownServer()
		return nil, fmt.Errorf("jetstream stream: %w", err)
	}

	wmLogger := events.NewWatermillLogger(logging.Logger())

	publisher, err := events.NewPublisher(natsCfg, wmLogger)
	if err != nil {
		shutdownServer()
		return nil, fmt.Errorf("event publisher: %w", err)
	}
	chatSvc.SetPublisher(publisher)

	handlers := events.NewHandlers(engine, events.NewThrottle(natsCfg), logging.Logger())
	consumer, err := events.NewConsumer(natsCfg, handlers, wmLogger)
	if err != nil {
		if closeErr := publisher.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Event publisher close failed")
		}
		shutdownServer()
		return nil, fmt.Errorf("event consumer: %w", err)
	}

	logging.Info().
		Str("url", natsCfg.URL).
		Int("subscribers", natsCfg.SubscribersCount).
		Msg("NATS event bus initialized")

	return &EventBus{server: srv, publisher: publisher, consumer: consumer}, nil
}

// Run blocks consuming events until the context is canceled.
func (b *EventBus) Run(ctx context.Context) error {
	return b.consumer.Run(ctx)
}

// Close tears the bus down: consumer, publisher, then the embedded server.
func (b *EventBus) Close() error {
	var firstErr error
	if err := b.consumer.Close(); err != nil {
		firstErr = err
	}
	if err := b.publisher.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if b.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.server.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// AddEventBusToSupervisor adds the bus to the events layer. No-op when the
// bus is nil (NATS disabled via config).
func AddEventBusToSupervisor(tree *supervisor.Tree, bus *EventBus) {
	if bus == nil {
		return
	}
	tree.AddEventsService(services.NewConsumerService(bus))
	logging.Info().Msg("Event bus added to supervisor tree (events layer)")
}

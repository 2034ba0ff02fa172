// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

// Package main is the entry point for the StreamSense server.
//
// StreamSense is a streaming chat analytics service: chat rooms with
// WebSocket fan-out, per-user rate limiting, and an in-process
// recommendation engine fed by chat and interaction events.
//
// # Startup Order
//
//  1. Configuration: koanf v2 layering defaults, config.yaml and env vars
//  2. Rate limiter, recommendation engine, room registry, chat service
//  3. BadgerDB side store for profile and room snapshots
//  4. NATS event bus (optional, requires build with -tags nats)
//  5. Supervisor tree: registry loop, event consumer, HTTP server
//
// # Build Tags
//
//	go build ./cmd/server              # in-process only
//	go build -tags nats ./cmd/server   # enable the NATS JetStream event bus
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger a graceful shutdown: the HTTP server drains
// in-flight requests, the registry closes every WebSocket session, and the
// event consumer detaches from its stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streamsense/streamsense/internal/api"
	"github.com/streamsense/streamsense/internal/chat"
	"github.com/streamsense/streamsense/internal/config"
	"github.com/streamsense/streamsense/internal/logging"
	"github.com/streamsense/streamsense/internal/ratelimit"
	"github.com/streamsense/streamsense/internal/recommend"
	"github.com/streamsense/streamsense/internal/rooms"
	"github.com/streamsense/streamsense/internal/store"
	"github.com/streamsense/streamsense/internal/supervisor"
	"github.com/streamsense/streamsense/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.Logging)
	logging.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting StreamSense")

	limiter := ratelimit.New(cfg.RateLimit)
	logging.Info().
		Dur("cooldown", cfg.RateLimit.Cooldown).
		Int64("per_minute", cfg.RateLimit.PerMinute).
		Int64("per_hour", cfg.RateLimit.PerHour).
		Msg("Rate limiter initialized")

	engine, err := recommend.NewEngine(cfg.Recommend, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize recommendation engine")
	}
	defer engine.Close()

	registry := rooms.NewRegistry()
	chatSvc := chat.NewService(cfg.Chat, limiter, registry, engine, logging.Logger())

	// BadgerDB side store for best-effort snapshots of rooms, messages,
	// profiles and recommendations.
	sideStore, err := store.New(cfg.Store, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open side store")
	}
	defer func() {
		if err := sideStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing side store")
		}
	}()
	chatSvc.SetStore(sideStore)
	engine.SetStore(sideStore)
	logging.Info().Bool("in_memory", cfg.Store.InMemory).Str("dir", cfg.Store.Dir).Msg("Side store initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// sutureslog bridges zerolog to slog for supervisor event logging.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	// Event bus is optional: requires NATS to be enabled in config and the
	// binary built with -tags nats.
	bus, err := InitEventBus(ctx, cfg, chatSvc, engine)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event bus")
	}
	AddEventBusToSupervisor(tree, bus)

	handler := api.NewHandler(chatSvc, engine, limiter, registry, cfg.Server.CORSOrigins, logging.Logger())
	router := api.NewRouter(handler, api.RouterConfig{
		CORSOrigins:    cfg.Server.CORSOrigins,
		HTTPRateLimit:  cfg.Server.HTTPRateLimit,
		HTTPRateWindow: cfg.Server.HTTPRateWindow,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	tree.AddRealtimeService(services.NewRegistryService(registry))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain the error channel until the supervisor finishes.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("StreamSense stopped gracefully")
}

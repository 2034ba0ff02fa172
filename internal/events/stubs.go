// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

//go:build !nats

package events

import (
	"context"
	"fmt"

	"github.com/streamsense/streamsense/internal/chat"
)

// errNotAvailable is returned by every stub entry point.
var errNotAvailable = fmt.Errorf("NATS event bus not available: build with -tags=nats")

// Publisher is a stub when NATS dependencies are not compiled in.
// Build with -tags=nats to enable full Watermill publisher support.
type Publisher struct{}

// NewPublisher returns an error when NATS dependencies are not compiled in.
func NewPublisher(cfg Config, logger interface{}) (*Publisher, error) {
	return nil, errNotAvailable
}

// PublishEvent is a stub that returns an error.
func (p *Publisher) PublishEvent(ctx context.Context, event *Event) error {
	return errNotAvailable
}

// PublishChatMessage is a stub that returns an error.
func (p *Publisher) PublishChatMessage(ctx context.Context, msg chat.Message) error {
	return errNotAvailable
}

// PublishSentimentRequest is a stub that returns an error.
func (p *Publisher) PublishSentimentRequest(ctx context.Context, msg chat.Message) error {
	return errNotAvailable
}

// Close is a no-op stub.
func (p *Publisher) Close() error {
	return nil
}

// Consumer is a stub when NATS dependencies are not compiled in.
type Consumer struct{}

// NewConsumer returns an error when NATS dependencies are not compiled in.
func NewConsumer(cfg Config, handlers *Handlers, logger interface{}) (*Consumer, error) {
	return nil, errNotAvailable
}

// Run is a stub that returns an error.
func (c *Consumer) Run(ctx context.Context) error {
	return errNotAvailable
}

// Close is a no-op stub.
func (c *Consumer) Close() error {
	return nil
}

// EmbeddedServer is a stub when NATS dependencies are not compiled in.
type EmbeddedServer struct{}

// NewEmbeddedServer returns an error when NATS dependencies are not compiled in.
func NewEmbeddedServer(cfg Config) (*EmbeddedServer, error) {
	return nil, errNotAvailable
}

// ClientURL returns an empty string for the stub.
func (s *EmbeddedServer) ClientURL() string {
	return ""
}

// Shutdown is a no-op stub.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	return nil
}

// IsRunning always reports false for the stub.
func (s *EmbeddedServer) IsRunning() bool {
	return false
}

// EnsureStream is a stub that returns an error.
func EnsureStream(ctx context.Context, url string) error {
	return errNotAvailable
}

// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package services

import (
	"context"
	"errors"
)

// EventConsumer matches the event bus consumer's lifecycle without importing
// the events package.
type EventConsumer interface {
	Run(ctx context.Context) error
	Close() error
}

// ConsumerService wraps the event bus consumer as a supervised service.
// Run blocks until the context is canceled; Close tears the subscriber down
// afterwards so a restart reconnects from scratch.
type ConsumerService struct {
	consumer EventConsumer
	name     string
}

// NewConsumerService creates an event consumer service wrapper.
func NewConsumerService(consumer EventConsumer) *ConsumerService {
	return &ConsumerService{
		consumer: consumer,
		name:     "event-consumer",
	}
}

// Serve implements suture.Service.
func (c *ConsumerService) Serve(ctx context.Context) error {
	runErr := c.consumer.Run(ctx)
	if closeErr := c.consumer.Close(); closeErr != nil && runErr == nil {
		return closeErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture's log messages.
func (c *ConsumerService) String() string {
	return c.name
}

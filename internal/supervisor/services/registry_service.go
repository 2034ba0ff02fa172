// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package services

import (
	"context"
)

// ContextRunner matches the room registry's RunWithContext method without
// importing the rooms package.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// RegistryService wraps the room registry broadcast loop as a supervised
// service. RunWithContext already follows the suture.Service pattern, so the
// wrapper only delegates and names the service for logging.
type RegistryService struct {
	registry ContextRunner
	name     string
}

// NewRegistryService creates a registry service wrapper.
func NewRegistryService(registry ContextRunner) *RegistryService {
	return &RegistryService{
		registry: registry,
		name:     "room-registry",
	}
}

// Serve implements suture.Service. Returns ctx.Err() on normal shutdown;
// the registry closes all sessions before returning so a restarted loop
// starts clean.
func (r *RegistryService) Serve(ctx context.Context) error {
	return r.registry.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture's log messages.
func (r *RegistryService) String() string {
	return r.name
}

// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockHTTPServer simulates http.Server's blocking lifecycle.
type mockHTTPServer struct {
	listenErr   error
	shutdownErr error
	stopped     chan struct{}
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{stopped: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stopped
	return errors.New("http: Server closed")
}

func (m *mockHTTPServer) Shutdown(ctx context.Context) error {
	close(m.stopped)
	return m.shutdownErr
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	srv := newMockHTTPServer()
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestHTTPServerServiceStartFailure(t *testing.T) {
	srv := newMockHTTPServer()
	srv.listenErr = errors.New("bind: address already in use")
	svc := NewHTTPServerService(srv, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, srv.listenErr) {
		t.Errorf("Serve returned %v, want wrapped listen error", err)
	}
}

func TestHTTPServerServiceDefaultsTimeout(t *testing.T) {
	svc := NewHTTPServerService(newMockHTTPServer(), 0)
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("shutdownTimeout = %v, want 10s default", svc.shutdownTimeout)
	}
}

type mockRunner struct {
	ran chan struct{}
}

func (m *mockRunner) RunWithContext(ctx context.Context) error {
	close(m.ran)
	<-ctx.Done()
	return ctx.Err()
}

func TestRegistryServiceDelegates(t *testing.T) {
	runner := &mockRunner{ran: make(chan struct{})}
	svc := NewRegistryService(runner)
	if svc.String() != "room-registry" {
		t.Errorf("String() = %q, want room-registry", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	select {
	case <-runner.ran:
	case <-time.After(time.Second):
		t.Fatal("RunWithContext was not called")
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

type mockConsumer struct {
	runErr   error
	closed   bool
	closeErr error
}

func (m *mockConsumer) Run(ctx context.Context) error {
	if m.runErr != nil {
		return m.runErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockConsumer) Close() error {
	m.closed = true
	return m.closeErr
}

func TestConsumerServiceClosesAfterRun(t *testing.T) {
	consumer := &mockConsumer{}
	svc := NewConsumerService(consumer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want context.Canceled", err)
	}
	if !consumer.closed {
		t.Error("consumer was not closed after Run returned")
	}
}

func TestConsumerServiceSurfacesRunError(t *testing.T) {
	consumer := &mockConsumer{runErr: errors.New("subscribe failed")}
	svc := NewConsumerService(consumer)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, consumer.runErr) {
		t.Errorf("Serve returned %v, want run error", err)
	}
	if !consumer.closed {
		t.Error("consumer was not closed after a failed Run")
	}
}

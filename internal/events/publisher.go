// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

//go:build nats

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/streamsense/streamsense/internal/chat"
	"github.com/streamsense/streamsense/internal/metrics"
)

// Publisher wraps a Watermill NATS publisher with circuit breaker
// protection. It implements the chat service's EventPublisher interface.
type Publisher struct {
	publisher      message.Publisher
	serializer     *Serializer
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	logger         watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// NewPublisher creates a resilient JetStream publisher. Message IDs are
// tracked for deduplication.
func NewPublisher(cfg Config, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // stream is pre-created by EnsureStream
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &Publisher{
		publisher:      pub,
		serializer:     NewSerializer(),
		circuitBreaker: newPublishBreaker(),
		logger:         logger,
	}, nil
}

// newPublishBreaker builds the publish-side circuit breaker with metrics
// wired to its state changes.
func newPublishBreaker() *gobreaker.CircuitBreaker[interface{}] {
	const name = "event-publisher"
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(n string, from, to gobreaker.State) {
			metrics.CircuitBreakerTransitions.WithLabelValues(n, from.String(), to.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(n).Set(breakerStateValue(to))
		},
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker[interface{}](settings)
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// Publish sends a message to the topic with circuit breaker protection.
// The message UUID doubles as the Nats-Msg-Id for deduplication.
func (p *Publisher) Publish(ctx context.Context, topic string, msg *message.Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("publisher is closed")
	}
	p.mu.RUnlock()

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	_, err := p.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, p.publisher.Publish(topic, msg)
	})

	if err == nil {
		metrics.CircuitBreakerRequests.WithLabelValues("event-publisher", "success").Inc()
		metrics.EventsPublished.WithLabelValues(topic).Inc()
	} else if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		metrics.CircuitBreakerRequests.WithLabelValues("event-publisher", "rejected").Inc()
	} else {
		metrics.CircuitBreakerRequests.WithLabelValues("event-publisher", "failure").Inc()
	}

	return err
}

// PublishEvent serializes and publishes one analytics event to its topic.
func (p *Publisher) PublishEvent(ctx context.Context, event *Event) error {
	data, err := p.serializer.Marshal(event)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set("type", event.Type)
	if event.RoomID != "" {
		msg.Metadata.Set("room_id", event.RoomID)
	}

	return p.Publish(ctx, event.Topic(), msg)
}

// PublishChatMessage publishes an accepted chat message to the bus.
func (p *Publisher) PublishChatMessage(ctx context.Context, msg chat.Message) error {
	event := New(TypeChatMessage)
	event.RoomID = msg.RoomID
	event.UserID = msg.UserID
	event.Username = msg.Username
	event.MessageID = msg.ID
	event.Content = msg.Content
	event.MessageType = msg.MessageType
	event.Timestamp = msg.Timestamp

	return p.PublishEvent(ctx, event)
}

// PublishSentimentRequest asks the external analyzer to score a text message.
func (p *Publisher) PublishSentimentRequest(ctx context.Context, msg chat.Message) error {
	event := New(TypeSentimentRequest)
	event.RoomID = msg.RoomID
	event.UserID = msg.UserID
	event.MessageID = msg.ID
	event.Content = msg.Content
	event.Timestamp = msg.Timestamp

	return p.PublishEvent(ctx, event)
}

// Close gracefully shuts down the publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return p.publisher.Close()
}

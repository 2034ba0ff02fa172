// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package events

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/streamsense/streamsense/internal/metrics"
	"github.com/streamsense/streamsense/internal/recommend"
)

// Handlers routes consumed events into the recommendation engine.
//
// Malformed and invalid payloads are counted, logged, and dropped so they
// are never redelivered. A returned error means transient failure; the
// consumer nacks and JetStream redelivers.
type Handlers struct {
	engine     *recommend.Engine
	serializer *Serializer
	throttle   *rate.Limiter
	logger     zerolog.Logger
}

// NewHandlers creates the event handler set. A nil throttle disables
// rate limiting.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandlers(engine *recommend.Engine, throttle *rate.Limiter, logger zerolog.Logger) *Handlers {
	return &Handlers{
		engine:     engine,
		serializer: NewSerializer(),
		throttle:   throttle,
		logger:     logger.With().Str("component", "events").Logger(),
	}
}

// NewThrottle builds the consume-rate limiter from config. Returns nil when
// throttling is disabled.
func NewThrottle(cfg Config) *rate.Limiter {
	if cfg.ConsumeRate <= 0 {
		return nil
	}
	burst := cfg.ConsumeBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.ConsumeRate), burst)
}

// Handle processes one raw message from the given topic.
func (h *Handlers) Handle(ctx context.Context, topic string, payload []byte) error {
	if h.throttle != nil {
		if err := h.throttle.Wait(ctx); err != nil {
			return err
		}
	}

	event, err := h.serializer.Unmarshal(payload)
	if err != nil {
		metrics.EventsMalformed.WithLabelValues(topic).Inc()
		h.logger.Warn().Err(err).Str("topic", topic).Msg("dropping undecodable event")
		return nil
	}
	if err := event.Validate(); err != nil {
		metrics.EventsMalformed.WithLabelValues(topic).Inc()
		h.logger.Warn().Err(err).Str("topic", topic).Str("event_id", event.EventID).Msg("dropping invalid event")
		return nil
	}

	h.dispatch(event)
	metrics.EventsConsumed.WithLabelValues(topic).Inc()
	return nil
}

// dispatch applies one valid event to the engine. Engine-side validation
// failures are dropped the same way as malformed payloads.
func (h *Handlers) dispatch(event *Event) {
	var err error

	switch event.Type {
	case TypeInteraction:
		err = h.engine.RecordInteraction(event.UserID, event.ItemID,
			recommend.InteractionType(event.Interaction), event.Timestamp)

	case TypeSentimentScored:
		err = h.engine.ProcessSentiment(event.UserID, event.ItemID, *event.Sentiment, event.Content)

	case TypeContentAnalysis:
		err = h.engine.ProcessContentAnalysis(event.ItemID, event.Features, event.ViewerCount)

	case TypeChatMessage, TypeSentimentRequest:
		// Produced by this process; consumed by external analyzers.
		// Counting them is all the aggregator does.
	}

	if err != nil {
		h.logger.Warn().Err(err).
			Str("event_id", event.EventID).
			Str("type", event.Type).
			Msg("event rejected by engine")
	}
}

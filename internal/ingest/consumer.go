// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package ingest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/time/rate"

	"github.com/arguslabs/argus/internal/config"
	"github.com/arguslabs/argus/internal/logging"
	"github.com/arguslabs/argus/internal/metrics"
)

// busRetryDelay is the backoff after a bus connectivity error.
const busRetryDelay = time.Second

// EventConsumer reads the audit-event topic, normalizes payloads, and
// drives the flusher. One consumer goroutine owns the buffer, so ordering
// within a flush is insertion order.
//
// Offsets are committed at the bus as messages are read, independent of
// flush success: a rolled-back flush loses its batch. Deferring commits to
// post-flush would change redelivery semantics for the whole group and is
// deliberately not done here.
type EventConsumer struct {
	reader      *kafka.Reader
	flusher     *Flusher
	pollTimeout time.Duration
	topic       string

	// warnLimiter throttles malformed-payload warnings so a poisoned topic
	// cannot flood the log.
	warnLimiter *rate.Limiter
}

// NewEventConsumer creates the event consumer.
func NewEventConsumer(cfg *config.KafkaConfig, flusher *Flusher) *EventConsumer {
	return &EventConsumer{
		reader:      newReader(cfg, cfg.Topic),
		flusher:     flusher,
		pollTimeout: cfg.PollTimeout,
		topic:       cfg.Topic,
		warnLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

func newReader(cfg *config.KafkaConfig, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        strings.Split(cfg.BootstrapServers, ","),
		GroupID:        cfg.GroupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10 * 1024 * 1024,
		CommitInterval: 0, // synchronous commit on read
		MaxWait:        cfg.PollTimeout,
	})
}

// Serve runs the consume loop until ctx is cancelled, then attempts a final
// flush before closing the reader. Satisfies suture.Service.
func (c *EventConsumer) Serve(ctx context.Context) error {
	defer func() { _ = c.reader.Close() }()

	logging.Info().Str("topic", c.topic).Msg("event consumer started")
	for {
		pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
		msg, err := c.reader.ReadMessage(pollCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				c.finalFlush()
				return ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				// Idle poll: the interval-based flush still fires.
				if err := c.flusher.MaybeFlush(ctx); err != nil {
					logging.Warn().Err(err).Msg("idle flush failed")
				}
				continue
			}
			logging.Warn().Err(err).Str("topic", c.topic).Msg("bus fetch failed, retrying")
			if !sleepCtx(ctx, busRetryDelay) {
				c.finalFlush()
				return ctx.Err()
			}
			continue
		}

		ev, err := NormalizeEvent(msg.Value)
		if err != nil {
			metrics.MessagesConsumed.WithLabelValues(c.topic, "malformed").Inc()
			if c.warnLimiter.Allow() {
				logging.Warn().Err(err).
					Str("topic", c.topic).
					Int64("offset", msg.Offset).
					Msg("dropping malformed event payload")
			}
			continue
		}
		metrics.MessagesConsumed.WithLabelValues(c.topic, "ok").Inc()

		c.flusher.Add(ev)
		if err := c.flusher.MaybeFlush(ctx); err != nil {
			logging.Warn().Err(err).Msg("flush failed")
		}
	}
}

// finalFlush is the best-effort flush on shutdown.
func (c *EventConsumer) finalFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.flusher.Flush(ctx); err != nil {
		logging.Warn().Err(err).Msg("final flush failed")
	}
	logging.Info().Str("topic", c.topic).Msg("event consumer stopped")
}

// sleepCtx sleeps unless ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

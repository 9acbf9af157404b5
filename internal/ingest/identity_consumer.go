// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/time/rate"

	"github.com/arguslabs/argus/internal/config"
	"github.com/arguslabs/argus/internal/logging"
	"github.com/arguslabs/argus/internal/metrics"
	"github.com/arguslabs/argus/internal/models"
)

// IdentityStore applies one identity message.
type IdentityStore interface {
	UpsertIdentity(ctx context.Context, id *models.CloudIdentity) error
}

// IdentityConsumer reads the identities topic and upserts one identity per
// message. Store failures are logged and swallowed; the message is not
// redelivered under bus-level offset commits.
type IdentityConsumer struct {
	reader      *kafka.Reader
	store       IdentityStore
	pollTimeout time.Duration
	topic       string
	warnLimiter *rate.Limiter
}

// NewIdentityConsumer creates the identity consumer.
func NewIdentityConsumer(cfg *config.KafkaConfig, store IdentityStore) *IdentityConsumer {
	return &IdentityConsumer{
		reader:      newReader(cfg, cfg.IdentitiesTopic),
		store:       store,
		pollTimeout: cfg.PollTimeout,
		topic:       cfg.IdentitiesTopic,
		warnLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Serve runs the consume loop until ctx is cancelled. Satisfies
// suture.Service.
func (c *IdentityConsumer) Serve(ctx context.Context) error {
	defer func() { _ = c.reader.Close() }()

	logging.Info().Str("topic", c.topic).Msg("identity consumer started")
	for {
		pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
		msg, err := c.reader.ReadMessage(pollCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				logging.Info().Str("topic", c.topic).Msg("identity consumer stopped")
				return ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logging.Warn().Err(err).Str("topic", c.topic).Msg("bus fetch failed, retrying")
			if !sleepCtx(ctx, busRetryDelay) {
				return ctx.Err()
			}
			continue
		}

		identity, err := ParseIdentity(msg.Value)
		if err != nil {
			metrics.MessagesConsumed.WithLabelValues(c.topic, "malformed").Inc()
			if c.warnLimiter.Allow() {
				logging.Warn().Err(err).
					Str("topic", c.topic).
					Int64("offset", msg.Offset).
					Msg("dropping malformed identity payload")
			}
			continue
		}
		metrics.MessagesConsumed.WithLabelValues(c.topic, "ok").Inc()

		if err := c.store.UpsertIdentity(ctx, identity); err != nil {
			metrics.IdentitiesUpserted.WithLabelValues("error").Inc()
			logging.Warn().Err(err).
				Str("identity_arn", identity.IdentityARN).
				Msg("identity upsert failed, message dropped")
			continue
		}
		metrics.IdentitiesUpserted.WithLabelValues("ok").Inc()
	}
}

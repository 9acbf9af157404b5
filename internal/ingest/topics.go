// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/arguslabs/argus/internal/config"
	"github.com/arguslabs/argus/internal/logging"
)

// EnsureTopics creates the event and identity topics with a single
// partition and replication factor one when they do not exist. Creation
// failure is logged and startup proceeds: the broker may disallow topic
// administration while the topics already exist.
func EnsureTopics(ctx context.Context, cfg *config.KafkaConfig) {
	client := &kafka.Client{
		Addr:    kafka.TCP(strings.Split(cfg.BootstrapServers, ",")...),
		Timeout: 10 * time.Second,
	}

	topics := []kafka.TopicConfig{
		{Topic: cfg.Topic, NumPartitions: 1, ReplicationFactor: 1},
		{Topic: cfg.IdentitiesTopic, NumPartitions: 1, ReplicationFactor: 1},
	}

	resp, err := client.CreateTopics(ctx, &kafka.CreateTopicsRequest{Topics: topics})
	if err != nil {
		logging.Warn().Err(err).Msg("topic creation failed, proceeding")
		return
	}
	for topic, topicErr := range resp.Errors {
		if topicErr != nil && !strings.Contains(topicErr.Error(), "already exists") {
			logging.Warn().Err(topicErr).Str("topic", topic).Msg("topic creation failed, proceeding")
		}
	}
	logging.Info().
		Str("events_topic", cfg.Topic).
		Str("identities_topic", cfg.IdentitiesTopic).
		Msg("bus topics ensured")
}

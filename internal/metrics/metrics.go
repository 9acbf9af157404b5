// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

// Package metrics registers the Prometheus instruments for the pipeline,
// the detector, and the HTTP surface. All instruments register through
// promauto on the default registry, exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics.

	MessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_messages_consumed_total",
			Help: "Messages fetched from the bus by topic and outcome",
		},
		[]string{"topic", "outcome"}, // outcome: ok, malformed, dropped
	)

	EventsBuffered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "argus_events_buffered",
			Help: "Events currently held in the flush buffer",
		},
	)

	EventsFlushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "argus_events_flushed_total",
			Help: "Events committed by successful flushes",
		},
	)

	FlushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_flushes_total",
			Help: "Flush attempts by outcome",
		},
		[]string{"outcome"}, // ok, error
	)

	FlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "argus_flush_duration_seconds",
			Help:    "Wall-clock duration of one flush transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	IdentitiesUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_identities_upserted_total",
			Help: "Identity messages applied by outcome",
		},
		[]string{"outcome"}, // ok, error
	)

	// Detection metrics.

	AlertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_alerts_emitted_total",
			Help: "Security alerts emitted by rule code and severity",
		},
		[]string{"rule_code", "severity"},
	)

	ProfilesBuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "argus_profiles_built_total",
			Help: "Entity profiles written by the profile builder",
		},
	)

	// Subscriber metrics.

	AlertSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "argus_alert_subscribers",
			Help: "Live alert subscribers across all tenants",
		},
	)

	// HTTP metrics.

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "argus_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)

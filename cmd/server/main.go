// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

// Package main is the entry point for the Argus server.
//
// Argus ingests cloud audit events from a Kafka bus, normalizes them into
// a canonical schema, persists them in Postgres, and runs a layered
// violation detector over every batch. Alerts stream to per-tenant
// WebSocket subscribers; a background job distills per-entity behavior
// profiles that feed the detector and the optional isolation-forest
// anomaly layer.
//
// Startup order:
//
//  1. Configuration: layered Koanf v2 load (defaults, YAML, environment)
//  2. Logging: zerolog, configured from LOG_LEVEL / LOG_FORMAT
//  3. Database: Postgres via pgx, schema ensured idempotently
//  4. Anomaly scorer: model/scaler artifacts; missing files disable the
//     ML layer and the server keeps running
//  5. Supervisor tree: consumers, profile scheduler, alert hub, HTTP
//
// The server handles graceful shutdown on SIGINT and SIGTERM: consumers
// perform a final flush, the hub closes every subscriber, and the HTTP
// listener drains in-flight requests.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/arguslabs/argus/internal/analyzer"
	"github.com/arguslabs/argus/internal/anomaly"
	"github.com/arguslabs/argus/internal/api"
	"github.com/arguslabs/argus/internal/auth"
	"github.com/arguslabs/argus/internal/config"
	"github.com/arguslabs/argus/internal/database"
	"github.com/arguslabs/argus/internal/ingest"
	"github.com/arguslabs/argus/internal/logging"
	"github.com/arguslabs/argus/internal/profiles"
	"github.com/arguslabs/argus/internal/supervisor"
	ws "github.com/arguslabs/argus/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Bool("kafka_enabled", cfg.Kafka.Enabled).
		Msg("starting argus")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing database")
		}
	}()

	scorer := anomaly.NewScorer(cfg.ML.ModelPath, cfg.ML.ScalerPath)
	detector := analyzer.New(db, scorer)

	hub := ws.NewHub(db)
	flusher := ingest.NewFlusher(db, detector, hub, cfg.Kafka.BatchSize, cfg.Kafka.FlushInterval)

	tokens, err := auth.NewTokenManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize token manager")
	}

	builder, err := profiles.NewBuilder(db, cfg.Profiles.Threshold, cfg.Profiles.LookbackDays)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize profile builder")
	}

	router := api.NewRouter(cfg, db, tokens, flusher, hub)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(hub)
	tree.AddAPIService(supervisor.NewHTTPServer(&cfg.Server, router.Routes()))

	if cfg.Kafka.Enabled {
		ingest.EnsureTopics(ctx, &cfg.Kafka)
		tree.AddPipelineService(ingest.NewEventConsumer(&cfg.Kafka, flusher))
		tree.AddPipelineService(ingest.NewIdentityConsumer(&cfg.Kafka, db))
	} else {
		logging.Info().Msg("bus consumers disabled; events arrive via HTTP ingest only")
	}

	scheduler := profiles.NewScheduler(builder, db, cfg.Profiles.BuildInterval)
	if scheduler.Enabled() {
		tree.AddPipelineService(scheduler)
	}

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("supervisor tree exited")
		os.Exit(1)
	}
	logging.Info().Msg("argus stopped")
}

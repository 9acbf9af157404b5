// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arguslabs/argus/internal/auth"
	"github.com/arguslabs/argus/internal/config"
	"github.com/arguslabs/argus/internal/database"
	"github.com/arguslabs/argus/internal/models"
)

// Store is the persistence surface the HTTP layer needs.
type Store interface {
	Ping(ctx context.Context) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	ListAlerts(ctx context.Context, f database.AlertFilter) ([]*models.SecurityAlert, error)
	ListEvents(ctx context.Context, f database.EventFilter) ([]*models.AuditEvent, error)

	GetProfile(ctx context.Context, orgID uuid.UUID, entityID string) (*models.EntityProfile, error)
	ListProfiles(ctx context.Context, orgID uuid.UUID) ([]*models.EntityProfile, error)
	PatchProfile(ctx context.Context, orgID uuid.UUID, entityID string, patch database.ProfilePatch) (*models.EntityProfile, error)

	ListIdentities(ctx context.Context, orgID uuid.UUID) ([]*models.CloudIdentity, error)

	GetResource(ctx context.Context, orgID uuid.UUID, resourceID string) (*models.CloudResource, error)
	ListResources(ctx context.Context, orgID uuid.UUID) ([]*models.CloudResource, error)
	PatchResource(ctx context.Context, orgID uuid.UUID, resourceID string, patch database.ResourcePatch) (*models.CloudResource, error)
}

// EventSink accepts synchronously ingested events.
type EventSink interface {
	IngestNow(ctx context.Context, events []*models.GenericAuditEvent) error
}

// Subscriber attaches an upgraded connection to the alert hub.
type Subscriber interface {
	Subscribe(w http.ResponseWriter, r *http.Request, orgID uuid.UUID, snapshotLimit int) error
}

// Router wires handlers, middleware, and dependencies.
type Router struct {
	cfg      *config.Config
	store    Store
	tokens   *auth.TokenManager
	sink     EventSink
	hub      Subscriber
	validate *validator.Validate
}

// NewRouter creates the HTTP router. sink and hub may be nil when the
// pipeline is disabled; the dependent endpoints then return 503.
func NewRouter(cfg *config.Config, store Store, tokens *auth.TokenManager, sink EventSink, hub Subscriber) *Router {
	return &Router{
		cfg:      cfg,
		store:    store,
		tokens:   tokens,
		sink:     sink,
		hub:      hub,
		validate: validator.New(),
	}
}

// Routes builds the full handler tree.
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(requestObserver)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/api/v1/health", rt.Health)

	// Login carries the strictest throttle: it is the brute-force surface.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rt.cfg.Security.RateLimitReqs, rt.cfg.Security.RateLimitWindow))
		r.Post("/login", rt.Login)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rt.cfg.Security.RateLimitReqs, rt.cfg.Security.RateLimitWindow))
		r.Use(rt.Authenticate)

		r.Get("/alerts", rt.ListAlerts)
		r.Get("/events", rt.ListEvents)

		r.Get("/profiles", rt.ListProfiles)
		r.Get("/profiles/{entity_id}", rt.GetProfile)
		r.With(RequireAdmin).Patch("/profiles/{entity_id}", rt.PatchProfile)

		r.Get("/identities", rt.ListIdentities)

		r.Get("/resources", rt.ListResources)
		r.Get("/resources/{resource_id}", rt.GetResource)
		r.With(RequireAdmin).Patch("/resources/{resource_id}", rt.PatchResource)

		r.With(RequireAdmin).Post("/events/ingest", rt.IngestEvents)
	})

	// Browsers cannot set Authorization on WebSocket upgrades, so the
	// token rides in the query string.
	r.Get("/ws/alerts", rt.SubscribeAlerts)

	return r
}

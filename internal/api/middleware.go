// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/arguslabs/argus/internal/auth"
	"github.com/arguslabs/argus/internal/logging"
	"github.com/arguslabs/argus/internal/metrics"
	"github.com/arguslabs/argus/internal/models"
)

type contextKey string

const claimsKey contextKey = "claims"

// claimsFrom returns the authenticated claims stored by Authenticate.
// Only reachable on routes behind the middleware.
func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// Authenticate requires a valid bearer token and stores its claims in the
// request context.
func (rt *Router) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeDetail(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		claims, err := rt.tokens.ValidateToken(token)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// RequireAdmin rejects non-admin callers. Runs behind Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if claims == nil || claims.Role != models.RoleAdmin {
			writeDetail(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestObserver records structured request logs and the HTTP duration
// histogram, labeled by the matched chi route pattern rather than the raw
// path so cardinality stays bounded.
func requestObserver(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(ww.Status())
		metrics.HTTPRequestDuration.WithLabelValues(route, r.Method, status).Observe(elapsed.Seconds())

		logging.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", ww.Status()).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}

// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package api

import (
	"net/http"
	"strconv"

	"github.com/arguslabs/argus/internal/logging"
	"github.com/arguslabs/argus/internal/websocket"
)

// SubscribeAlerts upgrades the connection and attaches it to the alert
// hub. Authentication happens before the upgrade: an invalid token gets a
// plain 403 instead of a WebSocket close frame.
//
// Query parameters: token (required), initial_limit (optional snapshot
// size, clamped to [1, 200]).
func (rt *Router) SubscribeAlerts(w http.ResponseWriter, r *http.Request) {
	if rt.hub == nil {
		writeDetail(w, http.StatusServiceUnavailable, "alert streaming is disabled")
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		writeDetail(w, http.StatusForbidden, "token query parameter is required")
		return
	}
	claims, err := rt.tokens.ValidateToken(token)
	if err != nil {
		writeDetail(w, http.StatusForbidden, "invalid or expired token")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("initial_limit"))
	limit = websocket.ClampSnapshotLimit(limit)

	if err := rt.hub.Subscribe(w, r, claims.OrganizationID, limit); err != nil {
		// The upgrade writes its own error response; just record it.
		logging.Warn().Err(err).Msg("websocket upgrade failed")
	}
}

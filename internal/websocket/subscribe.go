// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package websocket

import (
	"net/http"

	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
)

// Cross-origin browser clients are expected; authentication happens via
// the token, not the Origin header.
var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Subscribe upgrades an authenticated request and registers the resulting
// client with the hub. The caller has already validated the token and
// clamped snapshotLimit.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, orgID uuid.UUID, snapshotLimit int) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := NewClient(h, conn, orgID, snapshotLimit)
	h.Register <- client
	client.Start()
	return nil
}

// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

// Package websocket fans security alerts out to per-tenant subscribers.
//
// The hub keeps an in-memory registry organization_id -> set of clients and
// never persists it. A new subscriber first receives a snapshot frame with
// the tenant's newest alerts, then live alert frames as the analyzer emits
// them. A subscriber whose send queue is full or whose peer has closed is
// removed silently. Shutting the hub down closes every client and drains
// the registry.
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arguslabs/argus/internal/logging"
	"github.com/arguslabs/argus/internal/metrics"
	"github.com/arguslabs/argus/internal/models"
)

const (
	// DefaultSnapshotLimit is the snapshot size when the subscriber does
	// not ask for one.
	DefaultSnapshotLimit = 50

	// MaxSnapshotLimit caps per-connection snapshot requests.
	MaxSnapshotLimit = 200

	snapshotTimeout = 5 * time.Second
)

// ClampSnapshotLimit normalizes a requested snapshot size into [1, 200],
// applying the default for zero or negative requests.
func ClampSnapshotLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultSnapshotLimit
	case n > MaxSnapshotLimit:
		return MaxSnapshotLimit
	default:
		return n
	}
}

// snapshotFrame is the first frame every subscriber receives.
type snapshotFrame struct {
	Type  string                  `json:"type"`
	Items []*models.SecurityAlert `json:"items"`
}

// alertFrame carries one live alert.
type alertFrame struct {
	Type string                `json:"type"`
	Data *models.SecurityAlert `json:"data"`
}

// SnapshotSource provides the newest alerts for the subscribe-time snapshot.
type SnapshotSource interface {
	RecentAlerts(ctx context.Context, orgID uuid.UUID, limit int) ([]*models.SecurityAlert, error)
}

type broadcastRequest struct {
	orgID  uuid.UUID
	alerts []*models.SecurityAlert
}

// Hub maintains the per-tenant subscriber registry and fans alerts out.
type Hub struct {
	snapshots SnapshotSource

	subscribers map[uuid.UUID]map[*Client]bool
	mu          sync.RWMutex

	Register   chan *Client
	Unregister chan *Client
	broadcast  chan broadcastRequest
}

// NewHub creates a hub. snapshots may be nil in tests; subscribers then
// start without a snapshot frame.
func NewHub(snapshots SnapshotSource) *Hub {
	return &Hub{
		snapshots:   snapshots,
		subscribers: make(map[uuid.UUID]map[*Client]bool),
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
		broadcast:   make(chan broadcastRequest, 256),
	}
}

// BroadcastAlerts queues alerts for fan-out to one tenant's subscribers.
// Fire-and-forget: called after the flush transaction commits, never blocks
// the pipeline.
func (h *Hub) BroadcastAlerts(orgID uuid.UUID, alerts []*models.SecurityAlert) {
	if len(alerts) == 0 {
		return
	}
	select {
	case h.broadcast <- broadcastRequest{orgID: orgID, alerts: alerts}:
	default:
		logging.Warn().
			Str("organization_id", orgID.String()).
			Int("alerts", len(alerts)).
			Msg("broadcast queue full, dropping alert fan-out")
	}
}

// Serve runs the hub until ctx is cancelled, then closes every client and
// drains the registry. Satisfies suture.Service.
//
// Lifecycle events are prioritized over broadcasts so the registry is
// consistent before fan-out.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case req := <-h.broadcast:
			h.fanOut(req)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	set := h.subscribers[client.orgID]
	if set == nil {
		set = make(map[*Client]bool)
		h.subscribers[client.orgID] = set
	}
	set[client] = true
	total := len(set)
	h.mu.Unlock()
	metrics.AlertSubscribers.Inc()

	h.sendSnapshot(client)

	logging.Info().
		Str("organization_id", client.orgID.String()).
		Int("org_subscribers", total).
		Msg("alert subscriber connected")
}

// removeClient drops a subscriber and its org key when the set empties.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	set := h.subscribers[client.orgID]
	if set == nil || !set[client] {
		h.mu.Unlock()
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.subscribers, client.orgID)
	}
	h.mu.Unlock()
	metrics.AlertSubscribers.Dec()

	close(client.send)
	logging.Info().
		Str("organization_id", client.orgID.String()).
		Msg("alert subscriber disconnected")
}

func (h *Hub) sendSnapshot(client *Client) {
	if h.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	alerts, err := h.snapshots.RecentAlerts(ctx, client.orgID, client.snapshotLimit)
	if err != nil {
		logging.Warn().Err(err).
			Str("organization_id", client.orgID.String()).
			Msg("snapshot query failed, subscriber starts live-only")
		return
	}
	if alerts == nil {
		alerts = []*models.SecurityAlert{}
	}
	client.trySend(snapshotFrame{Type: "snapshot", Items: alerts})
}

// fanOut pushes each alert to every live subscriber of the tenant. Clients
// with full queues are removed silently.
func (h *Hub) fanOut(req broadcastRequest) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.subscribers[req.orgID]))
	for client := range h.subscribers[req.orgID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		for _, alert := range req.alerts {
			if !client.trySend(alertFrame{Type: "alert", Data: alert}) {
				h.removeClient(client)
				break
			}
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	var clients []*Client
	for _, set := range h.subscribers {
		for client := range set {
			clients = append(clients, client)
		}
	}
	h.subscribers = make(map[uuid.UUID]map[*Client]bool)
	h.mu.Unlock()

	for _, client := range clients {
		close(client.send)
	}
	metrics.AlertSubscribers.Sub(float64(len(clients)))
	logging.Info().
		Str("component", "alert-hub").
		Int("clients_closed", len(clients)).
		Msg("alert hub stopped")
}

// SubscriberCount reports the live subscriber count for one tenant.
func (h *Hub) SubscriberCount(orgID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[orgID])
}

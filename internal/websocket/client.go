// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package websocket

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/arguslabs/argus/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendQueueSize  = 256
)

// Client owns one subscriber connection. The hub only ever sees the tenant
// id and the send queue; authentication happens before the client is built.
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	orgID         uuid.UUID
	snapshotLimit int
	send          chan any
}

// NewClient wraps an upgraded connection for one tenant. snapshotLimit is
// clamped to [1, 200].
func NewClient(hub *Hub, conn *websocket.Conn, orgID uuid.UUID, snapshotLimit int) *Client {
	return &Client{
		hub:           hub,
		conn:          conn,
		orgID:         orgID,
		snapshotLimit: ClampSnapshotLimit(snapshotLimit),
		send:          make(chan any, sendQueueSize),
	}
}

// trySend queues a frame without blocking. False means the queue is full
// and the hub should drop the subscriber.
func (c *Client) trySend(frame any) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Start begins the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump discards inbound frames; the subscriber protocol is one-way. Its
// job is detecting the peer closing so the hub can unregister.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Debug().Err(err).Msg("subscriber read ended")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

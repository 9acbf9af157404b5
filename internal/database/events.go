// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package database

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arguslabs/argus/internal/models"
)

// InsertEventsTx bulk-inserts a batch of normalized events inside tx.
// Rows with unparseable timestamps fall back to insertion time so the batch
// is never partially written.
func (db *DB) InsertEventsTx(ctx context.Context, tx *sqlx.Tx, events []*models.GenericAuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	const cols = 8
	var (
		sb   strings.Builder
		args = make([]any, 0, len(events)*cols)
	)
	sb.WriteString(`INSERT INTO audit_events
		(organization_id, cloud_account_id, event_time, actor_identity,
		 actor_ip_address, action_name, target_resource, event_status)
		VALUES `)

	now := time.Now().UTC()
	for i, ev := range events {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(placeholderRow(i*cols+1, cols))

		ts, ok := ev.Time()
		if !ok {
			ts = now
		}
		args = append(args,
			ev.OrganizationID, ev.CloudAccountID, ts, ev.ActorIdentity,
			ev.ActorIPAddress, ev.ActionName, ev.TargetResource, ev.EventStatus)
	}

	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return translateError("insert events", err)
	}
	return nil
}

// EventFilter narrows ListEvents. OrganizationID is mandatory.
type EventFilter struct {
	OrganizationID uuid.UUID
	ActorIdentity  string
	ActionName     string
	Status         models.EventStatus
	Since          time.Time
	Limit          int
	Offset         int
}

// ListEvents returns events for one tenant, newest first.
func (db *DB) ListEvents(ctx context.Context, f EventFilter) ([]*models.AuditEvent, error) {
	query := `SELECT id, organization_id, cloud_account_id, event_time, actor_identity,
		actor_ip_address, action_name, target_resource, event_status
		FROM audit_events WHERE organization_id = $1`
	args := []any{f.OrganizationID}

	if f.ActorIdentity != "" {
		args = append(args, f.ActorIdentity)
		query += placeholderCond(" AND actor_identity = ", len(args))
	}
	if f.ActionName != "" {
		args = append(args, f.ActionName)
		query += placeholderCond(" AND action_name = ", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += placeholderCond(" AND event_status = ", len(args))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		query += placeholderCond(" AND event_time >= ", len(args))
	}

	query += " ORDER BY event_time DESC"
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	args = append(args, limit)
	query += placeholderCond(" LIMIT ", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += placeholderCond(" OFFSET ", len(args))
	}

	var out []*models.AuditEvent
	if err := db.conn.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, translateError("list events", err)
	}
	return out, nil
}

// ProfileSourceEvent is the projection the profile builder consumes.
type ProfileSourceEvent struct {
	EventTime      time.Time `db:"event_time"`
	ActorIdentity  string    `db:"actor_identity"`
	ActorIPAddress string    `db:"actor_ip_address"`
	ActionName     string    `db:"action_name"`
}

// EventsForProfileBuild loads the lookback window for the profile builder,
// optionally narrowed to one cloud account.
func (db *DB) EventsForProfileBuild(ctx context.Context, orgID uuid.UUID, accountID *uuid.UUID, since time.Time) ([]ProfileSourceEvent, error) {
	query := `SELECT event_time, actor_identity, actor_ip_address, action_name
		FROM audit_events
		WHERE organization_id = $1 AND event_time >= $2`
	args := []any{orgID, since}
	if accountID != nil {
		args = append(args, *accountID)
		query += placeholderCond(" AND cloud_account_id = ", len(args))
	}

	var out []ProfileSourceEvent
	if err := db.conn.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, translateError("events for profile build", err)
	}
	return out, nil
}

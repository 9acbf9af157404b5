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

// InsertAlertsTx bulk-inserts analyzer findings inside the flush transaction
// and fills in the store-assigned id and created_at on each alert so the
// broadcaster can push complete frames after commit.
func (db *DB) InsertAlertsTx(ctx context.Context, tx *sqlx.Tx, alerts []*models.SecurityAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	const cols = 7
	var (
		sb   strings.Builder
		args = make([]any, 0, len(alerts)*cols)
	)
	sb.WriteString(`INSERT INTO security_alerts
		(organization_id, cloud_identity_id, cloud_account_id, event_id,
		 rule_code, severity, description)
		VALUES `)

	for i, a := range alerts {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(placeholderRow(i*cols+1, cols))
		args = append(args,
			a.OrganizationID, a.CloudIdentityID, a.CloudAccountID, a.EventID,
			a.RuleCode, a.Severity, a.Description)
	}
	sb.WriteString(" RETURNING id, created_at")

	rows, err := tx.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return translateError("insert alerts", err)
	}
	defer rows.Close()

	for i := 0; rows.Next(); i++ {
		if err := rows.Scan(&alerts[i].ID, &alerts[i].CreatedAt); err != nil {
			return translateError("insert alerts scan", err)
		}
	}
	if err := rows.Err(); err != nil {
		return translateError("insert alerts", err)
	}
	return nil
}

// RecentAlerts returns the newest limit alerts for one tenant, newest first.
// Feeds the subscriber snapshot frame.
func (db *DB) RecentAlerts(ctx context.Context, orgID uuid.UUID, limit int) ([]*models.SecurityAlert, error) {
	var out []*models.SecurityAlert
	err := db.conn.SelectContext(ctx, &out, `SELECT id, organization_id, cloud_identity_id,
		cloud_account_id, event_id, rule_code, severity, description, created_at
		FROM security_alerts WHERE organization_id = $1
		ORDER BY created_at DESC LIMIT $2`, orgID, limit)
	if err != nil {
		return nil, translateError("recent alerts", err)
	}
	return out, nil
}

// AlertFilter narrows ListAlerts. OrganizationID is mandatory.
type AlertFilter struct {
	OrganizationID  uuid.UUID
	RuleCode        string
	Severity        models.Severity
	CloudAccountID  *uuid.UUID
	CloudIdentityID *uuid.UUID
	Search          string
	Since           time.Time
	Limit           int
	Offset          int
}

// ListAlerts returns alerts for one tenant, newest first.
func (db *DB) ListAlerts(ctx context.Context, f AlertFilter) ([]*models.SecurityAlert, error) {
	query := `SELECT id, organization_id, cloud_identity_id, cloud_account_id,
		event_id, rule_code, severity, description, created_at
		FROM security_alerts WHERE organization_id = $1`
	args := []any{f.OrganizationID}

	if f.RuleCode != "" {
		args = append(args, f.RuleCode)
		query += placeholderCond(" AND rule_code = ", len(args))
	}
	if f.Severity != "" {
		args = append(args, f.Severity)
		query += placeholderCond(" AND severity = ", len(args))
	}
	if f.CloudAccountID != nil {
		args = append(args, *f.CloudAccountID)
		query += placeholderCond(" AND cloud_account_id = ", len(args))
	}
	if f.CloudIdentityID != nil {
		args = append(args, *f.CloudIdentityID)
		query += placeholderCond(" AND cloud_identity_id = ", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		query += placeholderCond(" AND description ILIKE ", len(args))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		query += placeholderCond(" AND created_at >= ", len(args))
	}

	query += " ORDER BY created_at DESC"
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

	var out []*models.SecurityAlert
	if err := db.conn.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, translateError("list alerts", err)
	}
	return out, nil
}

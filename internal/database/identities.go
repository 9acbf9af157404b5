// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/arguslabs/argus/internal/models"
)

const identityColumns = `id, organization_id, cloud_account_id, identity_arn, identity_name,
	identity_type, is_mfa_enabled, created_at, last_updated_at`

// UpsertIdentity writes one identity keyed on (organization_id, identity_arn).
// On conflict it updates name, type, and mfa flag, bumps last_updated_at, and
// sets created_at only when it was previously null. Commits immediately; the
// identity consumer processes one message per call.
func (db *DB) UpsertIdentity(ctx context.Context, id *models.CloudIdentity) error {
	if id.ID == uuid.Nil {
		id.ID = uuid.New()
	}
	_, err := db.conn.ExecContext(ctx, `INSERT INTO cloud_identities
		(id, organization_id, cloud_account_id, identity_arn, identity_name,
		 identity_type, is_mfa_enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (organization_id, identity_arn) DO UPDATE SET
			identity_name = EXCLUDED.identity_name,
			identity_type = EXCLUDED.identity_type,
			is_mfa_enabled = EXCLUDED.is_mfa_enabled,
			created_at = COALESCE(cloud_identities.created_at, EXCLUDED.created_at),
			last_updated_at = now()`,
		id.ID, id.OrganizationID, id.CloudAccountID, id.IdentityARN,
		id.IdentityName, id.IdentityType, id.IsMFAEnabled, id.CreatedAt)
	return translateError("upsert identity", err)
}

// IdentitiesByARN loads every identity for one tenant keyed by ARN.
// The detector preloads this once per batch.
func (db *DB) IdentitiesByARN(ctx context.Context, orgID uuid.UUID) (map[string]*models.CloudIdentity, error) {
	var rows []*models.CloudIdentity
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT `+identityColumns+` FROM cloud_identities WHERE organization_id = $1`, orgID)
	if err != nil {
		return nil, translateError("identities by arn", err)
	}

	out := make(map[string]*models.CloudIdentity, len(rows))
	for _, id := range rows {
		out[id.IdentityARN] = id
	}
	return out, nil
}

// ListIdentities returns every identity for one tenant.
func (db *DB) ListIdentities(ctx context.Context, orgID uuid.UUID) ([]*models.CloudIdentity, error) {
	var out []*models.CloudIdentity
	err := db.conn.SelectContext(ctx, &out,
		`SELECT `+identityColumns+` FROM cloud_identities
		 WHERE organization_id = $1 ORDER BY identity_arn`, orgID)
	if err != nil {
		return nil, translateError("list identities", err)
	}
	return out, nil
}

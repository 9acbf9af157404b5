// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arguslabs/argus/internal/models"
)

const profileColumns = `organization_id, entity_id, cloud_identity_id, profile_mode,
	whitelisted_cidrs, manual_allowed_actions, manual_forbidden_actions,
	auto_common_hours, auto_common_ips, auto_common_actions, created_at, updated_at`

// ProfilesByEntity loads every profile for one tenant keyed by entity id.
// The detector preloads this once per batch.
func (db *DB) ProfilesByEntity(ctx context.Context, orgID uuid.UUID) (map[string]*models.EntityProfile, error) {
	var rows []*models.EntityProfile
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT `+profileColumns+` FROM entity_profiles WHERE organization_id = $1`, orgID)
	if err != nil {
		return nil, translateError("profiles by entity", err)
	}

	out := make(map[string]*models.EntityProfile, len(rows))
	for _, p := range rows {
		out[p.EntityID] = p
	}
	return out, nil
}

// GetProfile returns one tenant-scoped profile or ErrNotFound.
func (db *DB) GetProfile(ctx context.Context, orgID uuid.UUID, entityID string) (*models.EntityProfile, error) {
	var p models.EntityProfile
	err := db.conn.GetContext(ctx, &p,
		`SELECT `+profileColumns+` FROM entity_profiles
		 WHERE organization_id = $1 AND entity_id = $2`, orgID, entityID)
	if err != nil {
		return nil, translateError("get profile", err)
	}
	return &p, nil
}

// UpsertAutoProfile writes the builder's auto-learned lists keyed on
// (organization_id, entity_id), creating the profile with defaults when it
// does not exist. Manual lists are never touched here.
func (db *DB) UpsertAutoProfile(ctx context.Context, orgID uuid.UUID, entityID string,
	hours models.IntList, ips, actions models.StringList) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO entity_profiles
		(organization_id, entity_id, auto_common_hours, auto_common_ips, auto_common_actions)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organization_id, entity_id) DO UPDATE SET
			auto_common_hours = EXCLUDED.auto_common_hours,
			auto_common_ips = EXCLUDED.auto_common_ips,
			auto_common_actions = EXCLUDED.auto_common_actions,
			updated_at = now()`,
		orgID, entityID, hours, ips, actions)
	return translateError("upsert auto profile", err)
}

// ProfilePatch is the operator-editable subset of a profile. Nil fields are
// left unchanged.
type ProfilePatch struct {
	ProfileMode            *models.ProfileMode
	WhitelistedCIDRs       *models.StringList
	ManualAllowedActions   *models.StringList
	ManualForbiddenActions *models.StringList
}

// PatchProfile applies a manual patch to one tenant-scoped profile,
// creating it with defaults first if absent.
func (db *DB) PatchProfile(ctx context.Context, orgID uuid.UUID, entityID string, patch ProfilePatch) (*models.EntityProfile, error) {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO entity_profiles (organization_id, entity_id)
		VALUES ($1, $2) ON CONFLICT (organization_id, entity_id) DO NOTHING`, orgID, entityID)
	if err != nil {
		return nil, translateError("ensure profile", err)
	}

	query := `UPDATE entity_profiles SET updated_at = now()`
	args := []any{}
	if patch.ProfileMode != nil {
		args = append(args, *patch.ProfileMode)
		query += placeholderCond(", profile_mode = ", len(args))
	}
	if patch.WhitelistedCIDRs != nil {
		args = append(args, *patch.WhitelistedCIDRs)
		query += placeholderCond(", whitelisted_cidrs = ", len(args))
	}
	if patch.ManualAllowedActions != nil {
		args = append(args, *patch.ManualAllowedActions)
		query += placeholderCond(", manual_allowed_actions = ", len(args))
	}
	if patch.ManualForbiddenActions != nil {
		args = append(args, *patch.ManualForbiddenActions)
		query += placeholderCond(", manual_forbidden_actions = ", len(args))
	}
	args = append(args, orgID)
	query += placeholderCond(" WHERE organization_id = ", len(args))
	args = append(args, entityID)
	query += placeholderCond(" AND entity_id = ", len(args))

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return nil, translateError("patch profile", err)
	}
	return db.GetProfile(ctx, orgID, entityID)
}

// LinkProfileIdentityTx records an observed linkage between a profile and a
// cloud identity inside the flush transaction. The profile is created with
// defaults on first sight of the entity.
func (db *DB) LinkProfileIdentityTx(ctx context.Context, tx *sqlx.Tx, orgID uuid.UUID, entityID string, identityID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO entity_profiles
		(organization_id, entity_id, cloud_identity_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id, entity_id) DO UPDATE SET
			cloud_identity_id = EXCLUDED.cloud_identity_id,
			updated_at = now()`,
		orgID, entityID, identityID)
	return translateError("link profile identity", err)
}

// ListProfiles returns every profile for one tenant.
func (db *DB) ListProfiles(ctx context.Context, orgID uuid.UUID) ([]*models.EntityProfile, error) {
	var out []*models.EntityProfile
	err := db.conn.SelectContext(ctx, &out,
		`SELECT `+profileColumns+` FROM entity_profiles
		 WHERE organization_id = $1 ORDER BY entity_id`, orgID)
	if err != nil {
		return nil, translateError("list profiles", err)
	}
	return out, nil
}

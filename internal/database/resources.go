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

const resourceColumns = `resource_id, organization_id, resource_type, display_name,
	criticality, custom_rules, created_at`

// ResourcesByID loads every resource for one tenant keyed by resource id.
// The detector preloads this once per batch.
func (db *DB) ResourcesByID(ctx context.Context, orgID uuid.UUID) (map[string]*models.CloudResource, error) {
	var rows []*models.CloudResource
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT `+resourceColumns+` FROM cloud_resources WHERE organization_id = $1`, orgID)
	if err != nil {
		return nil, translateError("resources by id", err)
	}

	out := make(map[string]*models.CloudResource, len(rows))
	for _, r := range rows {
		out[r.ResourceID] = r
	}
	return out, nil
}

// GetResource returns one tenant-scoped resource or ErrNotFound.
func (db *DB) GetResource(ctx context.Context, orgID uuid.UUID, resourceID string) (*models.CloudResource, error) {
	var r models.CloudResource
	err := db.conn.GetContext(ctx, &r,
		`SELECT `+resourceColumns+` FROM cloud_resources
		 WHERE organization_id = $1 AND resource_id = $2`, orgID, resourceID)
	if err != nil {
		return nil, translateError("get resource", err)
	}
	return &r, nil
}

// UpsertResource creates or replaces a resource record for one tenant.
func (db *DB) UpsertResource(ctx context.Context, r *models.CloudResource) error {
	if r.Criticality == "" {
		r.Criticality = models.CriticalityStandard
	}
	if len(r.CustomRules) == 0 {
		r.CustomRules = []byte("{}")
	}
	_, err := db.conn.ExecContext(ctx, `INSERT INTO cloud_resources
		(resource_id, organization_id, resource_type, display_name, criticality, custom_rules)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (resource_id) DO UPDATE SET
			resource_type = EXCLUDED.resource_type,
			display_name = EXCLUDED.display_name,
			criticality = EXCLUDED.criticality,
			custom_rules = EXCLUDED.custom_rules
		WHERE cloud_resources.organization_id = EXCLUDED.organization_id`,
		r.ResourceID, r.OrganizationID, r.ResourceType, r.DisplayName, r.Criticality, r.CustomRules)
	return translateError("upsert resource", err)
}

// ResourcePatch is the operator-editable subset of a resource. Nil fields
// are left unchanged.
type ResourcePatch struct {
	DisplayName *string
	Criticality *models.Criticality
	CustomRules []byte
}

// PatchResource updates one tenant-scoped resource or returns ErrNotFound.
func (db *DB) PatchResource(ctx context.Context, orgID uuid.UUID, resourceID string, patch ResourcePatch) (*models.CloudResource, error) {
	query := `UPDATE cloud_resources SET resource_id = resource_id`
	args := []any{}
	if patch.DisplayName != nil {
		args = append(args, *patch.DisplayName)
		query += placeholderCond(", display_name = ", len(args))
	}
	if patch.Criticality != nil {
		args = append(args, *patch.Criticality)
		query += placeholderCond(", criticality = ", len(args))
	}
	if patch.CustomRules != nil {
		args = append(args, patch.CustomRules)
		query += placeholderCond(", custom_rules = ", len(args))
	}
	args = append(args, orgID)
	query += placeholderCond(" WHERE organization_id = ", len(args))
	args = append(args, resourceID)
	query += placeholderCond(" AND resource_id = ", len(args))

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, translateError("patch resource", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, translateError("patch resource", errNoRowsUpdated)
	}
	return db.GetResource(ctx, orgID, resourceID)
}

// ListResources returns every resource for one tenant.
func (db *DB) ListResources(ctx context.Context, orgID uuid.UUID) ([]*models.CloudResource, error) {
	var out []*models.CloudResource
	err := db.conn.SelectContext(ctx, &out,
		`SELECT `+resourceColumns+` FROM cloud_resources
		 WHERE organization_id = $1 ORDER BY resource_id`, orgID)
	if err != nil {
		return nil, translateError("list resources", err)
	}
	return out, nil
}

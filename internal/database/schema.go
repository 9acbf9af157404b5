// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package database

import (
	"context"
	"fmt"
	"time"
)

// createSchema bootstraps tables and indexes. All statements are idempotent
// so startup after a crash or upgrade is safe.
func (db *DB) createSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	for _, q := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		organization_id UUID NOT NULL REFERENCES organizations(id),
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'VIEWER',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_org ON users (organization_id)`,

	`CREATE TABLE IF NOT EXISTS user_invitations (
		id UUID PRIMARY KEY,
		organization_id UUID NOT NULL REFERENCES organizations(id),
		email TEXT NOT NULL,
		token TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'PENDING',
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invitations_org ON user_invitations (organization_id)`,

	`CREATE TABLE IF NOT EXISTS cloud_accounts (
		id UUID PRIMARY KEY,
		organization_id UUID NOT NULL REFERENCES organizations(id),
		provider TEXT NOT NULL,
		region TEXT NOT NULL DEFAULT '',
		credentials TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cloud_accounts_org ON cloud_accounts (organization_id)`,

	`CREATE TABLE IF NOT EXISTS cloud_identities (
		id UUID PRIMARY KEY,
		organization_id UUID NOT NULL REFERENCES organizations(id),
		cloud_account_id UUID REFERENCES cloud_accounts(id),
		identity_arn TEXT NOT NULL,
		identity_name TEXT NOT NULL DEFAULT '',
		identity_type TEXT NOT NULL DEFAULT 'IAM_USER',
		is_mfa_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ,
		last_updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (organization_id, identity_arn)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cloud_identities_org ON cloud_identities (organization_id)`,

	`CREATE TABLE IF NOT EXISTS cloud_resources (
		resource_id TEXT PRIMARY KEY,
		organization_id UUID NOT NULL REFERENCES organizations(id),
		resource_type TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		criticality TEXT NOT NULL DEFAULT 'STANDARD',
		custom_rules JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cloud_resources_org ON cloud_resources (organization_id)`,

	`CREATE TABLE IF NOT EXISTS audit_events (
		id BIGSERIAL PRIMARY KEY,
		organization_id UUID NOT NULL REFERENCES organizations(id),
		cloud_account_id UUID REFERENCES cloud_accounts(id),
		event_time TIMESTAMPTZ NOT NULL,
		actor_identity TEXT NOT NULL DEFAULT '',
		actor_ip_address TEXT NOT NULL DEFAULT '',
		action_name TEXT NOT NULL DEFAULT '',
		target_resource TEXT NOT NULL DEFAULT '',
		event_status TEXT NOT NULL DEFAULT 'SUCCESS'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_events_org ON audit_events (organization_id)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_events_org_time ON audit_events (organization_id, event_time)`,

	`CREATE TABLE IF NOT EXISTS entity_profiles (
		organization_id UUID NOT NULL REFERENCES organizations(id),
		entity_id TEXT NOT NULL,
		cloud_identity_id UUID REFERENCES cloud_identities(id),
		profile_mode TEXT NOT NULL DEFAULT 'HYBRID',
		whitelisted_cidrs JSONB NOT NULL DEFAULT '[]',
		manual_allowed_actions JSONB NOT NULL DEFAULT '[]',
		manual_forbidden_actions JSONB NOT NULL DEFAULT '[]',
		auto_common_hours JSONB NOT NULL DEFAULT '[]',
		auto_common_ips JSONB NOT NULL DEFAULT '[]',
		auto_common_actions JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (organization_id, entity_id)
	)`,

	`CREATE TABLE IF NOT EXISTS security_alerts (
		id BIGSERIAL PRIMARY KEY,
		organization_id UUID NOT NULL REFERENCES organizations(id),
		cloud_identity_id UUID REFERENCES cloud_identities(id),
		cloud_account_id UUID REFERENCES cloud_accounts(id),
		event_id TEXT NOT NULL DEFAULT '',
		rule_code TEXT NOT NULL,
		severity TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_security_alerts_org ON security_alerts (organization_id)`,
	`CREATE INDEX IF NOT EXISTS idx_security_alerts_org_created ON security_alerts (organization_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS risks (
		id BIGSERIAL PRIMARY KEY,
		organization_id UUID NOT NULL REFERENCES organizations(id),
		category TEXT NOT NULL,
		score DOUBLE PRECISION NOT NULL DEFAULT 0,
		summary TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_risks_org ON risks (organization_id)`,
}

// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/arguslabs/argus/internal/models"
)

// CreateOrganization inserts a tenant. A duplicate name returns ErrDuplicate.
func (db *DB) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO organizations (id, name) VALUES ($1, $2)`, org.ID, org.Name)
	return translateError("create organization", err)
}

// GetOrganization returns one tenant or ErrNotFound.
func (db *DB) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	err := db.conn.GetContext(ctx, &org,
		`SELECT id, name, created_at FROM organizations WHERE id = $1`, id)
	if err != nil {
		return nil, translateError("get organization", err)
	}
	return &org, nil
}

// ListOrganizations returns every tenant. Used by the profile scheduler.
func (db *DB) ListOrganizations(ctx context.Context) ([]*models.Organization, error) {
	var out []*models.Organization
	err := db.conn.SelectContext(ctx, &out,
		`SELECT id, name, created_at FROM organizations ORDER BY name`)
	if err != nil {
		return nil, translateError("list organizations", err)
	}
	return out, nil
}

// CreateUser inserts a member. A duplicate email returns ErrDuplicate.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = models.RoleViewer
	}
	_, err := db.conn.ExecContext(ctx, `INSERT INTO users
		(id, organization_id, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.OrganizationID, u.Email, u.PasswordHash, u.Role, u.IsActive)
	return translateError("create user", err)
}

// GetUserByEmail returns one user or ErrNotFound. Login path; not tenant
// scoped because email is globally unique.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := db.conn.GetContext(ctx, &u, `SELECT id, organization_id, email, password_hash,
		role, is_active, created_at FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, translateError("get user by email", err)
	}
	return &u, nil
}

// GetUser returns one tenant-scoped user or ErrNotFound.
func (db *DB) GetUser(ctx context.Context, orgID, userID uuid.UUID) (*models.User, error) {
	var u models.User
	err := db.conn.GetContext(ctx, &u, `SELECT id, organization_id, email, password_hash,
		role, is_active, created_at FROM users
		WHERE organization_id = $1 AND id = $2`, orgID, userID)
	if err != nil {
		return nil, translateError("get user", err)
	}
	return &u, nil
}

// CreateInvitation inserts a pending invitation. A duplicate token returns
// ErrDuplicate.
func (db *DB) CreateInvitation(ctx context.Context, inv *models.UserInvitation) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.Status == "" {
		inv.Status = models.InvitationPending
	}
	_, err := db.conn.ExecContext(ctx, `INSERT INTO user_invitations
		(id, organization_id, email, token, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		inv.ID, inv.OrganizationID, inv.Email, inv.Token, inv.Status, inv.ExpiresAt)
	return translateError("create invitation", err)
}

// GetInvitationByToken returns one invitation or ErrNotFound. Invitations
// past expiry are marked EXPIRED on read.
func (db *DB) GetInvitationByToken(ctx context.Context, token string) (*models.UserInvitation, error) {
	var inv models.UserInvitation
	err := db.conn.GetContext(ctx, &inv, `SELECT id, organization_id, email, token, status,
		expires_at, created_at FROM user_invitations WHERE token = $1`, token)
	if err != nil {
		return nil, translateError("get invitation", err)
	}
	if inv.Status == models.InvitationPending && inv.Expired(time.Now()) {
		inv.Status = models.InvitationExpired
		if _, err := db.conn.ExecContext(ctx,
			`UPDATE user_invitations SET status = $1 WHERE id = $2`,
			models.InvitationExpired, inv.ID); err != nil {
			return nil, translateError("expire invitation", err)
		}
	}
	return &inv, nil
}

// UpdateInvitationStatus transitions one invitation.
func (db *DB) UpdateInvitationStatus(ctx context.Context, id uuid.UUID, status models.InvitationStatus) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE user_invitations SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return translateError("update invitation", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return translateError("update invitation", errNoRowsUpdated)
	}
	return nil
}

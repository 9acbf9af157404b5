// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProfileMode selects which profile dimensions the detector consults.
type ProfileMode string

const (
	ProfileAuto   ProfileMode = "AUTO"
	ProfileManual ProfileMode = "MANUAL"
	ProfileHybrid ProfileMode = "HYBRID"
)

// Valid reports whether m is a known profile mode.
func (m ProfileMode) Valid() bool {
	switch m {
	case ProfileAuto, ProfileManual, ProfileHybrid:
		return true
	}
	return false
}

// EntityProfile is the behavior baseline for one actor within a tenant.
// The key is (OrganizationID, EntityID) where EntityID follows the hybrid
// rule: actor identity when meaningful, else source IP (see HybridEntityID).
//
// The manual lists are operator-curated; the auto lists are written only by
// the profile builder. The pipeline upserts, never deletes.
type EntityProfile struct {
	OrganizationID uuid.UUID   `json:"organization_id" db:"organization_id"`
	EntityID       string      `json:"entity_id" db:"entity_id"`
	CloudIdentityID *uuid.UUID `json:"cloud_identity_id,omitempty" db:"cloud_identity_id"`

	ProfileMode ProfileMode `json:"profile_mode" db:"profile_mode"`

	WhitelistedCIDRs       StringList `json:"whitelisted_cidrs" db:"whitelisted_cidrs"`
	ManualAllowedActions   StringList `json:"manual_allowed_actions" db:"manual_allowed_actions"`
	ManualForbiddenActions StringList `json:"manual_forbidden_actions" db:"manual_forbidden_actions"`

	AutoCommonHours   IntList    `json:"auto_common_hours" db:"auto_common_hours"`
	AutoCommonIPs     StringList `json:"auto_common_ips" db:"auto_common_ips"`
	AutoCommonActions StringList `json:"auto_common_actions" db:"auto_common_actions"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// placeholderIdentities are actor strings that carry no identity signal.
// Events with these fall back to the source IP for profiling.
var placeholderIdentities = map[string]struct{}{
	"":          {},
	"nan":       {},
	"none":      {},
	"anonymous": {},
	"unknown":   {},
}

// HybridEntityID returns the canonical actor key for an event: the actor
// identity when meaningful, else the source IP (which may itself be empty).
func HybridEntityID(actorIdentity, actorIP string) string {
	if _, placeholder := placeholderIdentities[strings.ToLower(strings.TrimSpace(actorIdentity))]; !placeholder {
		return actorIdentity
	}
	return actorIP
}

// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package models

import (
	"time"

	"github.com/google/uuid"
)

// Provider is the cloud platform a CloudAccount belongs to.
type Provider string

const (
	ProviderAWS   Provider = "AWS"
	ProviderAzure Provider = "AZURE"
	ProviderGCP   Provider = "GCP"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderAWS, ProviderAzure, ProviderGCP:
		return true
	}
	return false
}

// IdentityType classifies a CloudIdentity.
type IdentityType string

const (
	IdentityIAMUser IdentityType = "IAM_USER"
	IdentityIAMRole IdentityType = "IAM_ROLE"
	IdentityRoot    IdentityType = "ROOT"
)

// Valid reports whether t is a known identity type.
func (t IdentityType) Valid() bool {
	switch t {
	case IdentityIAMUser, IdentityIAMRole, IdentityRoot:
		return true
	}
	return false
}

// Criticality is the sensitivity tier of a CloudResource. It governs the
// destructive-action detection layer.
type Criticality string

const (
	CriticalityLow      Criticality = "LOW"
	CriticalityStandard Criticality = "STANDARD"
	CriticalityCritical Criticality = "CRITICAL"
)

// Valid reports whether c is a known criticality tier.
func (c Criticality) Valid() bool {
	switch c {
	case CriticalityLow, CriticalityStandard, CriticalityCritical:
		return true
	}
	return false
}

// CloudAccount is a monitored account within a provider, owned by one tenant.
type CloudAccount struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Provider       Provider  `json:"provider" db:"provider"`
	Region         string    `json:"region" db:"region"`
	// Credentials is an opaque blob; Argus never interprets it.
	Credentials string    `json:"-" db:"credentials"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CloudIdentity is a principal discovered in a tenant's cloud estate.
// (OrganizationID, IdentityARN) is unique.
type CloudIdentity struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	OrganizationID uuid.UUID    `json:"organization_id" db:"organization_id"`
	CloudAccountID *uuid.UUID   `json:"cloud_account_id,omitempty" db:"cloud_account_id"`
	IdentityARN    string       `json:"identity_arn" db:"identity_arn"`
	IdentityName   string       `json:"identity_name" db:"identity_name"`
	IdentityType   IdentityType `json:"identity_type" db:"identity_type"`
	IsMFAEnabled   bool         `json:"is_mfa_enabled" db:"is_mfa_enabled"`
	CreatedAt      *time.Time   `json:"created_at,omitempty" db:"created_at"`
	LastUpdatedAt  time.Time    `json:"last_updated_at" db:"last_updated_at"`
}

// CloudResource is an inventoried asset. The primary key is the external
// resource identifier, globally unique within its provider namespace.
type CloudResource struct {
	ResourceID     string      `json:"resource_id" db:"resource_id"`
	OrganizationID uuid.UUID   `json:"organization_id" db:"organization_id"`
	ResourceType   string      `json:"resource_type" db:"resource_type"`
	DisplayName    string      `json:"display_name" db:"display_name"`
	Criticality    Criticality `json:"criticality" db:"criticality"`
	// CustomRules is a free-form JSON document reserved for per-resource
	// policy extensions.
	CustomRules []byte    `json:"custom_rules,omitempty" db:"custom_rules"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// IdentityMessage is the wire shape of one record on the identities topic.
type IdentityMessage struct {
	OrganizationID string `json:"organization_id"`
	IdentityARN    string `json:"identity_arn"`
	IdentityName   string `json:"identity_name,omitempty"`
	IdentityType   string `json:"identity_type,omitempty"`
	IsMFAEnabled   *bool  `json:"is_mfa_enabled,omitempty"`
	// CreatedAt accepts ISO-8601 or epoch seconds; kept raw until parsed.
	CreatedAt any `json:"created_at,omitempty"`
}

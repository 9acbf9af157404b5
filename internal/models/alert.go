// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package models

import (
	"time"

	"github.com/google/uuid"
)

// Severity orders analyzer findings. Rank gives the comparison order used
// when an alert aggregates several violations.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var severityRanks = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the numeric order of s: LOW=1 up to CRITICAL=4. Unknown
// severities rank 0, below LOW.
func (s Severity) Rank() int {
	return severityRanks[s]
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return severityRanks[s] != 0
}

// MaxSeverity returns the higher-ranked of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Rule codes emitted by the detection layers.
const (
	RuleShadowIdentity    = "SHADOW_IDENTITY"
	RuleIPViolation       = "IP_VIOLATION"
	RuleResourceTampering = "CRITICAL_RESOURCE_TAMPERING"
	RuleForbiddenAction   = "FORBIDDEN_ACTION"
	RuleMLAnomaly         = "ML_ANOMALY_DETECTED"
	RuleMultiple          = "MULTIPLE_VIOLATIONS"
)

// Violation is a single layer's finding for one event. An event may collect
// several before an alert is emitted.
type Violation struct {
	Rule     string
	Severity Severity
}

// SecurityAlert is one emitted finding. Alerts are append-only; the pipeline
// never mutates or deletes them.
type SecurityAlert struct {
	ID              int64      `json:"id" db:"id"`
	OrganizationID  uuid.UUID  `json:"organization_id" db:"organization_id"`
	CloudIdentityID *uuid.UUID `json:"cloud_identity_id,omitempty" db:"cloud_identity_id"`
	CloudAccountID  *uuid.UUID `json:"cloud_account_id,omitempty" db:"cloud_account_id"`
	EventID         string     `json:"event_id" db:"event_id"`
	RuleCode        string     `json:"rule_code" db:"rule_code"`
	Severity        Severity   `json:"severity" db:"severity"`
	Description     string     `json:"description" db:"description"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// Risk is an aggregated exposure record derived from alert history.
// OrganizationID is always set; every creation path is tenant-scoped.
type Risk struct {
	ID             int64     `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Category       string    `json:"category" db:"category"`
	Score          float64   `json:"score" db:"score"`
	Summary        string    `json:"summary" db:"summary"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

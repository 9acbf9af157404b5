// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package models

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the outcome of an audited API call.
type EventStatus string

const (
	StatusSuccess EventStatus = "SUCCESS"
	StatusFailure EventStatus = "FAILURE"
)

// Valid reports whether s is a known event status.
func (s EventStatus) Valid() bool {
	return s == StatusSuccess || s == StatusFailure
}

// AuditEvent is one persisted audit record. ID is assigned by the store.
type AuditEvent struct {
	ID             int64       `json:"id" db:"id"`
	OrganizationID uuid.UUID   `json:"organization_id" db:"organization_id"`
	CloudAccountID *uuid.UUID  `json:"cloud_account_id,omitempty" db:"cloud_account_id"`
	EventTime      time.Time   `json:"event_time" db:"event_time"`
	ActorIdentity  string      `json:"actor_identity" db:"actor_identity"`
	ActorIPAddress string      `json:"actor_ip_address" db:"actor_ip_address"`
	ActionName     string      `json:"action_name" db:"action_name"`
	TargetResource string      `json:"target_resource" db:"target_resource"`
	EventStatus    EventStatus `json:"event_status" db:"event_status"`
}

// GenericAuditEvent is the canonical wire shape an ingested message is
// normalized into. Heterogeneous producer payloads (CloudTrail-style nested
// records among them) are adapted into this flat form before buffering.
//
// EventID is always non-empty after normalization: a UUID is generated when
// the source offers none. EventTime is ISO-8601 UTC. RawLog preserves the
// original nested object for audit and replay.
type GenericAuditEvent struct {
	EventID        string         `json:"event_id"`
	EventTime      string         `json:"event_time"`
	ActorIdentity  string         `json:"actor_identity"`
	ActorIPAddress string         `json:"actor_ip_address"`
	ActionName     string         `json:"action_name"`
	TargetResource string         `json:"target_resource"`
	EventStatus    EventStatus    `json:"event_status"`
	CloudProvider  Provider       `json:"cloud_provider"`
	OrganizationID uuid.UUID      `json:"organization_id"`
	CloudAccountID *uuid.UUID     `json:"cloud_account_id,omitempty"`
	RawLog         map[string]any `json:"raw_log,omitempty"`
}

// Time parses the event timestamp. The zero time and false are returned for
// unparseable values; callers drop such rows from time-derived features.
func (e *GenericAuditEvent) Time() (time.Time, bool) {
	if e.EventTime == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, e.EventTime); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

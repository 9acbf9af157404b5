// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

/*
Package models defines data structures for the Argus application.

This package contains all data models shared across the pipeline, the
analyzer, and the HTTP API. It is the single source of truth for the
tenant-scoped schema: every persisted record carries an OrganizationID and
all reads and writes are filtered by it.

Key Components:

  - Organization, User, UserInvitation: tenancy and membership
  - CloudAccount, CloudIdentity, CloudResource: inventory records
  - AuditEvent, GenericAuditEvent: persisted and wire-format audit events
  - EntityProfile: per-actor behavior baseline (manual + auto-learned)
  - SecurityAlert: analyzer findings, append-only
  - Severity, Violation: detection vocabulary shared with the analyzer

Enumerated string types (Role, Provider, IdentityType, Criticality,
EventStatus, ProfileMode, Severity, InvitationStatus) each provide a Valid
method so handlers and the normalizer can reject unknown values early.
*/
package models

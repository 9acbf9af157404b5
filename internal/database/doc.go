// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

/*
Package database provides the Postgres persistence layer for Argus.

The DB type wraps an sqlx pool over the pgx stdlib driver and exposes
tenant-scoped data access methods. Every query filters by organization_id;
there are no unscoped reads or writes.

Key Components:

  - DB: connection pool, schema bootstrap, transactions
  - Event store: bulk insert inside a flush transaction, filtered listing
  - Alert store: append-only bulk insert, recent-K snapshot, filtered listing
  - Profile store: auto-field upsert, manual patch, identity linkage
  - Identity store: (organization_id, identity_arn)-keyed upsert
  - Resource store: criticality and custom-rule patching
  - Tenancy store: organizations, users, invitations

Error Taxonomy:

Lookups that miss return ErrNotFound. Unique-constraint violations surface
as ErrDuplicate. Both are detected with errors.Is by the HTTP layer and
mapped to 404 and 409.
*/
package database

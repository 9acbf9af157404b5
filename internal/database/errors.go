// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound marks a tenant-scoped lookup miss. Mapped to 404.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate marks a unique-constraint violation. Mapped to 409.
	ErrDuplicate = errors.New("duplicate record")
)

// pgUniqueViolation is the Postgres error code for unique_violation.
const pgUniqueViolation = "23505"

// errNoRowsUpdated lets update paths reuse the ErrNotFound mapping when no
// row matched the tenant-scoped predicate.
var errNoRowsUpdated = sql.ErrNoRows

// translateError maps driver errors onto the package taxonomy so callers
// branch with errors.Is instead of inspecting driver types.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

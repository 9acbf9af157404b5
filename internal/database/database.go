// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/arguslabs/argus/internal/config"
	"github.com/arguslabs/argus/internal/logging"
)

// DB wraps the Postgres connection pool and provides data access methods.
type DB struct {
	conn *sqlx.DB
	cfg  *config.DatabaseConfig
}

// New opens the connection pool, verifies connectivity, and bootstraps the
// schema.
func New(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	conn, err := sqlx.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	if err := db.createSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	logging.Info().
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("database ready")
	return db, nil
}

// NewWithConn wraps an existing pool. Used by tests with sqlmock.
func NewWithConn(conn *sqlx.DB) *DB {
	return &DB{conn: conn}
}

// Close releases the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies connectivity, for health checks.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// BeginTx starts a transaction. The flush path inserts events, alerts, and
// profile linkage updates in one transaction and rolls back all of them on
// any error.
func (db *DB) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}

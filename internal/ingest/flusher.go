// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/arguslabs/argus/internal/logging"
	"github.com/arguslabs/argus/internal/metrics"
	"github.com/arguslabs/argus/internal/models"
)

// FlushStore is the persistence surface of one flush transaction.
type FlushStore interface {
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	InsertEventsTx(ctx context.Context, tx *sqlx.Tx, events []*models.GenericAuditEvent) error
	InsertAlertsTx(ctx context.Context, tx *sqlx.Tx, alerts []*models.SecurityAlert) error
}

// Analyzer runs the detection layers for one tenant's slice of the batch.
type Analyzer interface {
	Analyze(ctx context.Context, tx *sqlx.Tx, orgID uuid.UUID, events []*models.GenericAuditEvent) ([]*models.SecurityAlert, error)
}

// Broadcaster receives committed alerts for fan-out. Fire-and-forget.
type Broadcaster interface {
	BroadcastAlerts(orgID uuid.UUID, alerts []*models.SecurityAlert)
}

// Flusher accumulates normalized events and flushes them in one transaction:
// bulk event insert, per-tenant analysis, alert insert, commit. Any error
// rolls the whole batch back; the batch is then lost and the consumer moves
// on (offsets were committed at the bus). The flush path runs behind a
// circuit breaker so a down store trips fast instead of piling timeouts.
type Flusher struct {
	store    FlushStore
	detector Analyzer
	hub      Broadcaster
	breaker  *gobreaker.CircuitBreaker[any]

	batchSize     int
	flushInterval time.Duration

	// Owned by the consumer goroutine; no locking needed.
	buf       []*models.GenericAuditEvent
	lastFlush time.Time
}

// NewFlusher creates a flusher. hub may be nil when the server runs without
// subscribers.
func NewFlusher(store FlushStore, detector Analyzer, hub Broadcaster, batchSize int, flushInterval time.Duration) *Flusher {
	return &Flusher{
		store:         store,
		detector:      detector,
		hub:           hub,
		breaker:       newFlushBreaker(),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		lastFlush:     time.Now(),
	}
}

func newFlushBreaker() *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "flush",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("flush circuit breaker state change")
		},
	})
}

// Add buffers one event.
func (f *Flusher) Add(ev *models.GenericAuditEvent) {
	f.buf = append(f.buf, ev)
	metrics.EventsBuffered.Set(float64(len(f.buf)))
}

// Pending reports the buffered event count.
func (f *Flusher) Pending() int {
	return len(f.buf)
}

// MaybeFlush flushes when the batch is full, or when the interval elapsed
// and the buffer is non-empty. Called after every add and on idle polls so
// the timer fires without traffic.
func (f *Flusher) MaybeFlush(ctx context.Context) error {
	if len(f.buf) >= f.batchSize {
		return f.Flush(ctx)
	}
	if len(f.buf) > 0 && time.Since(f.lastFlush) >= f.flushInterval {
		return f.Flush(ctx)
	}
	return nil
}

// Flush commits the current buffer. An empty buffer is a no-op. The buffer
// is cleared regardless of outcome: a failed batch is logged and lost.
func (f *Flusher) Flush(ctx context.Context) error {
	if len(f.buf) == 0 {
		return nil
	}
	batch := f.buf
	f.buf = nil
	f.lastFlush = time.Now()
	metrics.EventsBuffered.Set(0)

	start := time.Now()
	_, err := f.breaker.Execute(func() (any, error) {
		return nil, f.flushBatch(ctx, batch)
	})
	metrics.FlushDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FlushesTotal.WithLabelValues("error").Inc()
		logging.Error().Err(err).
			Int("events", len(batch)).
			Msg("flush failed, batch lost")
		return err
	}
	metrics.FlushesTotal.WithLabelValues("ok").Inc()
	metrics.EventsFlushed.Add(float64(len(batch)))
	return nil
}

// IngestNow persists a batch synchronously, bypassing the buffer. Used by
// the HTTP ingest endpoint; safe for concurrent callers because it never
// touches the consumer-owned buffer.
func (f *Flusher) IngestNow(ctx context.Context, events []*models.GenericAuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	_, err := f.breaker.Execute(func() (any, error) {
		return nil, f.flushBatch(ctx, events)
	})
	if err != nil {
		return err
	}
	metrics.EventsFlushed.Add(float64(len(events)))
	return nil
}

func (f *Flusher) flushBatch(ctx context.Context, batch []*models.GenericAuditEvent) error {
	tx, err := f.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := f.store.InsertEventsTx(ctx, tx, batch); err != nil {
		return err
	}

	byOrg := make(map[uuid.UUID][]*models.GenericAuditEvent)
	for _, ev := range batch {
		byOrg[ev.OrganizationID] = append(byOrg[ev.OrganizationID], ev)
	}

	alertsByOrg := make(map[uuid.UUID][]*models.SecurityAlert)
	var allAlerts []*models.SecurityAlert
	for orgID, events := range byOrg {
		alerts, err := f.detector.Analyze(ctx, tx, orgID, events)
		if err != nil {
			return fmt.Errorf("analyze tenant %s: %w", orgID, err)
		}
		if len(alerts) > 0 {
			alertsByOrg[orgID] = alerts
			allAlerts = append(allAlerts, alerts...)
		}
	}

	if err := f.store.InsertAlertsTx(ctx, tx, allAlerts); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit flush: %w", err)
	}

	for orgID, alerts := range alertsByOrg {
		for _, a := range alerts {
			metrics.AlertsEmitted.WithLabelValues(a.RuleCode, string(a.Severity)).Inc()
		}
		if f.hub != nil {
			f.hub.BroadcastAlerts(orgID, alerts)
		}
	}

	logging.Debug().
		Int("events", len(batch)).
		Int("alerts", len(allAlerts)).
		Int("tenants", len(byOrg)).
		Msg("flush committed")
	return nil
}

// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

// Package analyzer runs the layered violation detector over flushed event
// batches. For each tenant batch it preloads profiles, identities, and
// resources in one round-trip each, builds an hourly feature table, and
// walks each event through the detection layers, emitting at most one
// SecurityAlert per event.
package analyzer

import (
	"strings"
	"time"

	"github.com/arguslabs/argus/internal/models"
)

// FeatureKey indexes the feature table by actor and hour window.
type FeatureKey struct {
	EntityID   string
	HourWindow time.Time
}

// FeatureRow aggregates one entity's activity within one UTC hour.
type FeatureRow struct {
	EventCount           int
	FailureRatio         float64
	UniqueIPs            int
	CriticalActionsCount int
	IsNight              int
}

// Vector returns the row in model feature order.
func (r *FeatureRow) Vector() []float64 {
	return []float64{
		float64(r.EventCount),
		r.FailureRatio,
		float64(r.UniqueIPs),
		float64(r.CriticalActionsCount),
		float64(r.IsNight),
	}
}

// nightHours marks the window hours considered off-hours activity.
func isNightHour(hour int) bool {
	return hour <= 6 || hour >= 21
}

// destructiveFeaturePrefixes are the action prefixes counted by the
// critical-actions feature. Narrower than the tampering layer's set.
var destructiveFeaturePrefixes = []string{"delete", "terminate"}

// BuildFeatures materializes the per-(entity, hour) table for one batch.
// Events with unparseable timestamps are dropped.
func BuildFeatures(events []*models.GenericAuditEvent) map[FeatureKey]*FeatureRow {
	type accum struct {
		count    int
		failures int
		critical int
		ips      map[string]struct{}
	}
	acc := make(map[FeatureKey]*accum)

	for _, ev := range events {
		ts, ok := ev.Time()
		if !ok {
			continue
		}
		key := FeatureKey{
			EntityID:   models.HybridEntityID(ev.ActorIdentity, ev.ActorIPAddress),
			HourWindow: ts.Truncate(time.Hour),
		}
		a := acc[key]
		if a == nil {
			a = &accum{ips: make(map[string]struct{})}
			acc[key] = a
		}

		a.count++
		if ev.EventStatus == models.StatusFailure {
			a.failures++
		}
		if ev.ActorIPAddress != "" {
			a.ips[ev.ActorIPAddress] = struct{}{}
		}
		action := strings.ToLower(ev.ActionName)
		for _, prefix := range destructiveFeaturePrefixes {
			if strings.HasPrefix(action, prefix) {
				a.critical++
				break
			}
		}
	}

	out := make(map[FeatureKey]*FeatureRow, len(acc))
	for key, a := range acc {
		row := &FeatureRow{
			EventCount:           a.count,
			UniqueIPs:            len(a.ips),
			CriticalActionsCount: a.critical,
		}
		if a.count > 0 {
			row.FailureRatio = float64(a.failures) / float64(a.count)
		}
		if isNightHour(key.HourWindow.Hour()) {
			row.IsNight = 1
		}
		out[key] = row
	}
	return out
}

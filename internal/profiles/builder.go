// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

// Package profiles derives per-entity behavior baselines from audit history.
//
// The builder is an offline batch job scoped to one organization. It loads a
// lookback window of events, groups them by the hybrid entity id, and for
// each of the dimensions hour, IP, and action performs cumulative-top
// selection: values are ranked by frequency and the smallest prefix whose
// cumulative share reaches the threshold becomes the entity's auto list.
// Results are upserted keyed on (organization_id, entity_id); the job is
// idempotent.
package profiles

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/arguslabs/argus/internal/database"
	"github.com/arguslabs/argus/internal/logging"
	"github.com/arguslabs/argus/internal/metrics"
	"github.com/arguslabs/argus/internal/models"
)

// Store is the data access the builder needs.
type Store interface {
	EventsForProfileBuild(ctx context.Context, orgID uuid.UUID, accountID *uuid.UUID, since time.Time) ([]database.ProfileSourceEvent, error)
	UpsertAutoProfile(ctx context.Context, orgID uuid.UUID, entityID string, hours models.IntList, ips, actions models.StringList) error
}

// Builder computes auto profiles for one tenant at a time.
type Builder struct {
	store        Store
	threshold    float64
	lookbackDays int
}

// NewBuilder validates the tuning parameters: threshold in (0, 1],
// lookback at least one day.
func NewBuilder(store Store, threshold float64, lookbackDays int) (*Builder, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold %v outside (0, 1]", threshold)
	}
	if lookbackDays < 1 {
		return nil, fmt.Errorf("lookback days %d below 1", lookbackDays)
	}
	return &Builder{store: store, threshold: threshold, lookbackDays: lookbackDays}, nil
}

// Build derives and upserts auto profiles for one organization, optionally
// narrowed to one cloud account. Returns the number of profiles written.
func (b *Builder) Build(ctx context.Context, orgID uuid.UUID, accountID *uuid.UUID) (int, error) {
	since := time.Now().UTC().AddDate(0, 0, -b.lookbackDays)
	events, err := b.store.EventsForProfileBuild(ctx, orgID, accountID, since)
	if err != nil {
		return 0, fmt.Errorf("load events: %w", err)
	}

	groups := make(map[string][]database.ProfileSourceEvent)
	for _, ev := range events {
		entityID := models.HybridEntityID(ev.ActorIdentity, ev.ActorIPAddress)
		if entityID == "" {
			continue
		}
		groups[entityID] = append(groups[entityID], ev)
	}

	written := 0
	for entityID, evs := range groups {
		hours := make([]string, 0, len(evs))
		ips := make([]string, 0, len(evs))
		actions := make([]string, 0, len(evs))
		for _, ev := range evs {
			hours = append(hours, fmt.Sprintf("%d", ev.EventTime.UTC().Hour()))
			if ev.ActorIPAddress != "" {
				ips = append(ips, ev.ActorIPAddress)
			}
			if ev.ActionName != "" {
				actions = append(actions, ev.ActionName)
			}
		}

		commonHours := make(models.IntList, 0)
		for _, h := range CumulativeTop(hours, b.threshold) {
			var n int
			if _, err := fmt.Sscanf(h, "%d", &n); err == nil {
				commonHours = append(commonHours, n)
			}
		}
		commonIPs := models.StringList(CumulativeTop(ips, b.threshold))
		commonActions := models.StringList(CumulativeTop(actions, b.threshold))

		if err := b.store.UpsertAutoProfile(ctx, orgID, entityID, commonHours, commonIPs, commonActions); err != nil {
			return written, fmt.Errorf("upsert profile for %s: %w", entityID, err)
		}
		written++
	}

	metrics.ProfilesBuilt.Add(float64(written))
	logging.Info().
		Str("organization_id", orgID.String()).
		Int("entities", written).
		Int("events", len(events)).
		Msg("profile build complete")
	return written, nil
}

// CumulativeTop ranks values by frequency, descending, and returns the
// smallest prefix whose cumulative share of all observations reaches the
// threshold. Ties rank lexicographically for determinism. An empty input
// yields an empty result.
func CumulativeTop(values []string, threshold float64) []string {
	if len(values) == 0 {
		return []string{}
	}

	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}

	type entry struct {
		value string
		count int
	}
	ranked := make([]entry, 0, len(counts))
	for v, c := range counts {
		ranked = append(ranked, entry{v, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].value < ranked[j].value
	})

	total := float64(len(values))
	out := make([]string, 0, len(ranked))
	var cumulative float64
	for _, e := range ranked {
		out = append(out, e.value)
		cumulative += float64(e.count) / total
		if cumulative >= threshold {
			break
		}
	}
	return out
}

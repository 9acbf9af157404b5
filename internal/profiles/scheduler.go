// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package profiles

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/arguslabs/argus/internal/logging"
	"github.com/arguslabs/argus/internal/models"
)

// OrgLister enumerates tenants for the scheduler.
type OrgLister interface {
	ListOrganizations(ctx context.Context) ([]*models.Organization, error)
}

// Scheduler rebuilds auto profiles for every tenant on a fixed interval.
// A zero interval disables it.
type Scheduler struct {
	builder  *Builder
	orgs     OrgLister
	interval time.Duration
}

// NewScheduler creates a scheduler.
func NewScheduler(builder *Builder, orgs OrgLister, interval time.Duration) *Scheduler {
	return &Scheduler{builder: builder, orgs: orgs, interval: interval}
}

// Enabled reports whether the scheduler will run.
func (s *Scheduler) Enabled() bool {
	return s.interval > 0
}

// Serve runs the rebuild loop until ctx is cancelled. Satisfies
// suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	if !s.Enabled() {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.buildAll(ctx)
		}
	}
}

// buildAll is best-effort per tenant: one tenant failing does not stop the
// sweep.
func (s *Scheduler) buildAll(ctx context.Context) {
	orgs, err := s.orgs.ListOrganizations(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("profile sweep: listing organizations failed")
		return
	}
	for _, org := range orgs {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.builder.Build(ctx, org.ID, nil); err != nil {
			logging.Warn().Err(err).
				Str("organization_id", org.ID.String()).
				Msg("profile build failed")
		}
	}
}

// BuildOne triggers an immediate build for one tenant. The HTTP layer calls
// this for operator-initiated rebuilds.
func (s *Scheduler) BuildOne(ctx context.Context, orgID uuid.UUID, accountID *uuid.UUID) (int, error) {
	return s.builder.Build(ctx, orgID, accountID)
}

// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arguslabs/argus/internal/logging"
	"github.com/arguslabs/argus/internal/models"
)

// destructivePrefixes trigger the critical-resource tampering layer when a
// CRITICAL resource is targeted.
var destructivePrefixes = []string{
	"delete", "terminate", "destroy", "drop", "purge", "revoke", "shutdown", "kill",
}

// Store is the tenant-scoped data access the detector needs. Each preload
// is a single round-trip.
type Store interface {
	ProfilesByEntity(ctx context.Context, orgID uuid.UUID) (map[string]*models.EntityProfile, error)
	IdentitiesByARN(ctx context.Context, orgID uuid.UUID) (map[string]*models.CloudIdentity, error)
	ResourcesByID(ctx context.Context, orgID uuid.UUID) (map[string]*models.CloudResource, error)
	LinkProfileIdentityTx(ctx context.Context, tx *sqlx.Tx, orgID uuid.UUID, entityID string, identityID uuid.UUID) error
}

// Scorer is the anomaly layer's interface.
type Scorer interface {
	Enabled() bool
	Predict(features []float64) (bool, error)
}

// Detector walks events through the detection layers.
type Detector struct {
	store  Store
	scorer Scorer
}

// New creates a detector.
func New(store Store, scorer Scorer) *Detector {
	return &Detector{store: store, scorer: scorer}
}

// Analyze runs the layers over one tenant's batch inside the flush
// transaction and returns the alerts to insert. Profile linkage updates are
// written through tx so they commit or roll back with the batch. Layer
// failures other than linkage writes degrade to no-signal.
func (d *Detector) Analyze(ctx context.Context, tx *sqlx.Tx, orgID uuid.UUID, events []*models.GenericAuditEvent) ([]*models.SecurityAlert, error) {
	if len(events) == 0 {
		return nil, nil
	}

	profiles, err := d.store.ProfilesByEntity(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("preload profiles: %w", err)
	}
	identities, err := d.store.IdentitiesByARN(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("preload identities: %w", err)
	}
	resources, err := d.store.ResourcesByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("preload resources: %w", err)
	}

	features := BuildFeatures(events)

	var alerts []*models.SecurityAlert
	for _, ev := range events {
		alert, err := d.analyzeEvent(ctx, tx, orgID, ev, profiles, identities, resources, features)
		if err != nil {
			return nil, err
		}
		if alert != nil {
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

func (d *Detector) analyzeEvent(ctx context.Context, tx *sqlx.Tx, orgID uuid.UUID,
	ev *models.GenericAuditEvent,
	profiles map[string]*models.EntityProfile,
	identities map[string]*models.CloudIdentity,
	resources map[string]*models.CloudResource,
	features map[FeatureKey]*FeatureRow,
) (*models.SecurityAlert, error) {
	entityID := models.HybridEntityID(ev.ActorIdentity, ev.ActorIPAddress)
	profile := profiles[entityID]
	action := strings.ToLower(ev.ActionName)

	var (
		violations  []models.Violation
		maxSeverity models.Severity
		skipML      bool
		identityID  *uuid.UUID
	)
	add := func(rule string, sev models.Severity) {
		violations = append(violations, models.Violation{Rule: rule, Severity: sev})
		maxSeverity = models.MaxSeverity(maxSeverity, sev)
	}

	// Shadow identity: an actor we have never inventoried.
	if ev.ActorIdentity != "" {
		identity := identities[ev.ActorIdentity]
		if identity == nil {
			add(models.RuleShadowIdentity, models.SeverityMedium)
		} else {
			identityID = &identity.ID
			if profile == nil || profile.CloudIdentityID == nil || *profile.CloudIdentityID != identity.ID {
				if err := d.store.LinkProfileIdentityTx(ctx, tx, orgID, entityID, identity.ID); err != nil {
					return nil, fmt.Errorf("link profile identity: %w", err)
				}
			}
		}
	}

	// IP whitelist.
	if profile != nil && len(profile.WhitelistedCIDRs) > 0 &&
		!ipWhitelisted(ev.ActorIPAddress, profile.WhitelistedCIDRs) {
		add(models.RuleIPViolation, models.SeverityCritical)
	}

	// Critical-resource tampering.
	if res := resources[ev.TargetResource]; res != nil && res.Criticality == models.CriticalityCritical {
		for _, prefix := range destructivePrefixes {
			if strings.HasPrefix(action, prefix) {
				add(models.RuleResourceTampering, models.SeverityHigh)
				break
			}
		}
	}

	// Manual policy.
	if profile != nil {
		if profile.ManualForbiddenActions.Contains(ev.ActionName) {
			add(models.RuleForbiddenAction, models.SeverityMedium)
		}
		if profile.ManualAllowedActions.Contains(ev.ActionName) {
			skipML = true
		}
	}

	// Auto-profile match: every non-empty auto dimension must agree.
	runML := !skipML && (profile == nil || !autoAllows(ev, profile))

	// Anomaly scoring.
	if runML && d.scorer != nil && d.scorer.Enabled() {
		if ts, ok := ev.Time(); ok {
			key := FeatureKey{EntityID: entityID, HourWindow: ts.Truncate(time.Hour)}
			if row := features[key]; row != nil {
				anomalous, err := d.scorer.Predict(row.Vector())
				if err != nil {
					logging.Warn().Err(err).Str("entity_id", entityID).
						Msg("anomaly inference failed, treating as no-signal")
				} else if anomalous {
					add(models.RuleMLAnomaly, models.SeverityHigh)
				}
			}
		}
	}

	if len(violations) == 0 {
		return nil, nil
	}

	ruleCode := violations[0].Rule
	if len(violations) > 1 {
		ruleCode = models.RuleMultiple
	}
	return &models.SecurityAlert{
		OrganizationID:  orgID,
		CloudIdentityID: identityID,
		CloudAccountID:  ev.CloudAccountID,
		EventID:         ev.EventID,
		RuleCode:        ruleCode,
		Severity:        maxSeverity,
		Description:     describe(violations, ev),
	}, nil
}

// autoAllows reports whether at least one auto dimension is learned and every
// learned dimension matches the event.
func autoAllows(ev *models.GenericAuditEvent, profile *models.EntityProfile) bool {
	any := false

	if len(profile.AutoCommonHours) > 0 {
		any = true
		ts, ok := ev.Time()
		if !ok || !profile.AutoCommonHours.Contains(ts.Hour()) {
			return false
		}
	}
	if len(profile.AutoCommonIPs) > 0 {
		any = true
		if !profile.AutoCommonIPs.Contains(ev.ActorIPAddress) {
			return false
		}
	}
	if len(profile.AutoCommonActions) > 0 {
		any = true
		if !profile.AutoCommonActions.Contains(ev.ActionName) {
			return false
		}
	}
	return any
}

func describe(violations []models.Violation, ev *models.GenericAuditEvent) string {
	rules := make([]string, len(violations))
	for i, v := range violations {
		rules[i] = v.Rule
	}
	return fmt.Sprintf("Violations detected: %s. Details: action=%s, resource=%s, actor=%s, ip=%s",
		strings.Join(rules, ", "), ev.ActionName, ev.TargetResource, ev.ActorIdentity, ev.ActorIPAddress)
}

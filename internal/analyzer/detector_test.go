// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arguslabs/argus/internal/models"
)

type fakeStore struct {
	profiles   map[string]*models.EntityProfile
	identities map[string]*models.CloudIdentity
	resources  map[string]*models.CloudResource
	linked     []string
}

func (f *fakeStore) ProfilesByEntity(_ context.Context, _ uuid.UUID) (map[string]*models.EntityProfile, error) {
	if f.profiles == nil {
		return map[string]*models.EntityProfile{}, nil
	}
	return f.profiles, nil
}

func (f *fakeStore) IdentitiesByARN(_ context.Context, _ uuid.UUID) (map[string]*models.CloudIdentity, error) {
	if f.identities == nil {
		return map[string]*models.CloudIdentity{}, nil
	}
	return f.identities, nil
}

func (f *fakeStore) ResourcesByID(_ context.Context, _ uuid.UUID) (map[string]*models.CloudResource, error) {
	if f.resources == nil {
		return map[string]*models.CloudResource{}, nil
	}
	return f.resources, nil
}

func (f *fakeStore) LinkProfileIdentityTx(_ context.Context, _ *sqlx.Tx, _ uuid.UUID, entityID string, _ uuid.UUID) error {
	f.linked = append(f.linked, entityID)
	return nil
}

type fakeScorer struct {
	enabled   bool
	anomalous bool
	calls     int
}

func (f *fakeScorer) Enabled() bool { return f.enabled }

func (f *fakeScorer) Predict(_ []float64) (bool, error) {
	f.calls++
	return f.anomalous, nil
}

func event(identity, ip, action, resource string, status models.EventStatus) *models.GenericAuditEvent {
	return &models.GenericAuditEvent{
		EventID:        uuid.NewString(),
		EventTime:      "2026-08-24T14:30:00Z",
		ActorIdentity:  identity,
		ActorIPAddress: ip,
		ActionName:     action,
		TargetResource: resource,
		EventStatus:    status,
	}
}

func TestShadowIdentity(t *testing.T) {
	store := &fakeStore{}
	d := New(store, &fakeScorer{})
	orgID := uuid.New()

	ev := event("arn:aws:iam::1:user/alice", "10.0.0.1", "GetObject", "s3://b/k", models.StatusSuccess)
	alerts, err := d.Analyze(context.Background(), nil, orgID, []*models.GenericAuditEvent{ev})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.RuleCode != models.RuleShadowIdentity {
		t.Errorf("rule_code = %s, want SHADOW_IDENTITY", a.RuleCode)
	}
	if a.Severity != models.SeverityMedium {
		t.Errorf("severity = %s, want MEDIUM", a.Severity)
	}
	if a.OrganizationID != orgID {
		t.Error("alert not tenant-scoped to the event's organization")
	}
}

func TestKnownIdentityLinksProfile(t *testing.T) {
	identityID := uuid.New()
	store := &fakeStore{
		identities: map[string]*models.CloudIdentity{
			"arn:aws:iam::1:user/alice": {ID: identityID, IdentityARN: "arn:aws:iam::1:user/alice"},
		},
	}
	d := New(store, &fakeScorer{})

	ev := event("arn:aws:iam::1:user/alice", "10.0.0.1", "GetObject", "s3://b/k", models.StatusSuccess)
	alerts, err := d.Analyze(context.Background(), nil, uuid.New(), []*models.GenericAuditEvent{ev})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("known identity with no other findings should not alert: %+v", alerts[0])
	}
	if len(store.linked) != 1 || store.linked[0] != "arn:aws:iam::1:user/alice" {
		t.Errorf("observed linkage not recorded: %v", store.linked)
	}
}

func TestIPViolationAndTampering(t *testing.T) {
	identityID := uuid.New()
	store := &fakeStore{
		identities: map[string]*models.CloudIdentity{
			"arn:aws:iam::1:user/bob": {ID: identityID},
		},
		profiles: map[string]*models.EntityProfile{
			"arn:aws:iam::1:user/bob": {
				EntityID:         "arn:aws:iam::1:user/bob",
				CloudIdentityID:  &identityID,
				WhitelistedCIDRs: models.StringList{"10.0.0.0/24"},
			},
		},
		resources: map[string]*models.CloudResource{
			"arn:aws:s3:::prod": {ResourceID: "arn:aws:s3:::prod", Criticality: models.CriticalityCritical},
		},
	}
	d := New(store, &fakeScorer{})

	ev := event("arn:aws:iam::1:user/bob", "8.8.8.8", "DeleteBucket", "arn:aws:s3:::prod", models.StatusSuccess)
	alerts, err := d.Analyze(context.Background(), nil, uuid.New(), []*models.GenericAuditEvent{ev})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.RuleCode != models.RuleMultiple {
		t.Errorf("rule_code = %s, want MULTIPLE_VIOLATIONS", a.RuleCode)
	}
	if a.Severity != models.SeverityCritical {
		t.Errorf("severity = %s, want CRITICAL (max of CRITICAL, HIGH)", a.Severity)
	}
	for _, rule := range []string{models.RuleIPViolation, models.RuleResourceTampering} {
		if !contains(a.Description, rule) {
			t.Errorf("description missing %s: %q", rule, a.Description)
		}
	}
	if a.CloudIdentityID == nil || *a.CloudIdentityID != identityID {
		t.Error("alert should carry the matched identity id")
	}
}

func TestManualAllowSuppressesML(t *testing.T) {
	identityID := uuid.New()
	store := &fakeStore{
		identities: map[string]*models.CloudIdentity{"arn:user/carol": {ID: identityID}},
		profiles: map[string]*models.EntityProfile{
			"arn:user/carol": {
				EntityID:             "arn:user/carol",
				CloudIdentityID:      &identityID,
				ManualAllowedActions: models.StringList{"AssumeRole"},
				AutoCommonActions:    models.StringList{"ListBuckets"},
			},
		},
	}
	scorer := &fakeScorer{enabled: true, anomalous: true}
	d := New(store, scorer)

	// Atypical IP and timing, but the action is manually allowed.
	ev := event("arn:user/carol", "203.0.113.9", "AssumeRole", "s3://b", models.StatusSuccess)
	ev.EventTime = "2026-08-24T03:00:00Z"
	alerts, err := d.Analyze(context.Background(), nil, uuid.New(), []*models.GenericAuditEvent{ev})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("manual allow should suppress the anomaly layer, got %+v", alerts[0])
	}
	if scorer.calls != 0 {
		t.Errorf("scorer consulted %d times, want 0", scorer.calls)
	}
}

func TestAutoProfileMatchSkipsML(t *testing.T) {
	identityID := uuid.New()
	store := &fakeStore{
		identities: map[string]*models.CloudIdentity{"arn:user/dave": {ID: identityID}},
		profiles: map[string]*models.EntityProfile{
			"arn:user/dave": {
				EntityID:          "arn:user/dave",
				CloudIdentityID:   &identityID,
				AutoCommonHours:   models.IntList{14},
				AutoCommonIPs:     models.StringList{"10.0.0.1"},
				AutoCommonActions: models.StringList{"ListBuckets"},
			},
		},
	}
	scorer := &fakeScorer{enabled: true, anomalous: true}
	d := New(store, scorer)

	ev := event("arn:user/dave", "10.0.0.1", "ListBuckets", "s3://b", models.StatusSuccess)
	ev.EventTime = "2026-08-24T14:05:00Z"
	alerts, err := d.Analyze(context.Background(), nil, uuid.New(), []*models.GenericAuditEvent{ev})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("full auto match should not alert, got %+v", alerts[0])
	}
	if scorer.calls != 0 {
		t.Errorf("scorer consulted %d times, want 0", scorer.calls)
	}
}

func TestAutoMismatchRunsML(t *testing.T) {
	identityID := uuid.New()
	store := &fakeStore{
		identities: map[string]*models.CloudIdentity{"arn:user/erin": {ID: identityID}},
		profiles: map[string]*models.EntityProfile{
			"arn:user/erin": {
				EntityID:        "arn:user/erin",
				CloudIdentityID: &identityID,
				AutoCommonIPs:   models.StringList{"10.0.0.1"},
			},
		},
	}
	scorer := &fakeScorer{enabled: true, anomalous: true}
	d := New(store, scorer)

	ev := event("arn:user/erin", "203.0.113.9", "GetObject", "s3://b", models.StatusSuccess)
	alerts, err := d.Analyze(context.Background(), nil, uuid.New(), []*models.GenericAuditEvent{ev})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected anomaly alert, got %d", len(alerts))
	}
	if alerts[0].RuleCode != models.RuleMLAnomaly {
		t.Errorf("rule_code = %s, want ML_ANOMALY_DETECTED", alerts[0].RuleCode)
	}
	if alerts[0].Severity != models.SeverityHigh {
		t.Errorf("severity = %s, want HIGH", alerts[0].Severity)
	}
}

func TestForbiddenAction(t *testing.T) {
	identityID := uuid.New()
	store := &fakeStore{
		identities: map[string]*models.CloudIdentity{"arn:user/frank": {ID: identityID}},
		profiles: map[string]*models.EntityProfile{
			"arn:user/frank": {
				EntityID:               "arn:user/frank",
				CloudIdentityID:        &identityID,
				ManualForbiddenActions: models.StringList{"DeleteTrail"},
				AutoCommonActions:      models.StringList{"DeleteTrail"},
			},
		},
	}
	d := New(store, &fakeScorer{})

	ev := event("arn:user/frank", "10.0.0.1", "DeleteTrail", "arn:aws:cloudtrail:::t", models.StatusSuccess)
	alerts, err := d.Analyze(context.Background(), nil, uuid.New(), []*models.GenericAuditEvent{ev})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(alerts) != 1 || alerts[0].RuleCode != models.RuleForbiddenAction {
		t.Fatalf("expected FORBIDDEN_ACTION alert, got %+v", alerts)
	}
	if alerts[0].Severity != models.SeverityMedium {
		t.Errorf("severity = %s, want MEDIUM", alerts[0].Severity)
	}
}

func TestEmptyBatchNoAlerts(t *testing.T) {
	d := New(&fakeStore{}, &fakeScorer{})
	alerts, err := d.Analyze(context.Background(), nil, uuid.New(), nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if alerts != nil {
		t.Errorf("empty batch should produce no alerts: %v", alerts)
	}
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}

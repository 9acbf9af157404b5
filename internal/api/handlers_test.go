// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/arguslabs/argus/internal/auth"
	"github.com/arguslabs/argus/internal/config"
	"github.com/arguslabs/argus/internal/database"
	"github.com/arguslabs/argus/internal/models"
)

type fakeStore struct {
	user *models.User

	alerts      []*models.SecurityAlert
	alertFilter database.AlertFilter
	profile     *models.EntityProfile
	profileErr  error
	resource    *models.CloudResource
	patchErr    error
	pingErr     error
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, database.ErrNotFound
	}
	return s.user, nil
}

func (s *fakeStore) ListAlerts(_ context.Context, f database.AlertFilter) ([]*models.SecurityAlert, error) {
	s.alertFilter = f
	return s.alerts, nil
}

func (s *fakeStore) ListEvents(context.Context, database.EventFilter) ([]*models.AuditEvent, error) {
	return nil, nil
}

func (s *fakeStore) GetProfile(_ context.Context, _ uuid.UUID, _ string) (*models.EntityProfile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return s.profile, nil
}

func (s *fakeStore) ListProfiles(context.Context, uuid.UUID) ([]*models.EntityProfile, error) {
	return nil, nil
}

func (s *fakeStore) PatchProfile(_ context.Context, _ uuid.UUID, _ string, _ database.ProfilePatch) (*models.EntityProfile, error) {
	if s.patchErr != nil {
		return nil, s.patchErr
	}
	return s.profile, nil
}

func (s *fakeStore) ListIdentities(context.Context, uuid.UUID) ([]*models.CloudIdentity, error) {
	return nil, nil
}

func (s *fakeStore) GetResource(_ context.Context, _ uuid.UUID, _ string) (*models.CloudResource, error) {
	if s.resource == nil {
		return nil, database.ErrNotFound
	}
	return s.resource, nil
}

func (s *fakeStore) ListResources(context.Context, uuid.UUID) ([]*models.CloudResource, error) {
	return nil, nil
}

func (s *fakeStore) PatchResource(_ context.Context, _ uuid.UUID, _ string, _ database.ResourcePatch) (*models.CloudResource, error) {
	if s.patchErr != nil {
		return nil, s.patchErr
	}
	return s.resource, nil
}

type fakeSink struct {
	events []*models.GenericAuditEvent
}

func (s *fakeSink) IngestNow(_ context.Context, events []*models.GenericAuditEvent) error {
	s.events = append(s.events, events...)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:        "127.0.0.1",
			Port:        8000,
			Timeout:     30 * time.Second,
			CORSOrigins: []string{"*"},
		},
		Security: config.SecurityConfig{
			SecretKey:         "test-secret-key-at-least-32-chars-long",
			JWTAlgorithm:      "HS256",
			AccessTokenExpire: time.Hour,
			RateLimitReqs:     1000,
			RateLimitWindow:   time.Minute,
		},
	}
}

type testEnv struct {
	router *Router
	store  *fakeStore
	sink   *fakeSink
	http   http.Handler
	tokens *auth.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()
	tokens, err := auth.NewTokenManager(&cfg.Security)
	if err != nil {
		t.Fatal(err)
	}
	store := &fakeStore{}
	sink := &fakeSink{}
	rt := NewRouter(cfg, store, tokens, sink, nil)
	return &testEnv{router: rt, store: store, sink: sink, http: rt.Routes(), tokens: tokens}
}

func (e *testEnv) tokenFor(t *testing.T, orgID uuid.UUID, role models.Role) string {
	t.Helper()
	token, err := e.tokens.GenerateToken(&models.User{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Role:           role,
	})
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.http.ServeHTTP(rec, req)
	return rec
}

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body detailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not a detail body: %s", rec.Body.String())
	}
	return body.Detail
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	hash, err := auth.HashPassword("correct-horse")
	if err != nil {
		t.Fatal(err)
	}
	env.store.user = &models.User{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Email:          "alice@example.com",
		PasswordHash:   hash,
		Role:           models.RoleAdmin,
		IsActive:       true,
	}

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "alice@example.com", "password": "correct-horse"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.AccessToken == "" || resp.TokenType != "bearer" {
		t.Errorf("unexpected response %+v", resp)
	}
	claims, err := env.tokens.ValidateToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.OrganizationID != env.store.user.OrganizationID {
		t.Error("token org does not match user org")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	hash, _ := auth.HashPassword("correct-horse")
	env.store.user = &models.User{
		Email: "alice@example.com", PasswordHash: hash, IsActive: true,
		ID: uuid.New(), OrganizationID: uuid.New(),
	}

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"wrong password", map[string]string{"email": "alice@example.com", "password": "nope"}, http.StatusUnauthorized},
		{"unknown email", map[string]string{"email": "bob@example.com", "password": "x"}, http.StatusUnauthorized},
		{"missing fields", map[string]string{"email": "alice@example.com"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if detailOf(t, rec) == "" {
				t.Error("error body must carry a detail message")
			}
		})
	}
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	env := newTestEnv(t)
	hash, _ := auth.HashPassword("correct-horse")
	env.store.user = &models.User{
		Email: "alice@example.com", PasswordHash: hash, IsActive: false,
		ID: uuid.New(), OrganizationID: uuid.New(),
	}
	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "alice@example.com", "password": "correct-horse"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("inactive user login: status = %d, want 401", rec.Code)
	}
}

func TestAuthenticationRequired(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/v1/alerts", "/api/v1/profiles", "/api/v1/identities", "/api/v1/resources"} {
		rec := env.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: status = %d, want 401", path, rec.Code)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/v1/alerts", "garbage-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}
}

func TestListAlertsScopedToTokenOrg(t *testing.T) {
	env := newTestEnv(t)
	orgID := uuid.New()
	env.store.alerts = []*models.SecurityAlert{{
		ID: 1, OrganizationID: orgID,
		RuleCode: models.RuleIPViolation, Severity: models.SeverityCritical,
	}}

	token := env.tokenFor(t, orgID, models.RoleViewer)
	rec := env.do(t, http.MethodGet, "/api/v1/alerts?severity=CRITICAL", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if env.store.alertFilter.OrganizationID != orgID {
		t.Errorf("filter org = %s, want token org %s", env.store.alertFilter.OrganizationID, orgID)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/alerts?severity=BOGUS", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus severity: status = %d, want 400", rec.Code)
	}
}

func TestListAlertsFiltersAndPagination(t *testing.T) {
	env := newTestEnv(t)
	orgID := uuid.New()
	accountID := uuid.New()
	token := env.tokenFor(t, orgID, models.RoleViewer)

	rec := env.do(t, http.MethodGet,
		"/api/v1/alerts?rule_code=IP_VIOLATION&account_id="+accountID.String()+
			"&search=DeleteBucket&page=3&page_size=25", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	f := env.store.alertFilter
	if f.RuleCode != "IP_VIOLATION" || f.Search != "DeleteBucket" {
		t.Errorf("filter = %+v", f)
	}
	if f.CloudAccountID == nil || *f.CloudAccountID != accountID {
		t.Error("account filter not applied")
	}
	if f.Limit != 25 || f.Offset != 50 {
		t.Errorf("pagination = limit %d offset %d, want 25/50", f.Limit, f.Offset)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/alerts?account_id=nope", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid account_id: status = %d, want 400", rec.Code)
	}
}

func TestPatchProfileRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	orgID := uuid.New()
	env.store.profile = &models.EntityProfile{OrganizationID: orgID, EntityID: "alice"}

	viewer := env.tokenFor(t, orgID, models.RoleViewer)
	rec := env.do(t, http.MethodPatch, "/api/v1/profiles/alice", viewer,
		map[string]any{"profile_mode": "MANUAL"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("viewer patch: status = %d, want 403", rec.Code)
	}

	admin := env.tokenFor(t, orgID, models.RoleAdmin)
	rec = env.do(t, http.MethodPatch, "/api/v1/profiles/alice", admin,
		map[string]any{"profile_mode": "MANUAL"})
	if rec.Code != http.StatusOK {
		t.Errorf("admin patch: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestPatchProfileValidation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokenFor(t, uuid.New(), models.RoleAdmin)

	rec := env.do(t, http.MethodPatch, "/api/v1/profiles/alice", admin,
		map[string]any{"whitelisted_cidrs": []string{"10.0.0.0/8", "not-a-cidr"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid CIDR: status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPatch, "/api/v1/profiles/alice", admin,
		map[string]any{"profile_mode": "TURBO"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid mode: status = %d, want 400", rec.Code)
	}
}

func TestResourceNotFound(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(t, uuid.New(), models.RoleAdmin)

	rec := env.do(t, http.MethodGet, "/api/v1/resources/arn:missing", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if detailOf(t, rec) != "not found" {
		t.Errorf("detail = %q", detailOf(t, rec))
	}

	env.store.patchErr = database.ErrNotFound
	rec = env.do(t, http.MethodPatch, "/api/v1/resources/arn:missing", token,
		map[string]any{"criticality": "CRITICAL"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("patch status = %d, want 404", rec.Code)
	}
}

func TestIngestOverridesOrganization(t *testing.T) {
	env := newTestEnv(t)
	orgID := uuid.New()
	admin := env.tokenFor(t, orgID, models.RoleAdmin)

	rec := env.do(t, http.MethodPost, "/api/v1/events/ingest", admin, map[string]any{
		"organization_id": uuid.NewString(), // spoofed, must be ignored
		"event_id":        "e-1",
		"action_name":     "DeleteBucket",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(env.sink.events) != 1 {
		t.Fatalf("sink received %d events, want 1", len(env.sink.events))
	}
	if env.sink.events[0].OrganizationID != orgID {
		t.Error("ingested event must carry the token org, not the payload org")
	}

	viewer := env.tokenFor(t, orgID, models.RoleViewer)
	rec = env.do(t, http.MethodPost, "/api/v1/events/ingest", viewer, map[string]any{"event_id": "e-2"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer ingest: status = %d, want 403", rec.Code)
	}
}

func TestIngestBatch(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokenFor(t, uuid.New(), models.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/ingest",
		bytes.NewReader([]byte(`[{"event_id":"a"},{"event_id":"b"}]`)))
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	env.http.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(env.sink.events) != 2 {
		t.Errorf("sink received %d events, want 2", len(env.sink.events))
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	env.store.pingErr = context.DeadlineExceeded
	rec = env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded status = %d, want 503", rec.Code)
	}
}

func TestSubscribeAlertsRejectsBadToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/ws/alerts", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		// hub is nil in this env
		t.Errorf("status = %d, want 503", rec.Code)
	}

	cfg := testConfig()
	tokens, _ := auth.NewTokenManager(&cfg.Security)
	rt := NewRouter(cfg, &fakeStore{}, tokens, nil, stubSubscriber{})
	handler := rt.Routes()

	req := httptest.NewRequest(http.MethodGet, "/ws/alerts?token=garbage", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("bad token: status = %d, want 403", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/ws/alerts", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("missing token: status = %d, want 403", w.Code)
	}
}

type stubSubscriber struct{}

func (stubSubscriber) Subscribe(http.ResponseWriter, *http.Request, uuid.UUID, int) error {
	return nil
}

// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/arguslabs/argus/internal/database"
	"github.com/arguslabs/argus/internal/models"
)

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func queryTime(r *http.Request, key string) time.Time {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// queryUUID parses an optional UUID query parameter. The second return is
// false when the value is present but malformed.
func queryUUID(r *http.Request, key string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}

// pagination maps page/page_size parameters onto limit/offset, falling
// back to explicit limit/offset when page is absent.
func pagination(r *http.Request) (limit, offset int) {
	page := queryInt(r, "page")
	pageSize := queryInt(r, "page_size")
	if page > 0 {
		if pageSize <= 0 {
			pageSize = 100
		}
		return pageSize, (page - 1) * pageSize
	}
	return queryInt(r, "limit"), queryInt(r, "offset")
}

// ListAlerts returns the caller's alerts, newest first. Filters:
// rule_code, severity, account_id, identity_id, search, since (RFC 3339);
// pagination via page/page_size or limit/offset.
func (rt *Router) ListAlerts(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	q := r.URL.Query()

	severity := models.Severity(q.Get("severity"))
	if severity != "" && severity.Rank() == 0 {
		writeDetail(w, http.StatusBadRequest, "invalid severity")
		return
	}
	accountID, ok := queryUUID(r, "account_id")
	if !ok {
		writeDetail(w, http.StatusBadRequest, "invalid account_id")
		return
	}
	identityID, ok := queryUUID(r, "identity_id")
	if !ok {
		writeDetail(w, http.StatusBadRequest, "invalid identity_id")
		return
	}

	limit, offset := pagination(r)
	alerts, err := rt.store.ListAlerts(r.Context(), database.AlertFilter{
		OrganizationID:  claims.OrganizationID,
		RuleCode:        q.Get("rule_code"),
		Severity:        severity,
		CloudAccountID:  accountID,
		CloudIdentityID: identityID,
		Search:          q.Get("search"),
		Since:           queryTime(r, "since"),
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if alerts == nil {
		alerts = []*models.SecurityAlert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// ListEvents returns the caller's audit events, newest first. Filters:
// actor, action, status, since (RFC 3339), limit, offset.
func (rt *Router) ListEvents(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	q := r.URL.Query()

	events, err := rt.store.ListEvents(r.Context(), database.EventFilter{
		OrganizationID: claims.OrganizationID,
		ActorIdentity:  q.Get("actor"),
		ActionName:     q.Get("action"),
		Status:         models.EventStatus(q.Get("status")),
		Since:          queryTime(r, "since"),
		Limit:          queryInt(r, "limit"),
		Offset:         queryInt(r, "offset"),
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if events == nil {
		events = []*models.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

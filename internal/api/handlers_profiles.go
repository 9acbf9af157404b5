// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package api

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"

	"github.com/arguslabs/argus/internal/database"
	"github.com/arguslabs/argus/internal/models"
)

// GetProfile returns one entity profile for the caller's organization.
func (rt *Router) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	entityID := chi.URLParam(r, "entity_id")

	profile, err := rt.store.GetProfile(r.Context(), claims.OrganizationID, entityID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// ListProfiles returns every profile for the caller's organization.
func (rt *Router) ListProfiles(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	profiles, err := rt.store.ListProfiles(r.Context(), claims.OrganizationID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if profiles == nil {
		profiles = []*models.EntityProfile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

type profilePatchRequest struct {
	ProfileMode            *models.ProfileMode `json:"profile_mode"`
	WhitelistedCIDRs       *models.StringList  `json:"whitelisted_cidrs"`
	ManualAllowedActions   *models.StringList  `json:"manual_allowed_actions"`
	ManualForbiddenActions *models.StringList  `json:"manual_forbidden_actions"`
}

// PatchProfile applies operator edits to the manual profile dimensions.
// Admin only. CIDRs are validated up front so a typo cannot silently
// disable the whitelist layer.
func (rt *Router) PatchProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	entityID := chi.URLParam(r, "entity_id")

	var req profilePatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProfileMode != nil && !req.ProfileMode.Valid() {
		writeDetail(w, http.StatusBadRequest, "invalid profile_mode")
		return
	}
	if req.WhitelistedCIDRs != nil {
		for _, cidr := range *req.WhitelistedCIDRs {
			if _, err := netip.ParsePrefix(cidr); err != nil {
				writeDetail(w, http.StatusBadRequest, "invalid CIDR: "+cidr)
				return
			}
		}
	}

	profile, err := rt.store.PatchProfile(r.Context(), claims.OrganizationID, entityID, database.ProfilePatch{
		ProfileMode:            req.ProfileMode,
		WhitelistedCIDRs:       req.WhitelistedCIDRs,
		ManualAllowedActions:   req.ManualAllowedActions,
		ManualForbiddenActions: req.ManualForbiddenActions,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/arguslabs/argus/internal/database"
	"github.com/arguslabs/argus/internal/models"
)

// ListIdentities returns the caller's cloud identities.
func (rt *Router) ListIdentities(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	identities, err := rt.store.ListIdentities(r.Context(), claims.OrganizationID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if identities == nil {
		identities = []*models.CloudIdentity{}
	}
	writeJSON(w, http.StatusOK, identities)
}

// ListResources returns the caller's cloud resources.
func (rt *Router) ListResources(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	resources, err := rt.store.ListResources(r.Context(), claims.OrganizationID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if resources == nil {
		resources = []*models.CloudResource{}
	}
	writeJSON(w, http.StatusOK, resources)
}

// GetResource returns one resource for the caller's organization.
func (rt *Router) GetResource(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	resourceID := chi.URLParam(r, "resource_id")

	resource, err := rt.store.GetResource(r.Context(), claims.OrganizationID, resourceID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resource)
}

type resourcePatchRequest struct {
	DisplayName *string             `json:"display_name"`
	Criticality *models.Criticality `json:"criticality"`
	CustomRules json.RawMessage     `json:"custom_rules"`
}

// PatchResource applies operator edits to one resource. Admin only.
// Patching an unknown resource returns 404.
func (rt *Router) PatchResource(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	resourceID := chi.URLParam(r, "resource_id")

	var req resourcePatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Criticality != nil && !req.Criticality.Valid() {
		writeDetail(w, http.StatusBadRequest, "invalid criticality")
		return
	}

	resource, err := rt.store.PatchResource(r.Context(), claims.OrganizationID, resourceID, database.ResourcePatch{
		DisplayName: req.DisplayName,
		Criticality: req.Criticality,
		CustomRules: req.CustomRules,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resource)
}

// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package api

import (
	"bytes"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/arguslabs/argus/internal/ingest"
	"github.com/arguslabs/argus/internal/models"
)

// IngestEvents accepts one raw audit event or an array of them, normalizes
// each, and runs the full persist-and-analyze path synchronously. Admin
// only. The organization always comes from the caller's token; any
// organization_id in the payload is overwritten.
func (rt *Router) IngestEvents(w http.ResponseWriter, r *http.Request) {
	if rt.sink == nil {
		writeDetail(w, http.StatusServiceUnavailable, "event pipeline is disabled")
		return
	}
	claims := claimsFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var raws []map[string]any
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		var one map[string]any
		if err := json.Unmarshal(trimmed, &one); err != nil || one == nil {
			writeDetail(w, http.StatusBadRequest, "invalid request body")
			return
		}
		raws = append(raws, one)
	}
	if len(raws) == 0 {
		writeDetail(w, http.StatusBadRequest, "no events in payload")
		return
	}

	events := make([]*models.GenericAuditEvent, 0, len(raws))
	for _, raw := range raws {
		raw["organization_id"] = claims.OrganizationID.String()
		encoded, err := json.Marshal(raw)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid request body")
			return
		}
		ev, err := ingest.NormalizeEvent(encoded)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "malformed event payload")
			return
		}
		events = append(events, ev)
	}

	if err := rt.sink.IngestNow(r.Context(), events); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"ingested": len(events)})
}

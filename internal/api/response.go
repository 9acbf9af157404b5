// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package api

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/arguslabs/argus/internal/database"
	"github.com/arguslabs/argus/internal/logging"
)

// maxBodyBytes bounds request bodies. Raw audit events are small; 1 MiB
// leaves generous headroom.
const maxBodyBytes = 1 << 20

// detailResponse is the uniform error body.
type detailResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("failed to encode response")
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

// writeStoreError maps store errors onto HTTP statuses. Unrecognized
// errors become an opaque 500 so storage detail never reaches clients.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "not found")
	case errors.Is(err, database.ErrDuplicate):
		writeDetail(w, http.StatusConflict, "already exists")
	default:
		logging.Error().Err(err).Msg("request failed")
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody decodes a JSON request body into dst, enforcing the size cap.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package api

import (
	"errors"
	"net/http"

	"github.com/arguslabs/argus/internal/auth"
	"github.com/arguslabs/argus/internal/database"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Login verifies credentials and mints an access token. Unknown email and
// wrong password return the same response so the endpoint cannot be used
// to enumerate accounts.
func (rt *Router) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := rt.validate.Struct(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := rt.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeDetail(w, http.StatusUnauthorized, "incorrect email or password")
			return
		}
		writeStoreError(w, err)
		return
	}
	if !user.IsActive || !auth.VerifyPassword(user.PasswordHash, req.Password) {
		writeDetail(w, http.StatusUnauthorized, "incorrect email or password")
		return
	}

	token, err := rt.tokens.GenerateToken(user)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(rt.cfg.Security.AccessTokenExpire.Seconds()),
	})
}

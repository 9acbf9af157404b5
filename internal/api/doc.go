// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

// Package api provides the HTTP surface: REST endpoints under /api/v1,
// the /ws/alerts subscriber endpoint, /metrics, and health.
//
// Every authorized request is scoped to the organization carried in its
// access token; no endpoint accepts an organization id from the client.
// Errors are returned as {"detail": "..."} with a meaningful status code.
package api

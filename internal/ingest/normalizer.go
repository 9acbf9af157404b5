// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

// Package ingest consumes the audit-event and identity topics, normalizes
// heterogeneous payloads into the canonical event shape, buffers them, and
// flushes batches through one persistence transaction that also runs the
// violation detector.
package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/arguslabs/argus/internal/models"
)

// ErrMalformed marks payloads the consumer drops with a warning: invalid
// JSON, null or non-object payloads, and missing or invalid required fields.
var ErrMalformed = errors.New("malformed message")

// NormalizeEvent adapts one event payload into the canonical shape. Fields
// are merged from the top level and a nested raw object, first non-empty
// wins. Payloads without a nested raw object are treated as raw provider
// records themselves. Normalization is idempotent: feeding a marshaled
// normalized event back through produces the same event.
func NormalizeEvent(payload []byte) (*models.GenericAuditEvent, error) {
	obj, err := decodeObject(payload)
	if err != nil {
		return nil, err
	}

	raw, _ := obj["raw"].(map[string]any)
	if raw == nil {
		raw = obj
	}

	orgID, err := uuid.Parse(stringField(obj, "organization_id"))
	if err != nil {
		return nil, fmt.Errorf("%w: organization_id missing or invalid", ErrMalformed)
	}

	ev := &models.GenericAuditEvent{
		OrganizationID: orgID,
		EventID:        firstNonEmpty(stringField(obj, "event_id"), stringField(raw, "event_id"), stringField(raw, "eventID")),
		EventTime:      normalizeTime(firstNonEmpty(timeField(obj, "event_time"), timeField(raw, "event_time"), timeField(raw, "eventTime"))),
		ActorIdentity:  firstNonEmpty(stringField(obj, "actor_identity"), nestedString(raw, "userIdentity", "userName"), nestedString(raw, "userIdentity", "arn"), stringField(raw, "AccessKeyId")),
		ActorIPAddress: firstNonEmpty(stringField(obj, "actor_ip_address"), stringField(raw, "sourceIPAddress"), stringField(obj, "ip"), stringField(raw, "ip")),
		ActionName:     firstNonEmpty(stringField(obj, "action_name"), stringField(raw, "eventName")),
	}
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}

	ev.TargetResource = firstNonEmpty(stringField(obj, "target_resource"), synthesizeTarget(raw))
	ev.EventStatus = normalizeStatus(obj, raw)
	ev.CloudProvider = normalizeProvider(obj)

	if accountStr := stringField(obj, "cloud_account_id"); accountStr != "" {
		if accountID, err := uuid.Parse(accountStr); err == nil {
			ev.CloudAccountID = &accountID
		}
	}

	if inner, ok := obj["raw"].(map[string]any); ok {
		ev.RawLog = inner
	} else if inner, ok := obj["raw_log"].(map[string]any); ok {
		ev.RawLog = inner
	} else {
		ev.RawLog = raw
	}
	return ev, nil
}

// ParseIdentity validates one identity payload. organization_id and
// identity_arn are required; type and mfa default when unparseable.
func ParseIdentity(payload []byte) (*models.CloudIdentity, error) {
	obj, err := decodeObject(payload)
	if err != nil {
		return nil, err
	}

	orgID, err := uuid.Parse(stringField(obj, "organization_id"))
	if err != nil {
		return nil, fmt.Errorf("%w: organization_id missing or invalid", ErrMalformed)
	}
	arn := stringField(obj, "identity_arn")
	if arn == "" {
		return nil, fmt.Errorf("%w: identity_arn missing", ErrMalformed)
	}

	identity := &models.CloudIdentity{
		OrganizationID: orgID,
		IdentityARN:    arn,
		IdentityName:   stringField(obj, "identity_name"),
		IdentityType:   models.IdentityType(stringField(obj, "identity_type")),
		IsMFAEnabled:   boolField(obj, "is_mfa_enabled"),
	}
	if !identity.IdentityType.Valid() {
		identity.IdentityType = models.IdentityIAMUser
	}
	if ts := normalizeTime(timeField(obj, "created_at")); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			t = t.UTC()
			identity.CreatedAt = &t
		}
	}
	return identity, nil
}

func decodeObject(payload []byte) (map[string]any, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: payload is not an object", ErrMalformed)
	}
	return obj, nil
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func boolField(obj map[string]any, key string) bool {
	b, _ := obj[key].(bool)
	return b
}

func nestedString(obj map[string]any, outer, inner string) string {
	nested, _ := obj[outer].(map[string]any)
	if nested == nil {
		return ""
	}
	return stringField(nested, inner)
}

// timeField reads a timestamp that may be a string or epoch-seconds number.
func timeField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// normalizeTime accepts ISO-8601 or epoch seconds and emits RFC3339 UTC.
// Unrecognized values pass through unchanged; downstream time parsing drops
// them from time-derived features.
func normalizeTime(value string) string {
	if value == "" {
		return ""
	}
	if epoch, err := strconv.ParseFloat(value, 64); err == nil {
		sec := int64(epoch)
		nsec := int64((epoch - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC().Format(time.RFC3339)
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return value
}

// synthesizeTarget derives a resource identifier from provider-specific raw
// fields when no explicit target is present.
func synthesizeTarget(raw map[string]any) string {
	params, _ := raw["requestParameters"].(map[string]any)

	bucket := firstNonEmpty(nestedStringIn(params, "bucketName"), stringField(raw, "bucketName"))
	key := firstNonEmpty(nestedStringIn(params, "key"), stringField(raw, "key"))
	if bucket != "" && key != "" {
		return "s3://" + bucket + "/" + key
	}
	if bucket != "" {
		return "s3://" + bucket
	}

	if id := firstNonEmpty(nestedStringIn(params, "instanceId"), stringField(raw, "instanceId")); id != "" {
		return id
	}
	if id := firstNonEmpty(nestedStringIn(params, "imageId"), stringField(raw, "imageId")); id != "" {
		return id
	}
	if src := stringField(raw, "eventSource"); src != "" {
		return src
	}
	if res := stringField(raw, "resource"); res != "" {
		return res
	}
	return firstNonEmpty(nestedStringIn(params, "groupId"), stringField(raw, "groupId"))
}

func nestedStringIn(obj map[string]any, key string) string {
	if obj == nil {
		return ""
	}
	return stringField(obj, key)
}

// normalizeStatus prefers an explicit status; otherwise a raw error marker
// or an explicitly null responseElements means FAILURE.
func normalizeStatus(obj, raw map[string]any) models.EventStatus {
	if status := models.EventStatus(stringField(obj, "event_status")); status.Valid() {
		return status
	}
	if stringField(raw, "errorCode") != "" || stringField(raw, "errorMessage") != "" {
		return models.StatusFailure
	}
	if v, present := raw["responseElements"]; present && v == nil {
		return models.StatusFailure
	}
	return models.StatusSuccess
}

func normalizeProvider(obj map[string]any) models.Provider {
	if p := models.Provider(stringField(obj, "cloud_provider")); p.Valid() {
		return p
	}
	return models.ProviderAWS
}

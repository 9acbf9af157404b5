// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package models

import (
	"database/sql/driver"
	"fmt"

	json "github.com/goccy/go-json"
)

// StringList is a []string stored as a JSONB array column. A NULL column
// scans to an empty list so callers never branch on nil.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	return scanJSONList(l, src)
}

// Contains reports whether v is present in the list.
func (l StringList) Contains(v string) bool {
	for _, s := range l {
		if s == v {
			return true
		}
	}
	return false
}

// IntList is a []int stored as a JSONB array column.
type IntList []int

// Value implements driver.Valuer.
func (l IntList) Value() (driver.Value, error) {
	if l == nil {
		l = IntList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *IntList) Scan(src any) error {
	return scanJSONList(l, src)
}

// Contains reports whether v is present in the list.
func (l IntList) Contains(v int) bool {
	for _, n := range l {
		if n == v {
			return true
		}
	}
	return false
}

func scanJSONList(dst any, src any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T into JSON list", src)
	}
}

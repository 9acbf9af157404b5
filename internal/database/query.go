// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package database

import (
	"strconv"
	"strings"
)

// placeholderRow renders "($start, $start+1, ...)" for n columns.
func placeholderRow(start, n int) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(start + i))
	}
	sb.WriteByte(')')
	return sb.String()
}

// placeholderCond appends "$n" to a SQL fragment.
func placeholderCond(prefix string, n int) string {
	return prefix + "$" + strconv.Itoa(n)
}

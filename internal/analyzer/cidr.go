// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package analyzer

import "net/netip"

// ipWhitelisted reports whether ip falls inside any CIDR in the list.
// Invalid CIDRs are skipped; an unparseable IP is never contained.
func ipWhitelisted(ip string, cidrs []string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	for _, c := range cidrs {
		prefix, err := netip.ParsePrefix(c)
		if err != nil {
			continue
		}
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

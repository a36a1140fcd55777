// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package safety

import "strings"

// dangerousSchemes are never valid redirect targets.
var dangerousSchemes = []string{"javascript:", "data:", "vbscript:", "file:", "ftp:"}

// HasDangerousScheme reports whether raw starts with a blocked scheme.
// Whitespace and control characters are ignored the way browsers ignore
// them, so "java\tscript:" is caught as well.
func HasDangerousScheme(raw string) bool {
	var b strings.Builder
	for i := 0; i < len(raw) && b.Len() < 16; i++ {
		c := raw[i]
		if c <= ' ' || c == 0x7f {
			continue
		}
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	head := b.String()
	for _, scheme := range dangerousSchemes {
		if strings.HasPrefix(head, scheme) {
			return true
		}
	}
	return false
}

// CoerceScheme prefixes http:// when raw does not start with http:// or https://.
// A protocol-relative "//host" becomes "http://host".
func CoerceScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return raw
	case strings.HasPrefix(raw, "//"):
		return "http:" + raw
	default:
		return "http://" + raw
	}
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package redirect holds the rule store, the request matcher and rule management.
package redirect

import (
	"regexp"
	"strings"
)

// schemeHost matches a leading "scheme://host[:port]" (optionally "www.").
var schemeHost = regexp.MustCompile(`(?i)^[a-z][a-z0-9+.\-]*://[^/?#]*`)

// Normalize converts a path or URL into a lookup key: scheme and host are
// removed, surrounding slashes and whitespace are trimmed, and ASCII letters
// are lowercased. The query string is kept. Normalize is idempotent.
func Normalize(s string) string {
	for {
		trimmed := strings.Trim(strings.TrimSpace(s), "/")
		if loc := schemeHost.FindStringIndex(trimmed); loc != nil {
			s = trimmed[loc[1]:]
			continue
		}
		if trimmed == s {
			break
		}
		s = trimmed
	}
	return asciiLower(s)
}

// NormalizeBare is Normalize with any query string or fragment removed.
func NormalizeBare(s string) string {
	key := Normalize(s)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		return Normalize(key[:i])
	}
	return key
}

// asciiLower lowercases A-Z only; other bytes, including UTF-8 sequences, are untouched.
func asciiLower(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if 'A' <= b[j] && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}

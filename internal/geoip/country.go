// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package geoip

import (
	"net/http"
	"strings"
)

// countryHeaders are set by CDNs and reverse proxies that already geolocated the visitor.
var countryHeaders = []string{"CF-IPCountry", "X-Country-Code"}

// CountryLookup resolves an IP address to a country code.
type CountryLookup interface {
	LookupCountry(ip string) string
}

// CountryFromRequest returns the raw country hint for a request: a CDN header
// when present, otherwise a database lookup of clientIP. The value is not
// validated here. lookup may be nil.
func CountryFromRequest(r *http.Request, clientIP string, lookup CountryLookup) string {
	for _, header := range countryHeaders {
		if v := strings.TrimSpace(r.Header.Get(header)); v != "" && !strings.EqualFold(v, "XX") {
			return v
		}
	}
	if lookup == nil {
		return ""
	}
	return lookup.LookupCountry(clientIP)
}

// CountryName returns the English name for a 2-letter country code.
func CountryName(code string) string {
	if name, ok := countryNames[strings.ToUpper(code)]; ok {
		return name
	}
	if code == "" {
		return "Unknown"
	}
	return code
}

var countryNames = map[string]string{
	"US": "United States",
	"GB": "United Kingdom",
	"DE": "Germany",
	"FR": "France",
	"ES": "Spain",
	"IT": "Italy",
	"NL": "Netherlands",
	"BE": "Belgium",
	"AT": "Austria",
	"CH": "Switzerland",
	"PL": "Poland",
	"CZ": "Czech Republic",
	"SE": "Sweden",
	"NO": "Norway",
	"DK": "Denmark",
	"FI": "Finland",
	"UA": "Ukraine",
	"CA": "Canada",
	"MX": "Mexico",
	"BR": "Brazil",
	"AR": "Argentina",
	"AU": "Australia",
	"NZ": "New Zealand",
	"JP": "Japan",
	"CN": "China",
	"KR": "South Korea",
	"IN": "India",
	"SG": "Singapore",
	"HK": "Hong Kong",
	"TW": "Taiwan",
	"ID": "Indonesia",
	"ZA": "South Africa",
	"NG": "Nigeria",
	"IL": "Israel",
	"AE": "United Arab Emirates",
	"TR": "Turkey",
	"PT": "Portugal",
	"IE": "Ireland",
	"RO": "Romania",
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"regexp"
	"strings"

	"github.com/mileusna/useragent"

	"github.com/olegiv/hoppr-go/internal/model"
)

var (
	mobilePattern = regexp.MustCompile(`(?i)Mobile|Android|iPhone|iPod|BlackBerry|Windows Phone|Opera Mini|IEMobile`)
	tabletPattern = regexp.MustCompile(`(?i)iPad|Android.*Tablet|Kindle|Silk|PlayBook`)
)

// ClassifyDevice maps a user agent to a device class. Mobile keywords are
// checked before tablet ones, so an Android tablet UA that also says
// "Android" counts as mobile.
func ClassifyDevice(ua string) model.DeviceClass {
	switch {
	case strings.TrimSpace(ua) == "":
		return model.DeviceUnknown
	case mobilePattern.MatchString(ua):
		return model.DeviceMobile
	case tabletPattern.MatchString(ua):
		return model.DeviceTablet
	default:
		return model.DeviceDesktop
	}
}

// agentInfo is the browser breakdown of a user agent.
type agentInfo struct {
	Browser string
	OS      string
	Bot     bool
}

func parseAgent(ua string) agentInfo {
	if ua == "" {
		return agentInfo{}
	}
	parsed := useragent.Parse(ua)
	return agentInfo{
		Browser: parsed.Name,
		OS:      parsed.OS,
		Bot:     parsed.Bot,
	}
}

// NormalizeCountry returns an uppercase ISO 3166-1 alpha-2 code or "".
func NormalizeCountry(code string) string {
	code = strings.TrimSpace(code)
	if len(code) != 2 {
		return ""
	}
	for i := 0; i < 2; i++ {
		c := code[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return ""
		}
	}
	return strings.ToUpper(code)
}

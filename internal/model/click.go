package model

import "time"

// DeviceClass is the coarse device family derived from a user agent.
type DeviceClass string

// Device classes.
const (
	DeviceDesktop DeviceClass = "desktop"
	DeviceMobile  DeviceClass = "mobile"
	DeviceTablet  DeviceClass = "tablet"
	DeviceUnknown DeviceClass = "unknown"
)

// ClickEvent is one recorded redirect hit. Events are immutable once written.
type ClickEvent struct {
	ID          int64       `json:"id"`
	RedirectID  int64       `json:"redirect_id"`
	Timestamp   time.Time   `json:"timestamp"`
	ClientHash  string      `json:"client_hash"`
	CountryCode string      `json:"country_code,omitempty"`
	DeviceClass DeviceClass `json:"device_class"`
	Referrer    string      `json:"referrer,omitempty"`
	UserAgent   string      `json:"user_agent,omitempty"`
	Browser     string      `json:"browser,omitempty"`
	OS          string      `json:"os,omitempty"`
	IsBot       bool        `json:"is_bot"`
}

// QRCode records generated QR images for a redirect rule.
type QRCode struct {
	RedirectID  int64     `json:"redirect_id"`
	PNGPath     string    `json:"png_path"`
	SVGPath     string    `json:"svg_path"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Package model defines domain models and types used throughout the application.
package model

import (
	"net/http"
	"time"
)

// RedirectKind is the HTTP status family of a redirect rule.
type RedirectKind int

// Redirect kinds.
const (
	Permanent RedirectKind = http.StatusMovedPermanently // 301
	Temporary RedirectKind = http.StatusFound            // 302
)

// ParseRedirectKind converts a stored status code into a RedirectKind.
// Anything other than 302 is treated as permanent.
func ParseRedirectKind(code int) RedirectKind {
	if code == int(Temporary) {
		return Temporary
	}
	return Permanent
}

// StatusCode returns the HTTP status code for the kind.
func (k RedirectKind) StatusCode() int {
	return int(k)
}

// IsValid reports whether k is one of the supported kinds.
func (k RedirectKind) IsValid() bool {
	return k == Permanent || k == Temporary
}

// RuleStatus marks whether a rule participates in matching.
type RuleStatus string

// Rule statuses.
const (
	StatusActive   RuleStatus = "active"
	StatusInactive RuleStatus = "inactive"
)

// IsValid reports whether s is a known status.
func (s RuleStatus) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// RedirectRule maps a normalized source path to a destination URL.
type RedirectRule struct {
	ID             int64        `json:"id"`
	SourcePath     string       `json:"source_path"`
	DestinationURL string       `json:"destination_url"`
	Kind           RedirectKind `json:"kind"`
	PreserveQuery  bool         `json:"preserve_query"`
	Status         RuleStatus   `json:"status"`
	CreatedBy      string       `json:"created_by"`
	CreatedAt      time.Time    `json:"created_at"`
	ModifiedAt     time.Time    `json:"modified_at"`
}

// IsActive reports whether the rule participates in matching.
func (r *RedirectRule) IsActive() bool {
	return r.Status == StatusActive
}

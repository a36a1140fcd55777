// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package redirect

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/olegiv/hoppr-go/internal/model"
	"github.com/olegiv/hoppr-go/internal/safety"
)

// Input carries the editable fields of a rule as submitted by an operator.
type Input struct {
	SourcePath     string             `json:"source_path"`
	DestinationURL string             `json:"destination_url"`
	Kind           model.RedirectKind `json:"kind"`
	PreserveQuery  bool               `json:"preserve_query"`
	Status         model.RuleStatus   `json:"status"`
	CreatedBy      string             `json:"created_by"`
}

// ValidationError reports which field was rejected.
type ValidationError struct {
	Field string
	Err   error
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var errInvalidStatus = errors.New("invalid status")

// maxDestinationLength bounds stored destinations.
const maxDestinationLength = 2048

// normalizeInput validates in and returns it with the source normalized and
// defaults applied: an unknown kind becomes 301, an unknown status becomes active.
// Update fills both from the stored rule before calling it.
// The self-redirect check compares paths only, so the same path on another
// host is rejected too.
func normalizeInput(in Input) (Input, error) {
	in.SourcePath = Normalize(in.SourcePath)
	if in.SourcePath == "" {
		return in, &ValidationError{Field: "source_path", Err: model.ErrInvalidURL, Msg: "source path is required"}
	}

	in.DestinationURL = strings.TrimSpace(in.DestinationURL)
	if in.DestinationURL == "" {
		return in, &ValidationError{Field: "destination_url", Err: model.ErrInvalidURL, Msg: "destination URL is required"}
	}
	if len(in.DestinationURL) > maxDestinationLength {
		return in, &ValidationError{Field: "destination_url", Err: model.ErrInvalidURL, Msg: fmt.Sprintf("destination URL exceeds %d characters", maxDestinationLength)}
	}
	if safety.HasDangerousScheme(in.DestinationURL) {
		return in, &ValidationError{Field: "destination_url", Err: model.ErrInvalidURL, Msg: "destination URL uses a blocked scheme"}
	}
	u, err := url.Parse(safety.CoerceScheme(in.DestinationURL))
	if err != nil || u.Hostname() == "" {
		return in, &ValidationError{Field: "destination_url", Err: model.ErrInvalidURL, Msg: "destination URL is not a valid absolute URL"}
	}

	if Normalize(in.DestinationURL) == in.SourcePath {
		return in, &ValidationError{Field: "destination_url", Err: model.ErrSelfRedirect, Msg: "destination redirects to the source path"}
	}

	if !in.Kind.IsValid() {
		in.Kind = model.Permanent
	}
	if !in.Status.IsValid() {
		in.Status = model.StatusActive
	}
	in.CreatedBy = strings.TrimSpace(in.CreatedBy)
	if in.CreatedBy == "" {
		in.CreatedBy = "api"
	}
	return in, nil
}

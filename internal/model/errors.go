package model

import "errors"

// Sentinel errors shared by the redirect pipeline. Wrap with %w and test with errors.Is.
var (
	// ErrNotFound is returned when a rule or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrLookup means the rule store could not be queried. Dispatch treats it as no match.
	ErrLookup = errors.New("redirect lookup failed")

	// ErrDuplicateSource is returned when another rule already owns the source path.
	ErrDuplicateSource = errors.New("source path already exists")

	// ErrSelfRedirect is returned when the destination normalizes to the source path.
	ErrSelfRedirect = errors.New("destination redirects to itself")

	// ErrInvalidURL is returned for empty, malformed or dangerous URLs.
	ErrInvalidURL = errors.New("invalid url")

	// ErrTrack wraps click persistence failures.
	ErrTrack = errors.New("click tracking failed")

	// ErrUnsafeDestination is returned when a destination fails the safety check.
	ErrUnsafeDestination = errors.New("unsafe destination")

	// ErrDNSTimeout is returned when destination resolution does not finish in time.
	ErrDNSTimeout = errors.New("destination resolution timed out")
)

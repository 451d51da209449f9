package domain

import "errors"

// Error taxonomy shared by every component. Callers wrap these with
// fmt.Errorf("...: %w", ErrX) and match with errors.Is.
var (
	// ErrInvalidInput marks malformed coordinates or a missing required field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks an unknown scenario or an ungeocodable place.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks an ownership mismatch on a scenario.
	ErrForbidden = errors.New("forbidden")
	// ErrMisconfigured marks a missing provider credential.
	ErrMisconfigured = errors.New("misconfigured")
	// ErrUpstreamUnavailable marks a failed or timed-out provider call.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

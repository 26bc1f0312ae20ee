package domain

import "errors"

// Sentinel errors for the expected failure modes. Handlers map these to
// HTTP status codes; anything else surfaces as a generic 500.
var (
	// ErrNotFound covers unknown ids and tenant-mismatched lookups alike.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials is returned for unknown usernames and wrong
	// passwords alike, to prevent user enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccessDenied is returned when a verified identity requests a
	// tenant it is not a member of.
	ErrAccessDenied = errors.New("access denied")
)

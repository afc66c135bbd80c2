// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across store/service layers.
var (
	// ErrInvalidReference indicates a malformed entity identifier.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrValidation indicates a blank required field or a rejected input combination.
	ErrValidation = errors.New("validation")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the caller does not own the entity or listing.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict indicates a unique constraint violation (duplicate edge, handle taken).
	ErrConflict = errors.New("conflict")

	// ErrDependency indicates a store or blob-store failure during a mutation.
	ErrDependency = errors.New("dependency failure")

	// ErrSearchUnavailable indicates the text-search collaborator failed.
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrRateLimited indicates too many failed logins for a (handle, client) pair.
	ErrRateLimited = errors.New("rate limited")
)

// IsClientError reports whether err is caused by caller input rather than the system.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidReference) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrRateLimited)
}

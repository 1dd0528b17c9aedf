package helper

import "errors"

// Domain errors for the helper package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, helper.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when an entity ID does not exist in the live registry.
	ErrNotFound = errors.New("helper: not found")

	// ErrInvalidEntityID is returned when an entity ID is malformed.
	ErrInvalidEntityID = errors.New("helper: invalid entity id")

	// ErrSourceUnavailable is returned when the live state source cannot be queried at all.
	ErrSourceUnavailable = errors.New("helper: state source unavailable")
)

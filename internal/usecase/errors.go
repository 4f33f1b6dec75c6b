package usecase

import "github.com/cockroachdb/errors"

// Use cases wrap these with fmt.Errorf("%w: ...") and the HTTP layer maps
// them to statuses. Advance blockers are AdvanceResult statuses, not errors.
var (
	// ErrInvalidInput rejects malformed ids, minutes or payloads.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound covers unknown saves and matches.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict means the save is in the wrong phase, e.g. season end
	// while fixtures remain, or resimulating a match that is not pending.
	ErrConflict = errors.New("state conflict")
	// ErrUnauthorized guards the internal job endpoints.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDependencyUnavailable reports a missing collaborator or a down queue.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

package casefile

import "errors"

var (
	// ErrNotFound means no case exists with the given ID.
	ErrNotFound = errors.New("case not found")

	// ErrAlreadyAssigned means a claim lost the race: the case already has
	// a counselor.
	ErrAlreadyAssigned = errors.New("case already assigned")

	// ErrDuplicateReport means the report already has a case.
	ErrDuplicateReport = errors.New("report already has a case")

	// ErrNotOwner means the caller is not the case's assigned counselor.
	ErrNotOwner = errors.New("caller is not the assigned counselor")

	// ErrCaseClosed means the case is closed and accepts no further changes.
	ErrCaseClosed = errors.New("case is closed")

	// ErrBadTransition means the requested status change is not legal from
	// the case's current status.
	ErrBadTransition = errors.New("illegal status transition")

	// ErrInvalidInput means a required field is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
)

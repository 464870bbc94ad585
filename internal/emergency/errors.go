package emergency

import "errors"

var (
	// ErrNotFound means no alert exists with the given ID.
	ErrNotFound = errors.New("alert not found")

	// ErrNotOwner means the caller is not the alert's counselor.
	ErrNotOwner = errors.New("not the alert's counselor")

	// ErrNoPhoneContacts means the student has no trusted contact with a
	// phone number, so an SOS broadcast has nowhere to go.
	ErrNoPhoneContacts = errors.New("no trusted contacts with a phone number")

	// ErrAlreadyResolved means the alert is already in a terminal status.
	ErrAlreadyResolved = errors.New("alert already resolved")

	// ErrValidation means the request input is malformed or incomplete.
	ErrValidation = errors.New("invalid input")
)

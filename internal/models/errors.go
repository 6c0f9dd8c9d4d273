package models

import "errors"

// Errors returned by the note lifecycle operations.
var (
	// ErrInvalidInput reports a text field longer than its bound.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateRegistration reports a second registration for the same identity.
	ErrDuplicateRegistration = errors.New("user profile already registered")
	// ErrProfileNotFound reports a missing user profile.
	ErrProfileNotFound = errors.New("user profile not found")
	// ErrNoteNotFound reports a missing note.
	ErrNoteNotFound = errors.New("note not found")
	// ErrUnauthorizedAccess reports a caller that is not the record's authority.
	ErrUnauthorizedAccess = errors.New("you are not authorized to perform this action")
	// ErrAllocationCollision reports a note address that is unexpectedly occupied.
	ErrAllocationCollision = errors.New("note address already in use")
)

// Errors returned when decoding stored records.
var (
	ErrAccountDiscriminator = errors.New("account discriminator mismatch")
	ErrAccountTruncated     = errors.New("account data truncated")
)

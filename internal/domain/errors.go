package domain

import "errors"

// Sentinel errors for the domain layer. These provide consistent, checkable
// errors for common business logic failures.
var (
	ErrNotFound         = errors.New("requested resource not found")
	ErrAlreadyExists    = errors.New("resource already exists")
	ErrConflict         = errors.New("conflicting concurrent update, retry the request")
	ErrInvalidInput     = errors.New("invalid input")
	ErrForbidden        = errors.New("operation not permitted")
	ErrNotParticipant   = errors.New("user is not a participant of this room")
	ErrEmptyContent     = errors.New("message content is empty")
	ErrContentTooLong   = errors.New("message content is too long")
	ErrStoreUnavailable = errors.New("storage is unavailable")
)

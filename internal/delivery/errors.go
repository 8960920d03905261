package delivery

import "errors"

// Errors surfaced to callers of the state machine and query service.
var (
	ErrNotFound        = errors.New("delivery not found")
	ErrInvalidState    = errors.New("delivery cannot make this transition")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Errors returned by Repository implementations.
var (
	ErrStatusChanged     = errors.New("delivery status changed concurrently")
	ErrDuplicateDelivery = errors.New("delivery already exists for this reminder time")
)

package booking

import "errors"

var (
	ErrEventNotFound          = errors.New("event not found")
	ErrEventNotOpen           = errors.New("event is not open for booking")
	ErrHostCannotBookOwnEvent = errors.New("hosts cannot book their own event")
	ErrNoTicketType           = errors.New("no ticket type available")
	ErrInsufficientCapacity   = errors.New("not enough remaining capacity")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrNotOwnedByActor        = errors.New("booking belongs to another user")
	ErrNotCancellable         = errors.New("booking can no longer be cancelled")
)

package event

import "errors"

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrNotHost         = errors.New("actor is not the event host")
	ErrUnknownAction   = errors.New("unknown event action")
	ErrEventCancelled  = errors.New("event is cancelled")
	ErrInvalidSchedule = errors.New("event schedule is inconsistent")
	ErrInvalidPrice    = errors.New("ticket price is invalid")
)

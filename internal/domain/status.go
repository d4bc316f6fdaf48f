package domain

import "time"

// Status is the derived lifecycle label of an event. It is computed on
// read and never stored.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusCancelled Status = "cancelled"
	StatusSoldOut   Status = "sold_out"
	StatusInactive  Status = "inactive"
	StatusOpen      Status = "open"
)

// ResolveStatus derives the lifecycle status of an event from its stored
// flags, its capacity and the total confirmed booking quantity. soldQty
// must be the sum of qty over confirmed bookings for the event.
//
// The checks run in a fixed order and the first match wins:
// draft, cancelled, sold out, started (inactive), open. Only start_at
// gates the open/inactive boundary; end_at plays no part. A nil capacity
// skips the sold-out check entirely, a nil start_at means the event has
// not started.
func ResolveStatus(e *Event, soldQty int64, now time.Time) Status {
	switch {
	case e.IsDraft:
		return StatusDraft
	case e.Cancelled:
		return StatusCancelled
	case e.Capacity != nil && (*e.Capacity <= 0 || soldQty >= *e.Capacity):
		return StatusSoldOut
	case HasStarted(e, now):
		return StatusInactive
	default:
		return StatusOpen
	}
}

// HasStarted reports whether the event's start time has been reached.
// Events without a start time never start.
func HasStarted(e *Event, now time.Time) bool {
	return e.StartAt != nil && !now.Before(*e.StartAt)
}

// Remaining returns the seats still sellable given soldQty, or nil when
// the event has unlimited capacity. Never negative.
func Remaining(e *Event, soldQty int64) *int64 {
	if e.Capacity == nil {
		return nil
	}

	left := *e.Capacity - soldQty
	if left < 0 {
		left = 0
	}

	return &left
}

// CanCancelBooking reports whether a booking may still be cancelled by
// its owner: the booking is confirmed, the event is not cancelled and
// has not started. Sold-out is not consulted, so a booking on a
// sold-out future event can still be cancelled.
func CanCancelBooking(e *Event, b *Booking, now time.Time) bool {
	if b.Status != BookingConfirmed {
		return false
	}

	if e.Cancelled {
		return false
	}

	return !HasStarted(e, now)
}

// ApplyAction sets the mutually-exclusive stored flag trio for a host
// action. Returns false for an unknown action. Callers are expected to
// reject actions on an already-cancelled event.
func ApplyAction(e *Event, action EventAction) bool {
	switch action {
	case ActionPublish:
		e.IsActive, e.IsDraft, e.Cancelled = true, false, false
	case ActionDraft:
		e.IsDraft, e.IsActive, e.Cancelled = true, false, false
	case ActionCancel:
		e.Cancelled, e.IsActive, e.IsDraft = true, false, false
	default:
		return false
	}

	return true
}

// ValidateSchedule checks the event time invariants: start before end
// and RSVP close before start, whenever both sides are set.
func ValidateSchedule(startAt, endAt, rsvpClosesAt *time.Time) bool {
	if startAt != nil && endAt != nil && startAt.After(*endAt) {
		return false
	}

	if rsvpClosesAt != nil && startAt != nil && rsvpClosesAt.After(*startAt) {
		return false
	}

	return true
}

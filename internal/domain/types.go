package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingReserved  BookingStatus = "reserved"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingRefunded  BookingStatus = "refunded"
)

type PaymentStatus string

const (
	PaymentAuthorised PaymentStatus = "authorised"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentRefunded   PaymentStatus = "refunded"
)

// EventAction is a host-initiated transition of the stored event state.
type EventAction string

const (
	ActionPublish EventAction = "publish"
	ActionDraft   EventAction = "draft"
	ActionCancel  EventAction = "cancel"
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Mobile       string    `json:"mobile,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Event is a hostable, bookable occasion. Capacity nil means unlimited.
// Exactly one of {draft, cancelled, normal} holds for the stored flags;
// Open/SoldOut/Inactive are derived at read time by ResolveStatus.
type Event struct {
	ID           int64      `json:"id"`
	HostUserID   int64      `json:"host_user_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Format       string     `json:"format"`
	LocationText string     `json:"location_text"`
	Timezone     string     `json:"timezone"`
	StartAt      *time.Time `json:"start_at"`
	EndAt        *time.Time `json:"end_at"`
	RSVPClosesAt *time.Time `json:"rsvp_closes_at"`
	Capacity     *int64     `json:"capacity"`
	ImageURL     string     `json:"image_url,omitempty"`
	ImageAlt     string     `json:"image_alt,omitempty"`
	Cancelled    bool       `json:"cancelled"`
	IsDraft      bool       `json:"is_draft"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type TicketType struct {
	ID           int64      `json:"id"`
	EventID      int64      `json:"event_id"`
	Name         string     `json:"name"`
	IsFree       bool       `json:"is_free"`
	PriceCents   int64      `json:"price_cents"`
	Currency     string     `json:"currency"`
	Capacity     *int64     `json:"capacity"`
	SalesStartAt *time.Time `json:"sales_start_at"`
	SalesEndAt   *time.Time `json:"sales_end_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Booking is a user's reservation of Qty tickets against an event's
// capacity. The primary key is an opaque uuid so booking ids cannot be
// guessed. Qty and prices are immutable after creation.
type Booking struct {
	ID             uuid.UUID     `json:"booking_id"`
	EventID        int64         `json:"event_id"`
	UserID         int64         `json:"user_id"`
	TicketTypeID   int64         `json:"ticket_type_id"`
	Qty            int64         `json:"qty"`
	UnitPriceCents int64         `json:"unit_price_cents"`
	TotalCents     int64         `json:"total_cents"`
	Status         BookingStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty"`
}

// Payment records a simulated authorisation/capture for one booking.
// No real gateway is involved.
type Payment struct {
	ID               int64         `json:"id"`
	BookingID        uuid.UUID     `json:"booking_id"`
	Provider         string        `json:"provider"`
	MethodBrand      string        `json:"method_brand"`
	MethodLast4      string        `json:"method_last4"`
	AmountCents      int64         `json:"amount_cents"`
	Currency         string        `json:"currency"`
	Status           PaymentStatus `json:"status"`
	ProviderChargeID string        `json:"provider_charge_id"`
	AuthorisedAt     *time.Time    `json:"authorised_at,omitempty"`
	CapturedAt       *time.Time    `json:"captured_at,omitempty"`
	RefundedAt       *time.Time    `json:"refunded_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// EventSummary is an event together with its derived status and
// capacity accounting, as served on listing and detail pages. Ticket
// types are filled on detail views only.
type EventSummary struct {
	Event        Event        `json:"event"`
	Status       Status       `json:"status"`
	SoldQuantity int64        `json:"sold_quantity"`
	Remaining    *int64       `json:"remaining"`
	TicketTypes  []TicketType `json:"ticket_types,omitempty"`
}

// BookingWithEvent pairs a booking with its event for history views.
type BookingWithEvent struct {
	Booking     Booking `json:"booking"`
	Event       Event   `json:"event"`
	Cancellable bool    `json:"cancellable"`
}

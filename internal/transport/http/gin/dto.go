package httpgin

import (
	"time"

	"github.com/nkly/eventbook/internal/domain"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=3,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type EventInput struct {
	Title        string `json:"title" binding:"required,min=3,max=160"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Format       string `json:"format" binding:"omitempty,oneof=In-person Virtual Hybrid"`
	LocationText string `json:"location_text"`
	Timezone     string `json:"timezone"`
	StartAt      string `json:"start_at"`
	EndAt        string `json:"end_at"`
	RSVPClosesAt string `json:"rsvp_closes_at"`
	Capacity     *int64 `json:"capacity" binding:"omitempty,gte=0"`
	ImageURL     string `json:"image_url"`
	ImageAlt     string `json:"image_alt"`
	PriceCents   int64  `json:"price_cents" binding:"gte=0"`
	Currency     string `json:"currency" binding:"omitempty,len=3"`
}

type CreateEventRequest struct {
	EventInput
	Publish bool `json:"publish"`
}

type EventActionRequest struct {
	Action string `json:"action" binding:"required,oneof=publish draft cancel"`
}

type CreateBookingRequest struct {
	TicketTypeID int64 `json:"ticket_type_id" binding:"required"`
	Qty          int64 `json:"qty" binding:"required,gt=0"`
}

type CreateBookingResponse struct {
	BookingID  string `json:"booking_id"`
	EventID    int64  `json:"event_id"`
	Qty        int64  `json:"qty"`
	TotalCents int64  `json:"total_cents"`
	Status     string `json:"status"`
}

type CreateEventResponse struct {
	EventID int64 `json:"event_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// parseOptRFC3339 turns an optional RFC3339 string into a *time.Time.
// Empty means absent.
func parseOptRFC3339(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

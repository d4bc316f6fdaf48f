package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nkly/eventbook/internal/domain"
	"github.com/nkly/eventbook/internal/repository"
)

const bookingColumns = `booking_id, event_id, user_id, ticket_type_id, qty,
	unit_price_cents, total_cents, status, created_at, updated_at, cancelled_at`

type BookingRepo struct {
	pool *pgxpool.Pool
}

func (r *BookingRepo) handle(db DB) DB {
	if db != nil {
		return db
	}
	return r.pool
}

// SoldQuantity sums qty over confirmed bookings for an event. Cancelled
// and refunded rows fall out of the sum, which is how cancellation
// returns capacity. One aggregate query so the read is consistent within
// the caller's transaction.
func (r *BookingRepo) SoldQuantity(ctx context.Context, db DB, eventID int64) (int64, error) {
	const op = "postgres.BookingRepo.SoldQuantity"

	var sold int64
	err := r.handle(db).QueryRow(ctx,
		`SELECT COALESCE(SUM(qty), 0)
		 FROM bookings
		 WHERE event_id = $1 AND status = $2`,
		eventID, domain.BookingConfirmed,
	).Scan(&sold)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return sold, nil
}

func (r *BookingRepo) Insert(ctx context.Context, db DB, b *domain.Booking) error {
	const op = "postgres.BookingRepo.Insert"

	err := r.handle(db).QueryRow(ctx,
		`INSERT INTO bookings (booking_id, event_id, user_id, ticket_type_id,
		        qty, unit_price_cents, total_cents, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		b.ID, b.EventID, b.UserID, b.TicketTypeID,
		b.Qty, b.UnitPriceCents, b.TotalCents, b.Status,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *BookingRepo) InsertPayment(ctx context.Context, db DB, p *domain.Payment) error {
	const op = "postgres.BookingRepo.InsertPayment"

	err := r.handle(db).QueryRow(ctx,
		`INSERT INTO payments (booking_id, provider, method_brand, method_last4,
		        amount_cents, currency, status, provider_charge_id,
		        authorised_at, captured_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`,
		p.BookingID, p.Provider, p.MethodBrand, p.MethodLast4,
		p.AmountCents, p.Currency, p.Status, p.ProviderChargeID,
		p.AuthorisedAt, p.CapturedAt,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *BookingRepo) GetByID(ctx context.Context, db DB, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.GetByID"

	var b domain.Booking
	err := r.handle(db).QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE booking_id = $1`, id,
	).Scan(
		&b.ID, &b.EventID, &b.UserID, &b.TicketTypeID, &b.Qty,
		&b.UnitPriceCents, &b.TotalCents, &b.Status, &b.CreatedAt,
		&b.UpdatedAt, &b.CancelledAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &b, nil
}

// MarkCancelled flips a confirmed booking to cancelled and stamps the
// time. The status guard in the WHERE clause makes a repeated cancel a
// zero-row update, reported as ErrNotFound for the caller to map.
func (r *BookingRepo) MarkCancelled(ctx context.Context, db DB, id uuid.UUID, at time.Time) error {
	const op = "postgres.BookingRepo.MarkCancelled"

	tag, err := r.handle(db).Exec(ctx,
		`UPDATE bookings
		 SET status = $2, cancelled_at = $3, updated_at = now()
		 WHERE booking_id = $1 AND status = $4`,
		id, domain.BookingCancelled, at, domain.BookingConfirmed,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// ListByUser returns the user's bookings with their events, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, db DB, userID int64) ([]domain.BookingWithEvent, error) {
	const op = "postgres.BookingRepo.ListByUser"

	rows, err := r.handle(db).Query(ctx,
		`SELECT b.booking_id, b.event_id, b.user_id, b.ticket_type_id, b.qty,
		        b.unit_price_cents, b.total_cents, b.status, b.created_at,
		        b.updated_at, b.cancelled_at,
		        e.id, e.host_user_id, e.title, e.description, e.category,
		        e.format, e.location_text, e.timezone, e.start_at, e.end_at,
		        e.rsvp_closes_at, e.capacity, e.image_url, e.image_alt,
		        e.cancelled, e.is_draft, e.is_active, e.created_at, e.updated_at
		 FROM bookings b
		 JOIN events e ON e.id = b.event_id
		 WHERE b.user_id = $1
		 ORDER BY b.created_at DESC, b.booking_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.BookingWithEvent
	for rows.Next() {
		var be domain.BookingWithEvent
		b := &be.Booking
		e := &be.Event
		if err := rows.Scan(
			&b.ID, &b.EventID, &b.UserID, &b.TicketTypeID, &b.Qty,
			&b.UnitPriceCents, &b.TotalCents, &b.Status, &b.CreatedAt,
			&b.UpdatedAt, &b.CancelledAt,
			&e.ID, &e.HostUserID, &e.Title, &e.Description, &e.Category,
			&e.Format, &e.LocationText, &e.Timezone, &e.StartAt, &e.EndAt,
			&e.RSVPClosesAt, &e.Capacity, &e.ImageURL, &e.ImageAlt,
			&e.Cancelled, &e.IsDraft, &e.IsActive, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		out = append(out, be)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

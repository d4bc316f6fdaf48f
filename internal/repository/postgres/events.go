package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nkly/eventbook/internal/domain"
	"github.com/nkly/eventbook/internal/repository"
)

const eventColumns = `id, host_user_id, title, description, category, format,
	location_text, timezone, start_at, end_at, rsvp_closes_at, capacity,
	image_url, image_alt, cancelled, is_draft, is_active, created_at, updated_at`

type EventRepo struct {
	pool *pgxpool.Pool
}

func (r *EventRepo) handle(db DB) DB {
	if db != nil {
		return db
	}
	return r.pool
}

// Create inserts the event and fills in its generated id and timestamps.
func (r *EventRepo) Create(ctx context.Context, db DB, e *domain.Event) error {
	const op = "postgres.EventRepo.Create"

	err := r.handle(db).QueryRow(ctx,
		`INSERT INTO events (host_user_id, title, description, category, format,
		        location_text, timezone, start_at, end_at, rsvp_closes_at,
		        capacity, image_url, image_alt, cancelled, is_draft, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING id, created_at, updated_at`,
		e.HostUserID, e.Title, e.Description, e.Category, e.Format,
		e.LocationText, e.Timezone, e.StartAt, e.EndAt, e.RSVPClosesAt,
		e.Capacity, e.ImageURL, e.ImageAlt, e.Cancelled, e.IsDraft, e.IsActive,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// Update rewrites the mutable metadata and schedule columns. The state
// flag trio is owned by SetStateFlags.
func (r *EventRepo) Update(ctx context.Context, db DB, e *domain.Event) error {
	const op = "postgres.EventRepo.Update"

	tag, err := r.handle(db).Exec(ctx,
		`UPDATE events
		 SET title = $2, description = $3, category = $4, format = $5,
		     location_text = $6, timezone = $7, start_at = $8, end_at = $9,
		     rsvp_closes_at = $10, capacity = $11, image_url = $12,
		     image_alt = $13, updated_at = now()
		 WHERE id = $1`,
		e.ID, e.Title, e.Description, e.Category, e.Format,
		e.LocationText, e.Timezone, e.StartAt, e.EndAt,
		e.RSVPClosesAt, e.Capacity, e.ImageURL, e.ImageAlt,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *EventRepo) GetByID(ctx context.Context, db DB, id int64) (*domain.Event, error) {
	const op = "postgres.EventRepo.GetByID"

	e, err := scanEvent(r.handle(db).QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return e, nil
}

// GetByIDForUpdate locks the event row for the rest of the transaction.
// Booking creation takes this lock before counting sold tickets so two
// concurrent bookings cannot both pass the capacity check.
func (r *EventRepo) GetByIDForUpdate(ctx context.Context, db DB, id int64) (*domain.Event, error) {
	const op = "postgres.EventRepo.GetByIDForUpdate"

	e, err := scanEvent(r.handle(db).QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return e, nil
}

// List returns published events ordered by start time, optionally
// filtered by a case-insensitive title/description match.
func (r *EventRepo) List(ctx context.Context, db DB, search string, limit, offset int) ([]domain.Event, error) {
	const op = "postgres.EventRepo.List"

	rows, err := r.handle(db).Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE is_draft = false
		   AND ($1 = '' OR title ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		 ORDER BY start_at NULLS LAST, id
		 LIMIT $2 OFFSET $3`,
		search, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// SetStateFlags writes the cancelled/is_draft/is_active trio in one shot.
func (r *EventRepo) SetStateFlags(ctx context.Context, db DB, id int64, cancelled, isDraft, isActive bool) error {
	const op = "postgres.EventRepo.SetStateFlags"

	tag, err := r.handle(db).Exec(ctx,
		`UPDATE events
		 SET cancelled = $2, is_draft = $3, is_active = $4, updated_at = now()
		 WHERE id = $1`,
		id, cancelled, isDraft, isActive,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	err := row.Scan(
		&e.ID, &e.HostUserID, &e.Title, &e.Description, &e.Category, &e.Format,
		&e.LocationText, &e.Timezone, &e.StartAt, &e.EndAt, &e.RSVPClosesAt,
		&e.Capacity, &e.ImageURL, &e.ImageAlt, &e.Cancelled, &e.IsDraft,
		&e.IsActive, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &e, nil
}

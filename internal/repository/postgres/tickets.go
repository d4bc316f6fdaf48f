package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nkly/eventbook/internal/domain"
)

const ticketColumns = `id, event_id, name, is_free, price_cents, currency,
	capacity, sales_start_at, sales_end_at, created_at, updated_at`

type TicketRepo struct {
	pool *pgxpool.Pool
}

func (r *TicketRepo) handle(db DB) DB {
	if db != nil {
		return db
	}
	return r.pool
}

func (r *TicketRepo) Create(ctx context.Context, db DB, t *domain.TicketType) error {
	const op = "postgres.TicketRepo.Create"

	err := r.handle(db).QueryRow(ctx,
		`INSERT INTO ticket_types (event_id, name, is_free, price_cents,
		        currency, capacity, sales_start_at, sales_end_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		t.EventID, t.Name, t.IsFree, t.PriceCents,
		t.Currency, t.Capacity, t.SalesStartAt, t.SalesEndAt,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *TicketRepo) GetByID(ctx context.Context, db DB, id int64) (*domain.TicketType, error) {
	const op = "postgres.TicketRepo.GetByID"

	var t domain.TicketType
	err := r.handle(db).QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM ticket_types WHERE id = $1`, id,
	).Scan(
		&t.ID, &t.EventID, &t.Name, &t.IsFree, &t.PriceCents, &t.Currency,
		&t.Capacity, &t.SalesStartAt, &t.SalesEndAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &t, nil
}

func (r *TicketRepo) ListByEvent(ctx context.Context, db DB, eventID int64) ([]domain.TicketType, error) {
	const op = "postgres.TicketRepo.ListByEvent"

	rows, err := r.handle(db).Query(ctx,
		`SELECT `+ticketColumns+` FROM ticket_types WHERE event_id = $1 ORDER BY id`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.TicketType
	for rows.Next() {
		var t domain.TicketType
		if err := rows.Scan(
			&t.ID, &t.EventID, &t.Name, &t.IsFree, &t.PriceCents, &t.Currency,
			&t.Capacity, &t.SalesStartAt, &t.SalesEndAt, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

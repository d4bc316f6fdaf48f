package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nkly/eventbook/internal/domain"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func (r *UserRepo) handle(db DB) DB {
	if db != nil {
		return db
	}
	return r.pool
}

func (r *UserRepo) Create(ctx context.Context, db DB, u *domain.User) error {
	const op = "postgres.UserRepo.Create"

	err := r.handle(db).QueryRow(ctx,
		`INSERT INTO users (name, email, mobile, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		u.Name, u.Email, u.Mobile, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, db DB, id int64) (*domain.User, error) {
	const op = "postgres.UserRepo.GetByID"

	var u domain.User
	err := r.handle(db).QueryRow(ctx,
		`SELECT id, name, email, mobile, password_hash, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Mobile, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &u, nil
}

func (r *UserRepo) GetByName(ctx context.Context, db DB, name string) (*domain.User, error) {
	const op = "postgres.UserRepo.GetByName"

	var u domain.User
	err := r.handle(db).QueryRow(ctx,
		`SELECT id, name, email, mobile, password_hash, created_at, updated_at
		 FROM users WHERE name = $1`,
		name,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Mobile, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &u, nil
}

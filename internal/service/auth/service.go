package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nkly/eventbook/internal/domain"
	"github.com/nkly/eventbook/internal/repository"
	postgresrepo "github.com/nkly/eventbook/internal/repository/postgres"
	"golang.org/x/crypto/bcrypt"
)

type UserStore interface {
	Create(ctx context.Context, db postgresrepo.DB, u *domain.User) error
	GetByID(ctx context.Context, db postgresrepo.DB, id int64) (*domain.User, error)
	GetByName(ctx context.Context, db postgresrepo.DB, name string) (*domain.User, error)
}

// Sessions maps opaque bearer tokens to user ids.
type Sessions interface {
	Put(ctx context.Context, token string, userID int64) error
	Get(ctx context.Context, token string) (int64, bool, error)
	Delete(ctx context.Context, token string) error
}

type Service struct {
	users    UserStore
	sessions Sessions
}

func New(users UserStore, sessions Sessions) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
	}
}

// Register stores a new user with a bcrypt password hash.
//
// Returns:
//   - auth.ErrUserExists if the name or email is taken.
func (s *Service) Register(ctx context.Context, name, email, mobile, password string) (*domain.User, error) {
	const op = "service.auth.Register"

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	u := &domain.User{
		Name:         name,
		Email:        email,
		Mobile:       mobile,
		PasswordHash: string(hash),
	}

	if err := s.users.Create(ctx, nil, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, ErrUserExists)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return u, nil
}

// Login verifies the password and issues an opaque session token.
//
// Returns:
//   - auth.ErrInvalidCredentials for an unknown name or wrong password.
func (s *Service) Login(ctx context.Context, name, password string) (string, *domain.User, error) {
	const op = "service.auth.Login"

	u, err := s.users.GetByName(ctx, nil, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, fmt.Errorf("%s:%w", op, ErrInvalidCredentials)
		}

		return "", nil, fmt.Errorf("%s:%w", op, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, fmt.Errorf("%s:%w", op, ErrInvalidCredentials)
	}

	token := uuid.NewString()
	if err := s.sessions.Put(ctx, token, u.ID); err != nil {
		return "", nil, fmt.Errorf("%s:%w", op, err)
	}

	return token, u, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	const op = "service.auth.Logout"

	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// UserByID returns the user's profile.
func (s *Service) UserByID(ctx context.Context, id int64) (*domain.User, error) {
	const op = "service.auth.UserByID"

	u, err := s.users.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrUnauthorized)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return u, nil
}

// Authenticate resolves a bearer token to the user id it was issued for.
//
// Returns:
//   - auth.ErrUnauthorized for unknown or expired tokens.
func (s *Service) Authenticate(ctx context.Context, token string) (int64, error) {
	const op = "service.auth.Authenticate"

	if token == "" {
		return 0, fmt.Errorf("%s:%w", op, ErrUnauthorized)
	}

	id, ok, err := s.sessions.Get(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	if !ok {
		return 0, fmt.Errorf("%s:%w", op, ErrUnauthorized)
	}

	return id, nil
}

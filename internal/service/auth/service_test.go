package auth

import (
	"context"
	"testing"

	"github.com/nkly/eventbook/internal/domain"
	"github.com/nkly/eventbook/internal/repository"
	postgresrepo "github.com/nkly/eventbook/internal/repository/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUsers struct {
	nextID int64
	byName map[string]*domain.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{nextID: 1, byName: make(map[string]*domain.User)}
}

func (f *fakeUsers) Create(_ context.Context, _ postgresrepo.DB, u *domain.User) error {
	if _, ok := f.byName[u.Name]; ok {
		return repository.ErrConflict
	}
	u.ID = f.nextID
	f.nextID++
	cp := *u
	f.byName[u.Name] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, _ postgresrepo.DB, id int64) (*domain.User, error) {
	for _, u := range f.byName {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByName(_ context.Context, _ postgresrepo.DB, name string) (*domain.User, error) {
	u, ok := f.byName[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type fakeSessions struct {
	tokens map[string]int64
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: make(map[string]int64)}
}

func (f *fakeSessions) Put(_ context.Context, token string, userID int64) error {
	f.tokens[token] = userID
	return nil
}

func (f *fakeSessions) Get(_ context.Context, token string) (int64, bool, error) {
	id, ok := f.tokens[token]
	return id, ok, nil
}

func (f *fakeSessions) Delete(_ context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

func TestRegister(t *testing.T) {
	svc := New(newFakeUsers(), newFakeSessions())

	u, err := svc.Register(context.Background(), "alice", "alice@example.com", "", "s3cret-pass")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.NotEqual(t, "s3cret-pass", u.PasswordHash, "password is stored hashed")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")))

	_, err = svc.Register(context.Background(), "alice", "other@example.com", "", "s3cret-pass")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc := New(newFakeUsers(), newFakeSessions())

	reg, err := svc.Register(context.Background(), "alice", "alice@example.com", "", "s3cret-pass")
	require.NoError(t, err)

	token, u, err := svc.Login(context.Background(), "alice", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, reg.ID, u.ID)

	id, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, id)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc := New(newFakeUsers(), newFakeSessions())

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "", "s3cret-pass")
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "nobody", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogout_InvalidatesToken(t *testing.T) {
	svc := New(newFakeUsers(), newFakeSessions())

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "", "s3cret-pass")
	require.NoError(t, err)

	token, _, err := svc.Login(context.Background(), "alice", "s3cret-pass")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), token))

	_, err = svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUserByID(t *testing.T) {
	svc := New(newFakeUsers(), newFakeSessions())

	reg, err := svc.Register(context.Background(), "alice", "alice@example.com", "", "s3cret-pass")
	require.NoError(t, err)

	u, err := svc.UserByID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Name)

	_, err = svc.UserByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticate_EmptyToken(t *testing.T) {
	svc := New(newFakeUsers(), newFakeSessions())

	_, err := svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nkly/eventbook/internal/domain"
	"github.com/nkly/eventbook/internal/repository"
	postgresrepo "github.com/nkly/eventbook/internal/repository/postgres"
	"github.com/nkly/eventbook/internal/uow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvents struct {
	events map[int64]*domain.Event
}

func (f *fakeEvents) GetByID(_ context.Context, _ postgresrepo.DB, id int64) (*domain.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEvents) GetByIDForUpdate(ctx context.Context, db postgresrepo.DB, id int64) (*domain.Event, error) {
	return f.GetByID(ctx, db, id)
}

type fakeTickets struct {
	tickets map[int64]*domain.TicketType
}

func (f *fakeTickets) GetByID(_ context.Context, _ postgresrepo.DB, id int64) (*domain.TicketType, error) {
	t, ok := f.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

type fakeLedger struct {
	bookings map[uuid.UUID]*domain.Booking
	payments []*domain.Payment
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{bookings: make(map[uuid.UUID]*domain.Booking)}
}

func (f *fakeLedger) SoldQuantity(_ context.Context, _ postgresrepo.DB, eventID int64) (int64, error) {
	var sold int64
	for _, b := range f.bookings {
		if b.EventID == eventID && b.Status == domain.BookingConfirmed {
			sold += b.Qty
		}
	}
	return sold, nil
}

func (f *fakeLedger) Insert(_ context.Context, _ postgresrepo.DB, b *domain.Booking) error {
	cp := *b
	f.bookings[b.ID] = &cp
	return nil
}

func (f *fakeLedger) InsertPayment(_ context.Context, _ postgresrepo.DB, p *domain.Payment) error {
	f.payments = append(f.payments, p)
	return nil
}

func (f *fakeLedger) GetByID(_ context.Context, _ postgresrepo.DB, id uuid.UUID) (*domain.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeLedger) MarkCancelled(_ context.Context, _ postgresrepo.DB, id uuid.UUID, at time.Time) error {
	b, ok := f.bookings[id]
	if !ok || b.Status != domain.BookingConfirmed {
		return repository.ErrNotFound
	}
	b.Status = domain.BookingCancelled
	b.CancelledAt = &at
	return nil
}

// fakeTx runs the unit of work without a database and fires after-commit
// hooks immediately.
type fakeTx struct{}

func (fakeTx) Do(ctx context.Context, fn func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error) error {
	var hooks []uow.AfterCommit
	if err := fn(ctx, nil, func(h uow.AfterCommit) { hooks = append(hooks, h) }); err != nil {
		return err
	}
	for _, h := range hooks {
		h(ctx)
	}
	return nil
}

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }

func ptrInt64(v int64) *int64 { return &v }

type fixture struct {
	svc    *Service
	ledger *fakeLedger
	events *fakeEvents
}

func newFixture(e *domain.Event, tt *domain.TicketType) *fixture {
	events := &fakeEvents{events: map[int64]*domain.Event{}}
	if e != nil {
		events.events[e.ID] = e
	}
	tickets := &fakeTickets{tickets: map[int64]*domain.TicketType{}}
	if tt != nil {
		tickets.tickets[tt.ID] = tt
	}
	ledger := newFakeLedger()

	svc := New(events, tickets, ledger, fakeTx{}, nil, nil, nil)
	svc.now = func() time.Time { return testNow }

	return &fixture{svc: svc, ledger: ledger, events: events}
}

func openEvent() *domain.Event {
	return &domain.Event{
		ID:         1,
		HostUserID: 10,
		Title:      "Go Meetup",
		StartAt:    ptrTime(testNow.Add(24 * time.Hour)),
		Capacity:   ptrInt64(5),
		IsActive:   true,
	}
}

func gaTicket() *domain.TicketType {
	return &domain.TicketType{
		ID:         7,
		EventID:    1,
		Name:       "General Admission",
		PriceCents: 2500,
		Currency:   "AUD",
	}
}

func TestCreate_BooksAndCapturesPayment(t *testing.T) {
	f := newFixture(openEvent(), gaTicket())

	b, err := f.svc.Create(context.Background(), CreateParams{
		EventID: 1, TicketTypeID: 7, Qty: 2, ActorUserID: 42,
	}, "")

	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
	assert.Equal(t, int64(2), b.Qty)
	assert.Equal(t, int64(5000), b.TotalCents)

	require.Len(t, f.ledger.payments, 1)
	p := f.ledger.payments[0]
	assert.Equal(t, b.ID, p.BookingID)
	assert.Equal(t, domain.PaymentCaptured, p.Status)
	assert.Equal(t, int64(5000), p.AmountCents)
	assert.Equal(t, "simulated", p.Provider)
}

func TestCreate_ClampsQuantity(t *testing.T) {
	e := openEvent()
	e.Capacity = ptrInt64(100)
	f := newFixture(e, gaTicket())

	b, err := f.svc.Create(context.Background(), CreateParams{
		EventID: 1, TicketTypeID: 7, Qty: 50, ActorUserID: 42,
	}, "")

	require.NoError(t, err)
	assert.Equal(t, int64(MaxQtyPerBooking), b.Qty)
}

func TestCreate_EventNotFound(t *testing.T) {
	f := newFixture(nil, nil)

	_, err := f.svc.Create(context.Background(), CreateParams{
		EventID: 99, TicketTypeID: 7, Qty: 1, ActorUserID: 42,
	}, "")

	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestCreate_RejectsNonOpenEvents(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Event)
	}{
		{"draft", func(e *domain.Event) { e.IsDraft = true }},
		{"cancelled", func(e *domain.Event) { e.Cancelled = true }},
		{"started", func(e *domain.Event) { e.StartAt = ptrTime(testNow.Add(-time.Hour)) }},
		{"zero capacity", func(e *domain.Event) { e.Capacity = ptrInt64(0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := openEvent()
			tt.mutate(e)
			f := newFixture(e, gaTicket())

			_, err := f.svc.Create(context.Background(), CreateParams{
				EventID: 1, TicketTypeID: 7, Qty: 1, ActorUserID: 42,
			}, "")

			assert.ErrorIs(t, err, ErrEventNotOpen)
		})
	}
}

func TestCreate_SoldOutAfterCapacityReached(t *testing.T) {
	f := newFixture(openEvent(), gaTicket())

	_, err := f.svc.Create(context.Background(), CreateParams{
		EventID: 1, TicketTypeID: 7, Qty: 5, ActorUserID: 42,
	}, "")
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), CreateParams{
		EventID: 1, TicketTypeID: 7, Qty: 1, ActorUserID: 43,
	}, "")
	assert.ErrorIs(t, err, ErrEventNotOpen)
}

func TestCreate_InsufficientCapacity(t *testing.T) {
	f := newFixture(openEvent(), gaTicket())

	_, err := f.svc.Create(context.Background(), CreateParams{
		EventID: 1, TicketTypeID: 7, Qty: 4, ActorUserID: 42,
	}, "")
	require.NoError(t, err)

	// one seat left, two requested
	_, err = f.svc.Create(context.Background(), CreateParams{
		EventID: 1, TicketTypeID: 7, Qty: 2, ActorUserID: 43,
	}, "")
	assert.ErrorIs(t, err, ErrInsufficientCapacity)

	// the last seat itself is still sellable
	b, err := f.svc.Create(context.Background(), CreateParams{
		EventID: 1, TicketTypeID: 7, Qty: 1, ActorUserID: 44,
	}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.Qty)
}

func TestCreate_HostCannotBookOwnEvent(t *testing.T) {
	f := newFixture(openEvent(), gaTicket())

	_, err := f.svc.Create(context.Background(), CreateParams{
		EventID: 1, TicketTypeID: 7, Qty: 1, ActorUserID: 10,
	}, "")

	assert.ErrorIs(t, err, ErrHostCannotBookOwnEvent)
}

func TestCreate_TicketTypeChecks(t *testing.T) {
	t.Run("missing ticket type", func(t *testing.T) {
		f := newFixture(openEvent(), nil)

		_, err := f.svc.Create(context.Background(), CreateParams{
			EventID: 1, TicketTypeID: 7, Qty: 1, ActorUserID: 42,
		}, "")
		assert.ErrorIs(t, err, ErrNoTicketType)
	})

	t.Run("ticket type of another event", func(t *testing.T) {
		tt := gaTicket()
		tt.EventID = 2
		f := newFixture(openEvent(), tt)

		_, err := f.svc.Create(context.Background(), CreateParams{
			EventID: 1, TicketTypeID: 7, Qty: 1, ActorUserID: 42,
		}, "")
		assert.ErrorIs(t, err, ErrNoTicketType)
	})

	t.Run("sales window closed", func(t *testing.T) {
		tt := gaTicket()
		tt.SalesEndAt = ptrTime(testNow.Add(-time.Hour))
		f := newFixture(openEvent(), tt)

		_, err := f.svc.Create(context.Background(), CreateParams{
			EventID: 1, TicketTypeID: 7, Qty: 1, ActorUserID: 42,
		}, "")
		assert.ErrorIs(t, err, ErrNoTicketType)
	})
}

func TestCancel_ReturnsCapacity(t *testing.T) {
	f := newFixture(openEvent(), gaTicket())

	b, err := f.svc.Create(context.Background(), CreateParams{
		EventID: 1, TicketTypeID: 7, Qty: 5, ActorUserID: 42,
	}, "")
	require.NoError(t, err)

	// event is now sold out
	_, err = f.svc.Create(context.Background(), CreateParams{
		EventID: 1, TicketTypeID: 7, Qty: 1, ActorUserID: 43,
	}, "")
	require.ErrorIs(t, err, ErrEventNotOpen)

	require.NoError(t, f.svc.Cancel(context.Background(), b.ID, 42))

	stored := f.ledger.bookings[b.ID]
	assert.Equal(t, domain.BookingCancelled, stored.Status)
	require.NotNil(t, stored.CancelledAt)
	assert.Equal(t, testNow, *stored.CancelledAt)

	// capacity came back
	_, err = f.svc.Create(context.Background(), CreateParams{
		EventID: 1, TicketTypeID: 7, Qty: 1, ActorUserID: 43,
	}, "")
	assert.NoError(t, err)
}

func TestCancel_SecondCancelFails(t *testing.T) {
	f := newFixture(openEvent(), gaTicket())

	b, err := f.svc.Create(context.Background(), CreateParams{
		EventID: 1, TicketTypeID: 7, Qty: 1, ActorUserID: 42,
	}, "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(context.Background(), b.ID, 42))
	assert.ErrorIs(t, f.svc.Cancel(context.Background(), b.ID, 42), ErrNotCancellable)
}

func TestCancel_OnlyOwner(t *testing.T) {
	f := newFixture(openEvent(), gaTicket())

	b, err := f.svc.Create(context.Background(), CreateParams{
		EventID: 1, TicketTypeID: 7, Qty: 1, ActorUserID: 42,
	}, "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Cancel(context.Background(), b.ID, 43), ErrNotOwnedByActor)
}

func TestCancel_NotFound(t *testing.T) {
	f := newFixture(openEvent(), gaTicket())

	assert.ErrorIs(t, f.svc.Cancel(context.Background(), uuid.New(), 42), ErrBookingNotFound)
}

func TestCancel_AfterEventStartOrCancel(t *testing.T) {
	f := newFixture(openEvent(), gaTicket())

	b, err := f.svc.Create(context.Background(), CreateParams{
		EventID: 1, TicketTypeID: 7, Qty: 1, ActorUserID: 42,
	}, "")
	require.NoError(t, err)

	t.Run("event started", func(t *testing.T) {
		f.events.events[1].StartAt = ptrTime(testNow.Add(-time.Hour))
		assert.ErrorIs(t, f.svc.Cancel(context.Background(), b.ID, 42), ErrNotCancellable)
		f.events.events[1].StartAt = ptrTime(testNow.Add(24 * time.Hour))
	})

	t.Run("event cancelled", func(t *testing.T) {
		f.events.events[1].Cancelled = true
		assert.ErrorIs(t, f.svc.Cancel(context.Background(), b.ID, 42), ErrNotCancellable)
	})
}

package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nkly/eventbook/internal/domain"
	"github.com/nkly/eventbook/internal/repository"
	postgresrepo "github.com/nkly/eventbook/internal/repository/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvents struct {
	events map[int64]*domain.Event

	lastLimit  int
	lastOffset int
}

func (f *fakeEvents) GetByID(_ context.Context, _ postgresrepo.DB, id int64) (*domain.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEvents) List(_ context.Context, _ postgresrepo.DB, _ string, limit, offset int) ([]domain.Event, error) {
	f.lastLimit = limit
	f.lastOffset = offset

	var out []domain.Event
	for _, e := range f.events {
		if !e.IsDraft {
			out = append(out, *e)
		}
	}
	return out, nil
}

type fakeTickets struct {
	byEvent map[int64][]domain.TicketType
}

func (f *fakeTickets) ListByEvent(_ context.Context, _ postgresrepo.DB, eventID int64) ([]domain.TicketType, error) {
	return f.byEvent[eventID], nil
}

type fakeBookings struct {
	sold    map[int64]int64
	history []domain.BookingWithEvent
}

func (f *fakeBookings) SoldQuantity(_ context.Context, _ postgresrepo.DB, eventID int64) (int64, error) {
	return f.sold[eventID], nil
}

func (f *fakeBookings) ListByUser(_ context.Context, _ postgresrepo.DB, _ int64) ([]domain.BookingWithEvent, error) {
	return f.history, nil
}

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }

func ptrInt64(v int64) *int64 { return &v }

func newFixture(events map[int64]*domain.Event, sold map[int64]int64) (*Service, *fakeEvents, *fakeBookings) {
	fe := &fakeEvents{events: events}
	ft := &fakeTickets{byEvent: map[int64][]domain.TicketType{}}
	for id := range events {
		ft.byEvent[id] = []domain.TicketType{{ID: id * 10, EventID: id, Name: "General Admission"}}
	}
	fb := &fakeBookings{sold: sold}

	svc := New(fe, ft, fb, nil, Config{})
	svc.now = func() time.Time { return testNow }

	return svc, fe, fb
}

func TestGetEvent_DerivesStatus(t *testing.T) {
	svc, _, _ := newFixture(map[int64]*domain.Event{
		1: {ID: 1, Capacity: ptrInt64(10), StartAt: ptrTime(testNow.Add(time.Hour))},
	}, map[int64]int64{1: 4})

	s, err := svc.GetEvent(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusOpen, s.Status)
	assert.Equal(t, int64(4), s.SoldQuantity)
	require.NotNil(t, s.Remaining)
	assert.Equal(t, int64(6), *s.Remaining)

	require.Len(t, s.TicketTypes, 1)
	assert.Equal(t, "General Admission", s.TicketTypes[0].Name)
}

func TestGetEvent_NotFound(t *testing.T) {
	svc, _, _ := newFixture(map[int64]*domain.Event{}, nil)

	_, err := svc.GetEvent(context.Background(), 99)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestAvailability_SoldOut(t *testing.T) {
	svc, _, _ := newFixture(map[int64]*domain.Event{
		1: {ID: 1, Capacity: ptrInt64(5), StartAt: ptrTime(testNow.Add(time.Hour))},
	}, map[int64]int64{1: 5})

	s, err := svc.Availability(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSoldOut, s.Status)
	require.NotNil(t, s.Remaining)
	assert.Equal(t, int64(0), *s.Remaining)
}

func TestListEvents_StatusesAgreeWithDetail(t *testing.T) {
	events := map[int64]*domain.Event{
		1: {ID: 1, Capacity: ptrInt64(5), StartAt: ptrTime(testNow.Add(time.Hour))},
		2: {ID: 2, StartAt: ptrTime(testNow.Add(-time.Hour))},
		3: {ID: 3, IsDraft: true},
	}
	svc, _, _ := newFixture(events, map[int64]int64{1: 5})

	list, err := svc.ListEvents(context.Background(), "", 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2, "drafts are not listed")

	for _, s := range list {
		detail, err := svc.GetEvent(context.Background(), s.Event.ID)
		require.NoError(t, err)
		assert.Equal(t, detail.Status, s.Status)
	}
}

func TestListEvents_ClampsPaging(t *testing.T) {
	svc, fe, _ := newFixture(map[int64]*domain.Event{}, nil)

	_, err := svc.ListEvents(context.Background(), "", 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 50, fe.lastLimit, "default page size")
	assert.Equal(t, 0, fe.lastOffset)

	_, err = svc.ListEvents(context.Background(), "", 10_000, 20)
	require.NoError(t, err)
	assert.Equal(t, 200, fe.lastLimit, "max page size")
	assert.Equal(t, 20, fe.lastOffset)
}

func TestSoldQuantity(t *testing.T) {
	svc, _, _ := newFixture(map[int64]*domain.Event{}, map[int64]int64{7: 3})

	sold, err := svc.SoldQuantity(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sold)
}

func TestBookingHistory_FlagsCancellable(t *testing.T) {
	svc, _, fb := newFixture(map[int64]*domain.Event{}, nil)

	future := domain.Event{ID: 1, StartAt: ptrTime(testNow.Add(time.Hour))}
	started := domain.Event{ID: 2, StartAt: ptrTime(testNow.Add(-time.Hour))}

	fb.history = []domain.BookingWithEvent{
		{Booking: domain.Booking{ID: uuid.New(), Status: domain.BookingConfirmed}, Event: future},
		{Booking: domain.Booking{ID: uuid.New(), Status: domain.BookingConfirmed}, Event: started},
		{Booking: domain.Booking{ID: uuid.New(), Status: domain.BookingCancelled}, Event: future},
	}

	rows, err := svc.BookingHistory(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.True(t, rows[0].Cancellable)
	assert.False(t, rows[1].Cancellable, "event already started")
	assert.False(t, rows[2].Cancellable, "booking already cancelled")
}

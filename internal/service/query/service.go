package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nkly/eventbook/internal/domain"
	"github.com/nkly/eventbook/internal/repository"
	postgresrepo "github.com/nkly/eventbook/internal/repository/postgres"
	redisrepo "github.com/nkly/eventbook/internal/repository/redis"
)

type EventStore interface {
	GetByID(ctx context.Context, db postgresrepo.DB, id int64) (*domain.Event, error)
	List(ctx context.Context, db postgresrepo.DB, search string, limit, offset int) ([]domain.Event, error)
}

type TicketStore interface {
	ListByEvent(ctx context.Context, db postgresrepo.DB, eventID int64) ([]domain.TicketType, error)
}

type BookingStore interface {
	SoldQuantity(ctx context.Context, db postgresrepo.DB, eventID int64) (int64, error)
	ListByUser(ctx context.Context, db postgresrepo.DB, userID int64) ([]domain.BookingWithEvent, error)
}

type Config struct {
	EventSummaryTTL time.Duration
	AvailabilityTTL time.Duration
	EventListTTL    time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

type Service struct {
	events   EventStore
	tickets  TicketStore
	bookings BookingStore
	cache    *redisrepo.Cache
	cfg      Config
	now      func() time.Time
}

func New(events EventStore, tickets TicketStore, bookings BookingStore, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.EventSummaryTTL <= 0 {
		cfg.EventSummaryTTL = 60 * time.Second
	}

	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 15 * time.Second
	}

	if cfg.EventListTTL <= 0 {
		cfg.EventListTTL = 15 * time.Second
	}

	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 50
	}

	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 200
	}

	return &Service{
		events:   events,
		tickets:  tickets,
		bookings: bookings,
		cache:    cache,
		cfg:      cfg,
		now:      time.Now,
	}
}

// GetEvent returns an event with its derived status and capacity
// accounting, through the summary cache. Every read path shares this
// resolver call so listings, detail pages and booking attempts can
// never disagree about an event's status.
//
// Returns:
//   - query.ErrEventNotFound if the event does not exist.
func (s *Service) GetEvent(ctx context.Context, id int64) (*domain.EventSummary, error) {
	const op = "service.query.GetEvent"

	summary, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyEventSummary(id),
		s.cfg.EventSummaryTTL,
		func(ctx context.Context) (domain.EventSummary, error) {
			return s.loadSummary(ctx, id)
		},
	)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &summary, nil
}

// Availability is the short-TTL variant of GetEvent used by the
// remaining-seats endpoint and polled by event pages.
func (s *Service) Availability(ctx context.Context, id int64) (*domain.EventSummary, error) {
	const op = "service.query.Availability"

	summary, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyEventAvailability(id),
		s.cfg.AvailabilityTTL,
		func(ctx context.Context) (domain.EventSummary, error) {
			return s.loadSummary(ctx, id)
		},
	)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &summary, nil
}

// ListEvents returns published events with derived statuses, optionally
// filtered by a search term. List pages live behind their own short
// cache keys and expire rather than being invalidated.
func (s *Service) ListEvents(ctx context.Context, search string, limit, offset int) ([]domain.EventSummary, error) {
	const op = "service.query.ListEvents"

	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}

	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	summaries, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyEventList(search, limit, offset),
		s.cfg.EventListTTL,
		func(ctx context.Context) ([]domain.EventSummary, error) {
			events, err := s.events.List(ctx, nil, search, limit, offset)
			if err != nil {
				return nil, err
			}

			now := s.now()
			out := make([]domain.EventSummary, 0, len(events))
			for i := range events {
				e := &events[i]

				sold, err := s.bookings.SoldQuantity(ctx, nil, e.ID)
				if err != nil {
					return nil, err
				}

				out = append(out, domain.EventSummary{
					Event:        *e,
					Status:       domain.ResolveStatus(e, sold, now),
					SoldQuantity: sold,
					Remaining:    domain.Remaining(e, sold),
				})
			}

			return out, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return summaries, nil
}

// SoldQuantity reports the confirmed ticket quantity for an event.
func (s *Service) SoldQuantity(ctx context.Context, eventID int64) (int64, error) {
	const op = "service.query.SoldQuantity"

	sold, err := s.bookings.SoldQuantity(ctx, nil, eventID)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return sold, nil
}

// BookingHistory lists the user's bookings newest first, each flagged
// with whether it can still be cancelled.
func (s *Service) BookingHistory(ctx context.Context, userID int64) ([]domain.BookingWithEvent, error) {
	const op = "service.query.BookingHistory"

	rows, err := s.bookings.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	now := s.now()
	for i := range rows {
		rows[i].Cancellable = domain.CanCancelBooking(&rows[i].Event, &rows[i].Booking, now)
	}

	return rows, nil
}

func (s *Service) loadSummary(ctx context.Context, id int64) (domain.EventSummary, error) {
	e, err := s.events.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.EventSummary{}, ErrEventNotFound
		}

		return domain.EventSummary{}, err
	}

	sold, err := s.bookings.SoldQuantity(ctx, nil, id)
	if err != nil {
		return domain.EventSummary{}, err
	}

	tickets, err := s.tickets.ListByEvent(ctx, nil, id)
	if err != nil {
		return domain.EventSummary{}, err
	}

	return domain.EventSummary{
		Event:        *e,
		Status:       domain.ResolveStatus(e, sold, s.now()),
		SoldQuantity: sold,
		Remaining:    domain.Remaining(e, sold),
		TicketTypes:  tickets,
	}, nil
}

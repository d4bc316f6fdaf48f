package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nkly/eventbook/internal/domain"
	"github.com/nkly/eventbook/internal/repository"
	postgresrepo "github.com/nkly/eventbook/internal/repository/postgres"
	redisrepo "github.com/nkly/eventbook/internal/repository/redis"
	"github.com/nkly/eventbook/internal/uow"
)

const defaultTicketName = "General Admission"

type EventStore interface {
	Create(ctx context.Context, db postgresrepo.DB, e *domain.Event) error
	Update(ctx context.Context, db postgresrepo.DB, e *domain.Event) error
	GetByID(ctx context.Context, db postgresrepo.DB, id int64) (*domain.Event, error)
	SetStateFlags(ctx context.Context, db postgresrepo.DB, id int64, cancelled, isDraft, isActive bool) error
}

type TicketStore interface {
	Create(ctx context.Context, db postgresrepo.DB, t *domain.TicketType) error
}

type TxRunner interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error) error
}

type Service struct {
	events  EventStore
	tickets TicketStore
	uow     TxRunner
	cache   *redisrepo.Cache
	pubsub  *redisrepo.EventsPubSub
}

func New(
	events EventStore,
	tickets TicketStore,
	txr TxRunner,
	cache *redisrepo.Cache,
	pubsub *redisrepo.EventsPubSub,
) *Service {
	return &Service{
		events:  events,
		tickets: tickets,
		uow:     txr,
		cache:   cache,
		pubsub:  pubsub,
	}
}

type CreateInput struct {
	Title        string
	Description  string
	Category     string
	Format       string
	LocationText string
	Timezone     string
	StartAt      *time.Time
	EndAt        *time.Time
	RSVPClosesAt *time.Time
	Capacity     *int64
	ImageURL     string
	ImageAlt     string
	PriceCents   int64
	Currency     string
	Publish      bool
}

// Create stores a new event for the host together with its General
// Admission ticket type, atomically. Publish=false saves a draft.
// Ticket sales close when RSVPs close.
//
// Returns:
//   - event.ErrInvalidSchedule: start after end, or RSVP close after start.
//   - event.ErrInvalidPrice: negative price.
func (s *Service) Create(ctx context.Context, hostUserID int64, in CreateInput) (*domain.Event, error) {
	const op = "service.event.Create"

	if !domain.ValidateSchedule(in.StartAt, in.EndAt, in.RSVPClosesAt) {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidSchedule)
	}

	if in.PriceCents < 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidPrice)
	}

	currency := in.Currency
	if currency == "" {
		currency = "AUD"
	}

	e := &domain.Event{
		HostUserID:   hostUserID,
		Title:        in.Title,
		Description:  in.Description,
		Category:     in.Category,
		Format:       in.Format,
		LocationText: in.LocationText,
		Timezone:     in.Timezone,
		StartAt:      in.StartAt,
		EndAt:        in.EndAt,
		RSVPClosesAt: in.RSVPClosesAt,
		Capacity:     in.Capacity,
		ImageURL:     in.ImageURL,
		ImageAlt:     in.ImageAlt,
		IsDraft:      !in.Publish,
		IsActive:     in.Publish,
	}

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		if err := s.events.Create(ctx, tx, e); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		ga := &domain.TicketType{
			EventID:    e.ID,
			Name:       defaultTicketName,
			IsFree:     in.PriceCents == 0,
			PriceCents: in.PriceCents,
			Currency:   currency,
			Capacity:   in.Capacity,
			SalesEndAt: in.RSVPClosesAt,
		}

		if err := s.tickets.Create(ctx, tx, ga); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			if s.pubsub != nil {
				_ = s.pubsub.PublishEventChanged(ctx, e.ID)
			}
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return e, nil
}

type UpdateInput struct {
	Title        string
	Description  string
	Category     string
	Format       string
	LocationText string
	Timezone     string
	StartAt      *time.Time
	EndAt        *time.Time
	RSVPClosesAt *time.Time
	Capacity     *int64
	ImageURL     string
	ImageAlt     string
}

// Update rewrites an event's metadata and schedule. Only the host may
// update; stored state flags are untouched (see SetState).
//
// Returns:
//   - event.ErrEventNotFound, event.ErrNotHost, event.ErrInvalidSchedule.
func (s *Service) Update(ctx context.Context, eventID, actorUserID int64, in UpdateInput) (*domain.Event, error) {
	const op = "service.event.Update"

	if !domain.ValidateSchedule(in.StartAt, in.EndAt, in.RSVPClosesAt) {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidSchedule)
	}

	var updated *domain.Event

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		e, err := s.events.GetByID(ctx, tx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrEventNotFound)
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if e.HostUserID != actorUserID {
			return fmt.Errorf("%s:%w", op, ErrNotHost)
		}

		e.Title = in.Title
		e.Description = in.Description
		e.Category = in.Category
		e.Format = in.Format
		e.LocationText = in.LocationText
		e.Timezone = in.Timezone
		e.StartAt = in.StartAt
		e.EndAt = in.EndAt
		e.RSVPClosesAt = in.RSVPClosesAt
		e.Capacity = in.Capacity
		e.ImageURL = in.ImageURL
		e.ImageAlt = in.ImageAlt

		if err := s.events.Update(ctx, tx, e); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		updated = e

		after(func(ctx context.Context) {
			if s.cache != nil {
				_ = s.cache.InvalidateEvent(ctx, eventID)
			}
			if s.pubsub != nil {
				_ = s.pubsub.PublishEventChanged(ctx, eventID)
			}
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// SetState applies a host action (publish, draft, cancel) to the stored
// flag trio. Cancelled events stay cancelled: there is no un-cancel
// action, so the transition is terminal.
//
// Returns:
//   - event.ErrEventNotFound, event.ErrNotHost, event.ErrUnknownAction,
//     event.ErrEventCancelled.
func (s *Service) SetState(ctx context.Context, eventID, actorUserID int64, action domain.EventAction) error {
	const op = "service.event.SetState"

	return s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		e, err := s.events.GetByID(ctx, tx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrEventNotFound)
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if e.HostUserID != actorUserID {
			return fmt.Errorf("%s:%w", op, ErrNotHost)
		}

		if e.Cancelled {
			return fmt.Errorf("%s:%w", op, ErrEventCancelled)
		}

		if !domain.ApplyAction(e, action) {
			return fmt.Errorf("%s:%w", op, ErrUnknownAction)
		}

		if err := s.events.SetStateFlags(ctx, tx, eventID, e.Cancelled, e.IsDraft, e.IsActive); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			if s.cache != nil {
				_ = s.cache.InvalidateEvent(ctx, eventID)
			}
			if s.pubsub != nil {
				_ = s.pubsub.PublishEventChanged(ctx, eventID)
			}
		})

		return nil
	})
}

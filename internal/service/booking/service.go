package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nkly/eventbook/internal/domain"
	"github.com/nkly/eventbook/internal/repository"
	postgresrepo "github.com/nkly/eventbook/internal/repository/postgres"
	redisrepo "github.com/nkly/eventbook/internal/repository/redis"
	"github.com/nkly/eventbook/internal/uow"
)

// MaxQtyPerBooking caps how many tickets one booking may carry. Larger
// requests are clamped, not rejected; the capacity check then decides.
const MaxQtyPerBooking = 12

type EventStore interface {
	GetByID(ctx context.Context, db postgresrepo.DB, id int64) (*domain.Event, error)
	GetByIDForUpdate(ctx context.Context, db postgresrepo.DB, id int64) (*domain.Event, error)
}

type TicketStore interface {
	GetByID(ctx context.Context, db postgresrepo.DB, id int64) (*domain.TicketType, error)
}

type BookingStore interface {
	SoldQuantity(ctx context.Context, db postgresrepo.DB, eventID int64) (int64, error)
	Insert(ctx context.Context, db postgresrepo.DB, b *domain.Booking) error
	InsertPayment(ctx context.Context, db postgresrepo.DB, p *domain.Payment) error
	GetByID(ctx context.Context, db postgresrepo.DB, id uuid.UUID) (*domain.Booking, error)
	MarkCancelled(ctx context.Context, db postgresrepo.DB, id uuid.UUID, at time.Time) error
}

type TxRunner interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error) error
}

type Service struct {
	events  EventStore
	tickets TicketStore
	ledger  BookingStore
	uow     TxRunner
	cache   *redisrepo.Cache
	pubsub  *redisrepo.EventsPubSub
	limiter *redisrepo.SlidingWindowLimiter
	now     func() time.Time
}

func New(
	events EventStore,
	tickets TicketStore,
	ledger BookingStore,
	txr TxRunner,
	cache *redisrepo.Cache,
	pubsub *redisrepo.EventsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
) *Service {
	return &Service{
		events:  events,
		tickets: tickets,
		ledger:  ledger,
		uow:     txr,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
		now:     time.Now,
	}
}

type CreateParams struct {
	EventID      int64
	TicketTypeID int64
	Qty          int64
	ActorUserID  int64
}

// Create books Qty tickets for the actor and captures a simulated
// payment, both inside one serializable transaction. The event row is
// locked before the confirmed-quantity aggregate so concurrent bookings
// serialize on the capacity check and cannot oversell.
//
// Returns:
//   - booking.ErrEventNotFound: no such event.
//   - booking.ErrEventNotOpen: event is draft, cancelled, sold out or started.
//   - booking.ErrHostCannotBookOwnEvent: actor hosts the event.
//   - booking.ErrNoTicketType: ticket type missing, foreign or not on sale.
//   - booking.ErrInsufficientCapacity: fewer than Qty seats remain.
func (s *Service) Create(ctx context.Context, p CreateParams, rlKey string) (*domain.Booking, error) {
	const op = "service.booking.Create"

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: rate limited, retry in %s", op, retry)
		}
	}

	qty := clampQty(p.Qty)
	now := s.now()

	var created *domain.Booking

	attempt := func() error {
		return s.uow.Do(ctx, func(
			ctx context.Context,
			tx postgresrepo.DB,
			after func(uow.AfterCommit),
		) error {
			event, err := s.events.GetByIDForUpdate(ctx, tx, p.EventID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("%s:%w", op, ErrEventNotFound)
				}

				return fmt.Errorf("%s:%w", op, err)
			}

			sold, err := s.ledger.SoldQuantity(ctx, tx, p.EventID)
			if err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}

			if domain.ResolveStatus(event, sold, now) != domain.StatusOpen {
				return fmt.Errorf("%s:%w", op, ErrEventNotOpen)
			}

			if p.ActorUserID == event.HostUserID {
				return fmt.Errorf("%s:%w", op, ErrHostCannotBookOwnEvent)
			}

			ticket, err := s.tickets.GetByID(ctx, tx, p.TicketTypeID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("%s:%w", op, ErrNoTicketType)
				}

				return fmt.Errorf("%s:%w", op, err)
			}

			if ticket.EventID != event.ID || !onSale(ticket, now) {
				return fmt.Errorf("%s:%w", op, ErrNoTicketType)
			}

			if remaining := domain.Remaining(event, sold); remaining != nil && qty > *remaining {
				return fmt.Errorf("%s:%w", op, ErrInsufficientCapacity)
			}

			b := &domain.Booking{
				ID:             uuid.New(),
				EventID:        event.ID,
				UserID:         p.ActorUserID,
				TicketTypeID:   ticket.ID,
				Qty:            qty,
				UnitPriceCents: ticket.PriceCents,
				TotalCents:     ticket.PriceCents * qty,
				Status:         domain.BookingConfirmed,
			}

			if err := s.ledger.Insert(ctx, tx, b); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}

			if err := s.ledger.InsertPayment(ctx, tx, simulatedPayment(b, ticket.Currency, now)); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}

			created = b

			after(func(ctx context.Context) {
				if s.cache != nil {
					_ = s.cache.InvalidateEvent(ctx, event.ID)
				}
				if s.pubsub != nil {
					_ = s.pubsub.PublishEventChanged(ctx, event.ID)
				}
			})

			return nil
		})
	}

	// serializable transactions can fail with a serialization error under
	// contention; those attempts are safe to repeat
	err := attempt()
	for retries := 0; retries < 2 && postgresrepo.IsRetryable(err); retries++ {
		err = attempt()
	}
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Cancel marks the actor's confirmed booking cancelled and stamps the
// time. The row is kept; it simply stops counting toward sold quantity.
// Only allowed while the event has neither started nor been cancelled.
//
// Returns:
//   - booking.ErrBookingNotFound: no such booking.
//   - booking.ErrNotOwnedByActor: booking belongs to someone else.
//   - booking.ErrNotCancellable: event started or cancelled, or the
//     booking is not confirmed (including a repeated cancel).
func (s *Service) Cancel(ctx context.Context, bookingID uuid.UUID, actorUserID int64) error {
	const op = "service.booking.Cancel"

	now := s.now()

	return s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		b, err := s.ledger.GetByID(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrBookingNotFound)
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if b.UserID != actorUserID {
			return fmt.Errorf("%s:%w", op, ErrNotOwnedByActor)
		}

		event, err := s.events.GetByID(ctx, tx, b.EventID)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if !domain.CanCancelBooking(event, b, now) {
			return fmt.Errorf("%s:%w", op, ErrNotCancellable)
		}

		if err := s.ledger.MarkCancelled(ctx, tx, bookingID, now); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrNotCancellable)
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			if s.cache != nil {
				_ = s.cache.InvalidateEvent(ctx, event.ID)
			}
			if s.pubsub != nil {
				_ = s.pubsub.PublishEventChanged(ctx, event.ID)
			}
		})

		return nil
	})
}

func clampQty(qty int64) int64 {
	if qty < 1 {
		return 1
	}

	if qty > MaxQtyPerBooking {
		return MaxQtyPerBooking
	}

	return qty
}

func onSale(t *domain.TicketType, now time.Time) bool {
	if t.SalesStartAt != nil && now.Before(*t.SalesStartAt) {
		return false
	}

	if t.SalesEndAt != nil && now.After(*t.SalesEndAt) {
		return false
	}

	return true
}

func simulatedPayment(b *domain.Booking, currency string, now time.Time) *domain.Payment {
	return &domain.Payment{
		BookingID:        b.ID,
		Provider:         "simulated",
		MethodBrand:      "visa",
		MethodLast4:      "4242",
		AmountCents:      b.TotalCents,
		Currency:         currency,
		Status:           domain.PaymentCaptured,
		ProviderChargeID: "sim_" + uuid.NewString(),
		AuthorisedAt:     &now,
		CapturedAt:       &now,
	}
}

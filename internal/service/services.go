package service

import (
	postgres "github.com/nkly/eventbook/internal/repository/postgres"
	redis "github.com/nkly/eventbook/internal/repository/redis"
	"github.com/nkly/eventbook/internal/service/auth"
	"github.com/nkly/eventbook/internal/service/booking"
	"github.com/nkly/eventbook/internal/service/event"
	"github.com/nkly/eventbook/internal/service/query"
	"github.com/nkly/eventbook/internal/uow"
)

type Services struct {
	Booking *booking.Service
	Event   *event.Service
	Query   *query.Service
	Auth    *auth.Service
}

type Config struct {
	Query query.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redis.EventsPubSub,
	limiter *redis.SlidingWindowLimiter,
	sessions *redis.SessionStore,
	cfg Config,
) *Services {
	txr := uow.NewUoW(store)

	return &Services{
		Booking: booking.New(store.Events(), store.Tickets(), store.Bookings(), txr, cache, pubsub, limiter),
		Event:   event.New(store.Events(), store.Tickets(), txr, cache, pubsub),
		Query:   query.New(store.Events(), store.Tickets(), store.Bookings(), cache, cfg.Query),
		Auth:    auth.New(store.Users(), sessions),
	}
}

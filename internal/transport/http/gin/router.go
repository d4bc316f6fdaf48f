package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nkly/eventbook/internal/domain"
	redisrepo "github.com/nkly/eventbook/internal/repository/redis"
	"github.com/nkly/eventbook/internal/service"
	"github.com/nkly/eventbook/internal/service/auth"
	"github.com/nkly/eventbook/internal/service/booking"
	"github.com/nkly/eventbook/internal/service/event"
	"github.com/nkly/eventbook/internal/service/query"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.POST("/auth/register", handleRegister(svcs))
	r.POST("/auth/login", handleLogin(svcs))

	r.GET("/events", handleListEvents(svcs))
	r.GET("/events/:id", handleGetEvent(svcs))
	r.GET("/events/:id/availability", handleGetAvailability(svcs))

	// Authenticated API
	authed := r.Group("/", AuthRequired(svcs.Auth))
	{
		authed.POST("/auth/logout", handleLogout(svcs))
		authed.GET("/auth/me", handleMe(svcs))

		authed.POST("/events", handleCreateEvent(svcs))
		authed.PUT("/events/:id", handleUpdateEvent(svcs))
		authed.POST("/events/:id/actions", handleEventAction(svcs))

		authed.POST("/events/:id/bookings", handleCreateBooking(svcs, idem))
		authed.GET("/bookings", handleBookingHistory(svcs))
		authed.POST("/bookings/:id/cancel", handleCancelBooking(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Register user
// @Param    req body  RegisterRequest true "payload"
// @Success  201 {object} domain.User
// @Failure  409 {object} ErrorResponse "name or email taken"
// @Router   /auth/register [post]
func handleRegister(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		u, err := svcs.Auth.Register(
			c.Request.Context(),
			req.Name,
			req.Email,
			req.Mobile,
			req.Password,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, u)
	}
}

// @Summary  Login
// @Param    req body  LoginRequest true "payload"
// @Success  200 {object} AuthResponse
// @Failure  401 {object} ErrorResponse
// @Router   /auth/login [post]
func handleLogin(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		token, u, err := svcs.Auth.Login(c.Request.Context(), req.Name, req.Password)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Token: token, User: *u})
	}
}

// @Summary  Logout
// @Security BearerAuth
// @Success  204
// @Router   /auth/logout [post]
func handleLogout(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svcs.Auth.Logout(c.Request.Context(), bearerToken(c)); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Current user profile
// @Security BearerAuth
// @Success  200 {object} domain.User
// @Router   /auth/me [get]
func handleMe(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := svcs.Auth.UserByID(c.Request.Context(), currentUserID(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// @Summary  List published events
// @Param    search query  string false "title/description filter"
// @Param    limit  query  int    false "page size"
// @Param    offset query  int    false "offset"
// @Success  200 {array} domain.EventSummary
// @Router   /events [get]
func handleListEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		search := strings.TrimSpace(c.Query("search"))
		limit := parseIntDefault(c.Query("limit"), 0)
		offset := parseIntDefault(c.Query("offset"), 0)

		events, err := svcs.Query.ListEvents(c.Request.Context(), search, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 15s
		writeJSONWithCache(c, http.StatusOK, events, "public, max-age=15", true)
	}
}

// @Summary  Get event with derived status
// @Param    id  path  int  true  "Event ID"
// @Success  200 {object} domain.EventSummary
// @Failure  404 {object} ErrorResponse
// @Router   /events/{id} [get]
func handleGetEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		e, err := svcs.Query.GetEvent(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 60s
		writeJSONWithCache(c, http.StatusOK, e, "public, max-age=60", true)
	}
}

// @Summary  Get availability counters
// @Param    id  path  int  true  "Event ID"
// @Success  200 {object} domain.EventSummary
// @Failure  404 {object} ErrorResponse
// @Router   /events/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		s, err := svcs.Query.Availability(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 15s
		writeJSONWithCache(c, http.StatusOK, s, "public, max-age=15", true)
	}
}

// @Summary  Create event with a General Admission ticket type
// @Security BearerAuth
// @Param    req body  CreateEventRequest true "payload"
// @Success  201 {object} domain.Event
// @Failure  400 {object} ErrorResponse
// @Router   /events [post]
func handleCreateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		in, ok := eventInputTimes(c, req.EventInput)
		if !ok {
			return
		}
		e, err := svcs.Event.Create(c.Request.Context(), currentUserID(c), event.CreateInput{
			Title:        req.Title,
			Description:  req.Description,
			Category:     req.Category,
			Format:       req.Format,
			LocationText: req.LocationText,
			Timezone:     req.Timezone,
			StartAt:      in.start,
			EndAt:        in.end,
			RSVPClosesAt: in.rsvp,
			Capacity:     req.Capacity,
			ImageURL:     req.ImageURL,
			ImageAlt:     req.ImageAlt,
			PriceCents:   req.PriceCents,
			Currency:     req.Currency,
			Publish:      req.Publish,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, e)
	}
}

// @Summary  Update event metadata
// @Security BearerAuth
// @Param    id  path  int  true  "Event ID"
// @Param    req body  EventInput true "payload"
// @Success  200 {object} domain.Event
// @Failure  403 {object} ErrorResponse "not the host"
// @Failure  404 {object} ErrorResponse
// @Router   /events/{id} [put]
func handleUpdateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req EventInput
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		in, ok := eventInputTimes(c, req)
		if !ok {
			return
		}
		e, err := svcs.Event.Update(c.Request.Context(), eventID, currentUserID(c), event.UpdateInput{
			Title:        req.Title,
			Description:  req.Description,
			Category:     req.Category,
			Format:       req.Format,
			LocationText: req.LocationText,
			Timezone:     req.Timezone,
			StartAt:      in.start,
			EndAt:        in.end,
			RSVPClosesAt: in.rsvp,
			Capacity:     req.Capacity,
			ImageURL:     req.ImageURL,
			ImageAlt:     req.ImageAlt,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

// @Summary  Publish, unpublish or cancel an event
// @Security BearerAuth
// @Param    id  path  int  true  "Event ID"
// @Param    req body  EventActionRequest true "payload"
// @Success  204
// @Failure  400 {object} ErrorResponse "unknown action"
// @Failure  403 {object} ErrorResponse "not the host"
// @Router   /events/{id}/actions [post]
func handleEventAction(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req EventActionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		err := svcs.Event.SetState(
			c.Request.Context(),
			eventID,
			currentUserID(c),
			domain.EventAction(req.Action),
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Book tickets (idempotent)
// @Security BearerAuth
// @Param    id  path  int  true  "Event ID"
// @Param    req body  CreateBookingRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} CreateBookingResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "not open / sold out / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /events/{id}/bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(eventID, idemKey)

			if payload, ok, _ := idem.GetResult(
				c.Request.Context(),
				idemStorageKey,
			); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(
					http.StatusCreated,
					"application/json; charset=utf-8",
					[]byte(payload),
				)
				return
			}

			locked, err := idem.AcquireLock(
				c.Request.Context(),
				idemStorageKey,
				60*time.Second,
			)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(
					c.Request.Context(),
					idemStorageKey,
				); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(
						http.StatusCreated,
						"application/json; charset=utf-8",
						[]byte(payload),
					)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(
					http.StatusConflict,
					ErrorResponse{Error: "idempotency key in progress"},
				)
				return
			}
		}

		rlKey := "ip:" + c.ClientIP()

		b, err := svcs.Booking.Create(c.Request.Context(), booking.CreateParams{
			EventID:      eventID,
			TicketTypeID: req.TicketTypeID,
			Qty:          req.Qty,
			ActorUserID:  currentUserID(c),
		}, rlKey)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			if isRateLimitedErr(err) {
				c.Header("Retry-After", "60")
				c.JSON(
					http.StatusTooManyRequests,
					ErrorResponse{Error: err.Error()},
				)
				return
			}
			respondErr(c, err)
			return
		}

		resp := CreateBookingResponse{
			BookingID:  b.ID.String(),
			EventID:    b.EventID,
			Qty:        b.Qty,
			TotalCents: b.TotalCents,
			Status:     string(b.Status),
		}

		if idemStorageKey != "" && idem != nil {
			payload, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(payload))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Booking history
// @Security BearerAuth
// @Success  200 {array} domain.BookingWithEvent
// @Router   /bookings [get]
func handleBookingHistory(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := svcs.Query.BookingHistory(c.Request.Context(), currentUserID(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

// @Summary  Cancel a booking
// @Security BearerAuth
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  204
// @Failure  403 {object} ErrorResponse "not the owner"
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "not cancellable"
// @Router   /bookings/{id}/cancel [post]
func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			badRequest(c, "invalid booking id")
			return
		}
		if err := svcs.Booking.Cancel(
			c.Request.Context(),
			bookingID,
			currentUserID(c),
		); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// --- Helpers ---

type eventTimes struct {
	start *time.Time
	end   *time.Time
	rsvp  *time.Time
}

func eventInputTimes(c *gin.Context, in EventInput) (eventTimes, bool) {
	start, err := parseOptRFC3339(in.StartAt)
	if err != nil {
		badRequest(c, "invalid start_at (RFC3339)")
		return eventTimes{}, false
	}
	end, err := parseOptRFC3339(in.EndAt)
	if err != nil {
		badRequest(c, "invalid end_at (RFC3339)")
		return eventTimes{}, false
	}
	rsvp, err := parseOptRFC3339(in.RSVPClosesAt)
	if err != nil {
		badRequest(c, "invalid rsvp_closes_at (RFC3339)")
		return eventTimes{}, false
	}
	return eventTimes{start: start, end: end, rsvp: rsvp}, true
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func isRateLimitedErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "rate limited")
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// auth service
	case errors.Is(err, auth.ErrUserExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "name or email already taken"})
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return
	case errors.Is(err, auth.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	// event service
	case errors.Is(err, event.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
		return
	case errors.Is(err, event.ErrNotHost):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only the host may do this"})
		return
	case errors.Is(err, event.ErrUnknownAction):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown action"})
		return
	case errors.Is(err, event.ErrEventCancelled):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "event is cancelled"})
		return
	case errors.Is(err, event.ErrInvalidSchedule):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid schedule"})
		return
	case errors.Is(err, event.ErrInvalidPrice):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid price"})
		return
	// query service
	case errors.Is(err, query.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
		return
	// booking service
	case errors.Is(err, booking.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
		return
	case errors.Is(err, booking.ErrEventNotOpen):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "event is not open for booking"})
		return
	case errors.Is(err, booking.ErrHostCannotBookOwnEvent):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "hosts cannot book their own event"})
		return
	case errors.Is(err, booking.ErrNoTicketType):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "ticket type not available"})
		return
	case errors.Is(err, booking.ErrInsufficientCapacity):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "not enough seats remain"})
		return
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
		return
	case errors.Is(err, booking.ErrNotOwnedByActor):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "booking belongs to another user"})
		return
	case errors.Is(err, booking.ErrNotCancellable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "booking can no longer be cancelled"})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

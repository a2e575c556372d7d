// Package testserver provides a fake ticket booking backend for exercising
// flashtix. It mirrors the contract of the real service: one seat can be
// sold once, contenders get 409, and optimistic versioning (optionally
// fronted by a Redis lock) keeps the sale exclusive. Unsafe mode drops the
// version check so races produce several winners on purpose.
package testserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	DefaultSeats = 100

	// maxBookAttempts retries a booking that lost an optimistic version race.
	maxBookAttempts = 3
)

// Options configures the fake backend. The zero value is a correct,
// fast backend with 100 seats and no lock.
type Options struct {
	Seats int
	// Delay is spent between reading a ticket and writing it back, which
	// widens the race window.
	Delay time.Duration
	// FailRate is the probability in [0, 1] of answering a booking with 500.
	FailRate float64
	// Unsafe skips the version check: last writer wins and every
	// concurrent writer is told it succeeded.
	Unsafe bool
	Locker Locker
	Logger *slog.Logger
}

// Server is the fake booking backend.
type Server struct {
	echo  *echo.Echo
	store *MemoryStore
	opts  Options
	log   *slog.Logger
}

// New creates a server with all routes registered. Seats are created by
// POST /api/tickets/seed or Seed.
func New(opts Options) *Server {
	if opts.Seats <= 0 {
		opts.Seats = DefaultSeats
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		echo:  echo.New(),
		store: NewMemoryStore(),
		opts:  opts,
		log:   logger,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelDebug
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			s.log.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}))
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Store exposes the ticket store for inspection.
func (s *Server) Store() *MemoryStore {
	return s.store
}

// Seed creates the configured seats once and returns how many were created.
func (s *Server) Seed() int {
	return s.store.Seed(s.opts.Seats)
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api/tickets")
	api.POST("/seed", s.handleSeed)
	api.POST("/book", s.handleBook)
	api.GET("", s.handleList)
	api.GET("/:id", s.handleGet)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSeed(c echo.Context) error {
	if n := s.Seed(); n > 0 {
		s.log.Info("seeded tickets", "count", n)
		return c.String(http.StatusOK, fmt.Sprintf("Created %d Seats!", n))
	}
	return c.String(http.StatusOK, "Database already has tickets.")
}

func (s *Server) handleList(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.List())
}

func (s *Server) handleGet(c echo.Context) error {
	id, msg := positiveParam(c.Param("id"), "Ticket ID")
	if msg != "" {
		return errorJSON(c, http.StatusBadRequest, msg)
	}
	t, err := s.store.Get(id)
	if err != nil {
		return errorJSON(c, http.StatusNotFound, "Invalid Ticket ID")
	}
	return c.JSON(http.StatusOK, t)
}

// handleBook serves POST /api/tickets/book?ticketId=&userId=.
func (s *Server) handleBook(c echo.Context) error {
	ticketID, msg := positiveParam(c.QueryParam("ticketId"), "Ticket ID")
	if msg != "" {
		return errorJSON(c, http.StatusBadRequest, msg)
	}
	userID, msg := positiveParam(c.QueryParam("userId"), "User ID")
	if msg != "" {
		return errorJSON(c, http.StatusBadRequest, msg)
	}

	if s.opts.FailRate > 0 && rand.Float64() < s.opts.FailRate {
		return errorJSON(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.")
	}

	ctx := c.Request().Context()
	if s.opts.Locker != nil {
		key := "ticket_lock:" + strconv.FormatInt(ticketID, 10)
		owner := strconv.FormatInt(userID, 10)

		acquired, err := s.opts.Locker.TryLock(ctx, key, owner)
		if err != nil {
			s.log.Error("acquire ticket lock", "ticket_id", ticketID, "user_id", userID, "error", err)
			return errorJSON(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.")
		}
		if !acquired {
			return errorJSON(c, http.StatusConflict, "Too many requests! Please try again.")
		}
		defer func() {
			if err := s.opts.Locker.Unlock(context.WithoutCancel(ctx), key, owner); err != nil {
				s.log.Error("release ticket lock", "ticket_id", ticketID, "user_id", userID, "error", err)
			}
		}()
	}

	ticket, err := s.book(ctx, ticketID, userID)
	switch {
	case err == nil:
		s.log.Info("ticket booked", "ticket_id", ticketID, "user_id", userID, "version", ticket.Version)
		return c.JSON(http.StatusOK, ticket)
	case errors.Is(err, ErrTicketNotFound):
		return errorJSON(c, http.StatusNotFound, "Invalid Ticket ID")
	case errors.Is(err, ErrSoldOut):
		return errorJSON(c, http.StatusConflict, "Sold Out!")
	case errors.Is(err, ErrVersionConflict):
		return errorJSON(c, http.StatusConflict, "Ticket was just booked by another user. Please try again.")
	default:
		s.log.Error("book ticket", "ticket_id", ticketID, "user_id", userID, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.")
	}
}

// book sells ticketID to userID. A lost version race is retried; the retry
// normally observes the sale and reports ErrSoldOut.
func (s *Server) book(ctx context.Context, ticketID, userID int64) (Ticket, error) {
	var err error
	for attempt := 0; attempt < maxBookAttempts; attempt++ {
		var current Ticket
		current, err = s.store.Get(ticketID)
		if err != nil {
			return Ticket{}, err
		}
		if current.Status == StatusSold {
			return Ticket{}, ErrSoldOut
		}

		if err := sleep(ctx, s.opts.Delay); err != nil {
			return Ticket{}, err
		}

		next := current
		next.Status = StatusSold
		next.UserID = &userID

		var booked Ticket
		if s.opts.Unsafe {
			booked, err = s.store.Overwrite(next)
		} else {
			booked, err = s.store.CompareAndSwap(next)
		}
		if !errors.Is(err, ErrVersionConflict) {
			return booked, err
		}
	}
	return Ticket{}, err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// positiveParam parses an id parameter. On failure it returns the message
// sent back to the client.
func positiveParam(raw, name string) (int64, string) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Sprintf("Invalid parameter type for '%s': expected a number", name)
	}
	if n <= 0 {
		return 0, name + " must be positive"
	}
	return n, ""
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"status": "error", "message": message})
}

// Command testserver runs a fake ticket booking backend for flashtix.
//
// Usage:
//
//	testserver [flags]
//
// Flags:
//
//	--port       Port to listen on (default: 8080)
//	--host       Host to bind to (default: localhost)
//	--seats      Seats created by the seed endpoint (default: 100)
//	--seed       Create the seats at startup
//	--delay      Think time between reading and writing a ticket
//	--fail-rate  Fraction of bookings answered with 500
//	--unsafe     Drop the version check so races double-book
//	--redis      Redis address for the distributed ticket lock
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"flashtix/testserver"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		port     int
		host     string
		opts     testserver.Options
		seed     bool
		redisURL string
		lockTTL  time.Duration
		logLevel string
	)
	flags := pflag.NewFlagSet("testserver", pflag.ContinueOnError)
	flags.IntVar(&port, "port", 8080, "port to listen on")
	flags.StringVar(&host, "host", "localhost", "host to bind to")
	flags.IntVar(&opts.Seats, "seats", testserver.DefaultSeats, "seats created by the seed endpoint")
	flags.BoolVar(&seed, "seed", false, "create the seats at startup")
	flags.DurationVar(&opts.Delay, "delay", 0, "think time between reading and writing a ticket")
	flags.Float64Var(&opts.FailRate, "fail-rate", 0, "fraction of bookings answered with 500 (0-1)")
	flags.BoolVar(&opts.Unsafe, "unsafe", false, "skip the version check so concurrent bookings all succeed")
	flags.StringVar(&redisURL, "redis", "", "Redis address (host:port) or URL for the ticket lock")
	flags.DurationVar(&lockTTL, "lock-ttl", testserver.DefaultLockTTL, "ticket lock expiry")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.FailRate < 0 || opts.FailRate > 1 {
		return fmt.Errorf("--fail-rate must be within [0, 1], got %v", opts.FailRate)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	opts.Logger = logger

	if redisURL != "" {
		client, err := newRedisClient(redisURL)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = client.Ping(ctx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", redisURL, err)
		}
		opts.Locker = testserver.NewRedisLocker(client, lockTTL)
	}

	server := testserver.New(opts)
	if seed {
		server.Seed()
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	fmt.Println("Flashtix Test Server")
	fmt.Println("====================")
	fmt.Printf("Listening on http://%s\n\n", addr)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health                              - Health check")
	fmt.Println("  POST /api/tickets/seed                    - Create seats once")
	fmt.Println("  POST /api/tickets/book?ticketId=&userId=  - Book a ticket")
	fmt.Println("  GET  /api/tickets                         - List tickets")
	fmt.Println("  GET  /api/tickets/{id}                    - Show one ticket")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(addr)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newRedisClient accepts either host:port or a redis:// URL.
func newRedisClient(addr string) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

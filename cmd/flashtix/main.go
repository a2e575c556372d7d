// Command flashtix races a crowd of synthetic users for one ticket and
// reports how the booking backend resolved the contention.
//
// Usage:
//
//	flashtix [flags]
//
// A correct backend yields exactly one acquired booking; every other actor
// should see a conflict. Run with --expect-one to turn that into an exit
// code.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flashtix/internal/booking"
	"flashtix/internal/collector"
	"flashtix/internal/config"
	"flashtix/internal/core"
	"flashtix/internal/progress"
	"flashtix/internal/ratelimit"
	"flashtix/internal/simulator"

	"github.com/spf13/pflag"
)

const (
	ExitSuccess           = 0
	ExitExpectationFailed = 1
	ExitError             = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configPath string
	url        string
	ticket     int64
	actors     int
	baseActor  int64
	timeout    time.Duration
	rps        int
	output     string
	quiet      bool
	verbose    bool
	seed       bool
	seedURL    string
	expectOne  bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts options
	flags := pflag.NewFlagSet("flashtix", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file")
	flags.StringVar(&opts.url, "url", "", "booking URL template, must contain ${actor}")
	flags.Int64VarP(&opts.ticket, "ticket", "t", config.DefaultTicket, "ticket id to contend for")
	flags.IntVarP(&opts.actors, "actors", "n", config.DefaultActors,
		fmt.Sprintf("number of concurrent users (%d-%d)", simulator.MinActors, simulator.MaxActors))
	flags.Int64Var(&opts.baseActor, "base-actor", config.DefaultBaseActor, "user id of the first actor")
	flags.DurationVar(&opts.timeout, "timeout", config.DefaultTimeout, "per-request timeout")
	flags.IntVar(&opts.rps, "rps", 0, "max booking requests per second (0 = unthrottled)")
	flags.StringVarP(&opts.output, "output", "o", "text", "output format: text, json")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress progress output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log every request and response")
	flags.BoolVar(&opts.seed, "seed", false, "call the backend's seed endpoint before the run")
	flags.StringVar(&opts.seedURL, "seed-url", "", "seed endpoint used by --seed")
	flags.BoolVar(&opts.expectOne, "expect-one", false, "fail unless exactly one actor acquires the ticket")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}

	if opts.output != "text" && opts.output != "json" {
		fmt.Fprintf(stderr, "error: --output must be 'text' or 'json', got %q\n", opts.output)
		return ExitError
	}

	cfg, err := loadConfig(opts, flags)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}

	var debug *booking.DebugLogger
	if opts.verbose {
		debug = booking.NewDebugLogger(stderr)
	}
	client := booking.NewClient(cfg.Booking, booking.Options{
		Debug:   debug,
		Limiter: ratelimit.New(cfg.Booking.RPS, cfg.Booking.Burst),
	})

	bar := progress.NewBar(cfg.Run.Actors, opts.quiet)
	bar.SetOutput(stderr)

	if opts.seed {
		reply, err := client.Seed(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return ExitError
		}
		bar.Printf("Seed: %s", reply)
	}

	bar.Printf("Flashtix starting: %d actors racing for ticket %d", cfg.Run.Actors, cfg.Run.Ticket)

	sim := &simulator.Simulator{
		Booker:    client,
		BaseActor: core.ActorID(cfg.Run.BaseActor),
	}
	report, err := sim.Run(ctx, core.Target(cfg.Run.Ticket), cfg.Run.Actors, bar.Update)
	bar.Stop()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}

	checks := cfg.Expect.Check(report)
	if opts.output == "json" {
		if err := collector.FormatJSON(stdout, report, checks); err != nil {
			fmt.Fprintf(stderr, "error: writing report: %v\n", err)
			return ExitError
		}
	} else {
		collector.FormatText(stdout, report, checks)
	}

	if ctx.Err() != nil {
		if !opts.quiet {
			fmt.Fprintln(stderr, "\nRun interrupted; outstanding attempts were recorded as failures.")
		}
		return ExitSuccess
	}

	if !checks.Passed {
		if opts.output == "text" {
			fmt.Fprintln(stderr, "\nExpectation check failed!")
		}
		return ExitExpectationFailed
	}
	return ExitSuccess
}

// loadConfig reads the config file (or defaults) and applies the flags the
// user set explicitly on top of it.
func loadConfig(opts options, flags *pflag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(opts.configPath); err != nil {
			return nil, err
		}
	}

	if flags.Changed("url") {
		cfg.Booking.URL = opts.url
	}
	if flags.Changed("seed-url") {
		cfg.Booking.SeedURL = opts.seedURL
	}
	if flags.Changed("timeout") {
		cfg.Booking.Timeout = opts.timeout
	}
	if flags.Changed("rps") {
		cfg.Booking.RPS = opts.rps
	}
	if flags.Changed("ticket") || opts.configPath == "" {
		cfg.Run.Ticket = opts.ticket
	}
	if flags.Changed("actors") || opts.configPath == "" {
		cfg.Run.Actors = opts.actors
	}
	if flags.Changed("base-actor") || opts.configPath == "" {
		cfg.Run.BaseActor = opts.baseActor
	}
	if opts.expectOne {
		if cfg.Expect == nil {
			cfg.Expect = &collector.Expectations{}
		}
		one := 1
		cfg.Expect.Acquired = &one
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

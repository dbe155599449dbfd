// Command riskcheck checks one event against the forecast service from the
// command line. It resolves the place name, takes the best match, submits,
// and prints the classification with the hourly rain outlook.
//
// Usage:
//
//	go run ./cmd/riskcheck \
//	  -name "Football Match" -place "London" \
//	  -start 2024-04-26T14:00 -end 2024-04-26T16:00 \
//	  -api http://localhost:8000
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/event-risk-client/internal/adapter/forecast"
	"github.com/couchcryptid/event-risk-client/internal/adapter/openmeteo"
	"github.com/couchcryptid/event-risk-client/internal/config"
	"github.com/couchcryptid/event-risk-client/internal/domain"
	"github.com/couchcryptid/event-risk-client/internal/observability"
	"github.com/couchcryptid/event-risk-client/internal/submission"
)

// errCheckFailed marks a submission that reached the Failed state; its
// message has already been printed.
var errCheckFailed = errors.New("forecast check failed")

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "read .env:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("riskcheck", flag.ContinueOnError)
	name := flags.String("name", "", "event name")
	place := flags.String("place", "", "place name to resolve")
	start := flags.String("start", "", "start time, e.g. 2024-04-26T14:00")
	end := flags.String("end", "", "end time, e.g. 2024-04-26T16:00")
	api := flags.String("api", "", "forecast service base URL (overrides FORECAST_API_URL)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *name == "" || *place == "" || *start == "" || *end == "" {
		flags.Usage()
		return errors.New("missing required flags: -name, -place, -start, -end")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *api != "" {
		cfg.ForecastBaseURL = strings.TrimRight(*api, "/")
	}
	if cfg.ForecastBaseURL == "" {
		return errors.New("no forecast service: set -api or FORECAST_API_URL")
	}

	logger := observability.NewCLILogger(cfg)
	metrics := observability.NewUnregisteredMetrics()

	geocoder := openmeteo.NewClient(cfg, metrics, logger)
	candidates, err := geocoder.Search(ctx, *place)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", *place, err)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no place matches %q", *place)
	}
	best := candidates[0]

	var draft domain.EventDraft
	draft.SetName(*name)
	draft.SetLocation(domain.SelectionFromCandidate(best))
	draft.SetStartTime(*start)
	draft.SetEndTime(*end)

	orch := submission.New(
		forecast.NewClient(cfg.ForecastBaseURL, cfg.ForecastTimeout, logger),
		submission.Options{SessionID: "cli"},
		logger,
		metrics,
	)
	state, err := orch.SubmitDraft(ctx, draft)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s (%.4f, %.4f)\n", best.DisplayName, best.Latitude, best.Longitude)
	return printState(stdout, state)
}

func printState(w io.Writer, state submission.State) error {
	switch st := state.(type) {
	case submission.Succeeded:
		printResult(w, domain.PresentResult(st.Result))
		return nil
	case submission.Failed:
		fmt.Fprintf(w, "Error: %s\n", st.Message)
		return errCheckFailed
	default:
		return fmt.Errorf("unexpected submission state %q", state.Status())
	}
}

func printResult(w io.Writer, view domain.ResultView) {
	fmt.Fprintf(w, "%s [%s]\n", view.Presentation.Classification, view.Presentation.Icon)
	fmt.Fprintln(w, view.Result.Summary)
	for _, r := range view.Result.Reason {
		fmt.Fprintf(w, "  - %s\n", r)
	}
	if len(view.Hours) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nTIME\tRAIN\tWIND\tTEMP")
	for _, h := range view.Hours {
		temp := "-"
		if h.TemperatureC != nil {
			temp = fmt.Sprintf("%.1f°C", *h.TemperatureC)
		}
		fmt.Fprintf(tw, "%s\t%d%% (%s)\t%.0f km/h\t%s\n", h.Time, h.RainProb, h.RainTier, h.WindKmh, temp)
	}
	tw.Flush() //nolint:errcheck // writes to stdout
}

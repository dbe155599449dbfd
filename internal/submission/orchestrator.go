// Package submission drives the single forecast request behind an event
// check and owns its Idle/Loading/Succeeded/Failed lifecycle.
package submission

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/event-risk-client/internal/domain"
	"github.com/couchcryptid/event-risk-client/internal/observability"
)

// GenericFailureMessage is shown when the forecast service fails without
// saying why.
const GenericFailureMessage = "Something went wrong"

// DefaultRecordTimeout bounds each Recorder call when Options leaves it zero.
const DefaultRecordTimeout = 5 * time.Second

// ErrSubmissionInFlight is returned when Submit is called while Loading.
var ErrSubmissionInFlight = errors.New("a submission is already in flight")

// Recorder receives every finished submission. The context it gets carries
// the record timeout and Record must return once it is done.
type Recorder interface {
	Record(ctx context.Context, outcome domain.SubmissionOutcome)
}

// Orchestrator runs at most one forecast request at a time.
type Orchestrator struct {
	client    domain.ForecastClient
	sessionID string
	recorder  Recorder
	recordTTL time.Duration
	onChange  func(State)
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu    sync.Mutex
	state State
}

// Options are the optional collaborators of an Orchestrator.
type Options struct {
	SessionID string

	// Recorder receives finished submissions; nil disables recording.
	Recorder Recorder

	// RecordTimeout bounds each Recorder call. Zero means DefaultRecordTimeout.
	RecordTimeout time.Duration

	// OnChange is called after each transition, outside the lock.
	OnChange func(State)

	Clock clockwork.Clock
}

// New creates an Orchestrator in the Idle state.
func New(client domain.ForecastClient, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Orchestrator {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.RecordTimeout <= 0 {
		opts.RecordTimeout = DefaultRecordTimeout
	}
	return &Orchestrator{
		client:    client,
		sessionID: opts.SessionID,
		recorder:  opts.Recorder,
		recordTTL: opts.RecordTimeout,
		onChange:  opts.OnChange,
		clock:     opts.Clock,
		logger:    logger,
		metrics:   metrics,
		state:     Idle{},
	}
}

// State returns the active state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SubmitDraft validates the draft and submits its payload. An incomplete
// draft returns domain.ErrInvalidDraft without touching the state.
func (o *Orchestrator) SubmitDraft(ctx context.Context, draft domain.EventDraft) (State, error) {
	req, err := draft.ToSubmissionPayload()
	if err != nil {
		return o.State(), err
	}
	return o.Submit(ctx, req)
}

// Submit moves to Loading, discarding any previous result, calls the forecast
// service once, and returns the terminal state. It blocks until the call
// finishes. While another submission is Loading it returns
// ErrSubmissionInFlight and changes nothing.
func (o *Orchestrator) Submit(ctx context.Context, req domain.EventRequest) (State, error) {
	o.mu.Lock()
	if current, busy := o.state.(Loading); busy {
		o.mu.Unlock()
		o.metrics.SubmissionRejected.Inc()
		o.logger.Debug("submission rejected while loading", "session_id", o.sessionID)
		return current, ErrSubmissionInFlight
	}
	loading := Loading{Request: req}
	o.state = loading
	o.mu.Unlock()
	o.notify(loading)

	o.logger.Info("submitting event forecast",
		"session_id", o.sessionID,
		"event", req.Name,
		"lat", req.Location.Latitude,
		"lon", req.Location.Longitude,
		"start_time", req.StartTime,
		"end_time", req.EndTime,
	)

	start := o.clock.Now()
	result, err := o.client.Forecast(ctx, req)
	elapsed := o.clock.Since(start)

	var next State
	var outcome domain.SubmissionOutcome
	if err != nil {
		msg := FailureMessage(err)
		next = Failed{Message: msg}
		outcome = domain.NewFailedOutcome(o.sessionID, req, msg, elapsed)
		o.logger.Warn("event forecast failed", "session_id", o.sessionID, "error", err)
	} else {
		next = Succeeded{Result: result}
		outcome = domain.NewSucceededOutcome(o.sessionID, req, result, elapsed)
		o.logger.Info("event forecast received",
			"session_id", o.sessionID,
			"classification", result.Classification,
			"hours", len(result.EventWindowForecast),
		)
	}

	o.mu.Lock()
	o.state = next
	o.mu.Unlock()
	o.notify(next)

	o.metrics.Submissions.WithLabelValues(outcome.Outcome).Inc()
	o.metrics.SubmissionDuration.Observe(elapsed.Seconds())
	if o.recorder != nil {
		// Outcomes are recorded even when the caller has gone away, but
		// never for longer than the record timeout.
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.recordTTL)
		o.recorder.Record(recordCtx, outcome)
		cancel()
	}
	return next, nil
}

// FailureMessage extracts the user-facing message for a failed call.
// Service errors without a message map to GenericFailureMessage. Any other
// error reports its innermost cause, without the wrapping context added on
// the way up.
func FailureMessage(err error) string {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return GenericFailureMessage
	}
	for next := errors.Unwrap(err); next != nil; next = errors.Unwrap(err) {
		err = next
	}
	return err.Error()
}

func (o *Orchestrator) notify(s State) {
	if o.onChange != nil {
		o.onChange(s)
	}
}

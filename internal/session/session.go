// Package session composes the location resolver, the event form, and the
// submission orchestrator behind one UI and publishes view snapshots.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/event-risk-client/internal/domain"
	"github.com/couchcryptid/event-risk-client/internal/observability"
	"github.com/couchcryptid/event-risk-client/internal/resolver"
	"github.com/couchcryptid/event-risk-client/internal/submission"
)

// View is everything a UI needs to render one frame.
type View struct {
	SessionID  string            `json:"session_id"`
	Location   resolver.Snapshot `json:"location"`
	Draft      domain.EventDraft `json:"draft"`
	CanSubmit  bool              `json:"can_submit"`
	Submission submission.View   `json:"submission"`
}

// Session holds the state of one UI. The form's location follows the
// resolver: typing or clearing drops it and selecting a suggestion sets it.
// Coordinates may also be entered directly.
type Session struct {
	id           string
	resolver     *resolver.Resolver
	orchestrator *submission.Orchestrator
	publish      func(View)
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	// set from the moment a submit is accepted until its goroutine finishes
	submitting atomic.Bool

	mu    sync.Mutex
	draft domain.EventDraft

	pubMu sync.Mutex
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Geocoder domain.Geocoder
	Forecast domain.ForecastClient
	Recorder submission.Recorder
	Resolver resolver.Settings // OnChange is ignored
	Logger   *slog.Logger
	Metrics  *observability.Metrics

	// RecordTimeout bounds each outcome record; zero uses the orchestrator default.
	RecordTimeout time.Duration
}

// New creates a session. ctx scopes its submissions and may carry the host
// page origin for the forecast client. publish receives a fresh View after
// every change; it is called from several goroutines but never concurrently.
func New(ctx context.Context, deps Deps, publish func(View)) *Session {
	id := uuid.NewString()
	logger := deps.Logger.With("session_id", id)
	ctx, cancel := context.WithCancel(ctx)

	s := &Session{
		id:      id,
		publish: publish,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	settings := deps.Resolver
	settings.OnChange = func(resolver.Snapshot) { s.emit() }
	s.resolver = resolver.New(deps.Geocoder, settings, logger, deps.Metrics)

	s.orchestrator = submission.New(deps.Forecast, submission.Options{
		SessionID:     id,
		Recorder:      deps.Recorder,
		RecordTimeout: deps.RecordTimeout,
		OnChange:      func(submission.State) { s.emit() },
		Clock:         settings.Clock,
	}, logger, deps.Metrics)

	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Apply handles one UI event. Submissions run in the background; their
// progress arrives through publish.
func (s *Session) Apply(ev Event) error {
	if s.closed.Load() {
		return context.Canceled
	}

	switch ev.Type {
	case EventQuery:
		s.updateDraft(func(d *domain.EventDraft) { d.ClearLocation() })
		s.resolver.SetQuery(ev.Value)

	case EventSelect:
		c, ok := s.findSuggestion(ev.CandidateID)
		if !ok {
			return invalidEvent("no suggestion with id %d", ev.CandidateID)
		}
		s.updateDraft(func(d *domain.EventDraft) { d.SetLocation(domain.SelectionFromCandidate(c)) })
		s.resolver.Select(c)

	case EventClear:
		s.updateDraft(func(d *domain.EventDraft) { d.ClearLocation() })
		s.resolver.Clear()

	case EventDismiss:
		s.resolver.Dismiss()

	case EventFocus:
		s.resolver.Focus()

	case EventName:
		s.updateDraft(func(d *domain.EventDraft) { d.SetName(ev.Value) })
		s.emit()

	case EventStart:
		s.updateDraft(func(d *domain.EventDraft) { d.SetStartTime(ev.Value) })
		s.emit()

	case EventEnd:
		s.updateDraft(func(d *domain.EventDraft) { d.SetEndTime(ev.Value) })
		s.emit()

	case EventCoordinates:
		if ev.Latitude == nil || ev.Longitude == nil {
			return invalidEvent("coordinates need latitude and longitude")
		}
		s.updateDraft(func(d *domain.EventDraft) { d.SetCoordinates(*ev.Latitude, *ev.Longitude) })
		s.emit()

	case EventSubmit:
		return s.submit()

	default:
		return invalidEvent("unknown type %q", ev.Type)
	}
	return nil
}

// View builds the current view.
func (s *Session) View() View {
	draft := s.Draft()
	state := s.orchestrator.State()
	return View{
		SessionID:  s.id,
		Location:   s.resolver.Snapshot(),
		Draft:      draft,
		CanSubmit:  draft.IsValid() && state.Status() != submission.StatusLoading,
		Submission: submission.ViewOf(state),
	}
}

// Draft returns a copy of the form fields.
func (s *Session) Draft() domain.EventDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.draft
	if d.Location != nil {
		loc := *d.Location
		d.Location = &loc
	}
	return d
}

// Close stops pending lookups, cancels an in-flight submission, and waits
// for background work. No views are published afterwards.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.resolver.Close()
	s.cancel()
	s.wg.Wait()
}

func (s *Session) submit() error {
	draft := s.Draft()
	if !draft.IsValid() {
		return domain.ErrInvalidDraft
	}
	if !s.submitting.CompareAndSwap(false, true) {
		return submission.ErrSubmissionInFlight
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.submitting.Store(false)
		if _, err := s.orchestrator.SubmitDraft(s.ctx, draft); err != nil {
			s.logger.Debug("submission not started", "error", err)
		}
	}()
	return nil
}

func (s *Session) findSuggestion(id int64) (domain.PlaceCandidate, bool) {
	for _, c := range s.resolver.Snapshot().Suggestions {
		if c.ID == id {
			return c, true
		}
	}
	return domain.PlaceCandidate{}, false
}

func (s *Session) updateDraft(fn func(*domain.EventDraft)) {
	s.mu.Lock()
	fn(&s.draft)
	s.mu.Unlock()
}

// emit publishes the latest view. Views are rebuilt under pubMu so a slow
// callback can never deliver an older state after a newer one.
func (s *Session) emit() {
	if s.publish == nil || s.closed.Load() {
		return
	}
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.publish(s.View())
}

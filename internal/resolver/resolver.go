// Package resolver turns free-text place input into a selected coordinate
// pair. Lookups are debounced, and every lookup carries a sequence number so
// a slow response can never overwrite the result of a newer one.
package resolver

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/event-risk-client/internal/domain"
	"github.com/couchcryptid/event-risk-client/internal/observability"
)

// Default behaviour when Settings leaves a field zero.
const (
	DefaultDebounce       = 300 * time.Millisecond
	DefaultMinQueryLength = 2
)

// Settings configures a Resolver.
type Settings struct {
	Debounce       time.Duration
	MinQueryLength int
	Clock          clockwork.Clock

	// OnChange is called after every state change, outside the resolver's
	// lock, with the state at that moment.
	OnChange func(Snapshot)
}

// Snapshot is a copy of the resolver state.
type Snapshot struct {
	Revision           uint64                    `json:"revision"`
	Query              string                    `json:"query"`
	Suggestions        []domain.PlaceCandidate   `json:"suggestions"`
	SuggestionsVisible bool                      `json:"suggestions_visible"`
	Searching          bool                      `json:"searching"`
	Selection          *domain.LocationSelection `json:"selection,omitempty"`
}

// Resolver owns the query text, pending and in-flight lookups, and the
// current selection for one location input.
type Resolver struct {
	geocoder domain.Geocoder
	clock    clockwork.Clock
	debounce time.Duration
	minLen   int
	onChange func(Snapshot)
	logger   *slog.Logger
	metrics  *observability.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	query       string
	suggestions []domain.PlaceCandidate
	visible     bool
	searching   bool
	selection   *domain.LocationSelection
	timer       clockwork.Timer
	pending     uint64 // identifies the scheduled lookup; advanced whenever the timer is stopped
	seq         uint64 // advanced on every issued lookup and every invalidating action
	revision    uint64
}

// New creates a Resolver. Call Close to release pending work.
func New(geocoder domain.Geocoder, s Settings, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	if s.Debounce <= 0 {
		s.Debounce = DefaultDebounce
	}
	if s.MinQueryLength <= 0 {
		s.MinQueryLength = DefaultMinQueryLength
	}
	if s.Clock == nil {
		s.Clock = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		geocoder: geocoder,
		clock:    s.Clock,
		debounce: s.Debounce,
		minLen:   s.MinQueryLength,
		onChange: s.OnChange,
		logger:   logger,
		metrics:  metrics,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetQuery records new query text. Any prior selection is dropped at once.
// Queries shorter than the minimum length clear the suggestions; longer ones
// schedule a lookup after the debounce interval, replacing any scheduled one.
func (r *Resolver) SetQuery(text string) {
	r.mu.Lock()
	r.query = text
	r.selection = nil

	if utf8.RuneCountInString(text) < r.minLen {
		r.invalidateLocked()
		r.suggestions = nil
		r.visible = false
	} else {
		// A lookup already in flight stays current until a newer one is issued.
		r.stopTimerLocked()
		scheduled := r.pending
		r.timer = r.clock.AfterFunc(r.debounce, func() { r.fire(scheduled) })
	}
	snap := r.commitLocked()
	r.mu.Unlock()

	r.notify(snap)
}

// Select resolves the candidate: it becomes the selection, its label becomes
// the query, and the suggestion panel closes. Selecting the same candidate
// again leaves the state unchanged.
func (r *Resolver) Select(c domain.PlaceCandidate) {
	sel := domain.SelectionFromCandidate(c)

	r.mu.Lock()
	r.invalidateLocked()
	r.selection = &sel
	r.query = sel.Label
	r.suggestions = nil
	r.visible = false
	snap := r.commitLocked()
	r.mu.Unlock()

	r.notify(snap)
}

// Clear resets query, selection, and suggestions and cancels a pending lookup.
func (r *Resolver) Clear() {
	r.mu.Lock()
	r.invalidateLocked()
	r.query = ""
	r.selection = nil
	r.suggestions = nil
	r.visible = false
	snap := r.commitLocked()
	r.mu.Unlock()

	r.notify(snap)
}

// Dismiss hides the suggestion panel, e.g. on interaction outside the input.
// Suggestions are kept so Focus can show them again.
func (r *Resolver) Dismiss() {
	r.updateVisible(func() bool { return false })
}

// Focus shows the suggestion panel again if there is anything to show.
func (r *Resolver) Focus() {
	r.updateVisible(func() bool { return len(r.suggestions) > 0 })
}

func (r *Resolver) updateVisible(next func() bool) {
	r.mu.Lock()
	v := next()
	if r.visible == v {
		r.mu.Unlock()
		return
	}
	r.visible = v
	snap := r.commitLocked()
	r.mu.Unlock()

	r.notify(snap)
}

// Snapshot returns a copy of the current state.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Close cancels the pending lookup and any lookup in flight. Responses that
// arrive afterwards are discarded.
func (r *Resolver) Close() {
	r.mu.Lock()
	r.invalidateLocked()
	r.mu.Unlock()
	r.cancel()
}

// fire runs when the debounce timer expires. scheduled is the pending token
// at scheduling time; a later edit or invalidation makes this firing obsolete.
func (r *Resolver) fire(scheduled uint64) {
	r.mu.Lock()
	if r.pending != scheduled || r.ctx.Err() != nil {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	r.seq++
	id := r.seq
	query := r.query
	r.searching = true
	snap := r.commitLocked()
	r.mu.Unlock()

	r.metrics.LookupsIssued.Inc()
	r.logger.Debug("location lookup issued", "seq", id, "query", query)
	r.notify(snap)

	go r.lookup(id, query)
}

func (r *Resolver) lookup(id uint64, query string) {
	results, err := r.geocoder.Search(r.ctx, query)

	r.mu.Lock()
	if id != r.seq {
		current := r.seq
		r.mu.Unlock()
		r.metrics.LookupsDiscarded.Inc()
		r.logger.Debug("discarding stale lookup", "seq", id, "current_seq", current, "query", query)
		return
	}

	r.searching = false
	if err != nil {
		r.suggestions = nil
		r.visible = false
	} else {
		r.suggestions = results
		r.visible = len(results) > 0
	}
	snap := r.commitLocked()
	r.mu.Unlock()

	if err != nil {
		r.metrics.LookupErrors.Inc()
		r.logger.Warn("location lookup failed", "seq", id, "query", query, "error", err)
	}
	r.notify(snap)
}

// invalidateLocked cancels the scheduled lookup and advances the sequence so
// that any lookup already in flight is treated as stale.
func (r *Resolver) invalidateLocked() {
	r.stopTimerLocked()
	r.seq++
	r.searching = false
}

// stopTimerLocked cancels the scheduled lookup without touching the one in
// flight.
func (r *Resolver) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.pending++
}

func (r *Resolver) commitLocked() Snapshot {
	r.revision++
	return r.snapshotLocked()
}

func (r *Resolver) snapshotLocked() Snapshot {
	snap := Snapshot{
		Revision:           r.revision,
		Query:              r.query,
		Suggestions:        slices.Clone(r.suggestions),
		SuggestionsVisible: r.visible,
		Searching:          r.searching,
	}
	if r.selection != nil {
		sel := *r.selection
		snap.Selection = &sel
	}
	return snap
}

func (r *Resolver) notify(s Snapshot) {
	if r.onChange != nil {
		r.onChange(s)
	}
}

package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/event-risk-client/internal/domain"
	"github.com/couchcryptid/event-risk-client/internal/observability"
)

// --- gated geocoder: each Search blocks until the test replies ---

type searchReply struct {
	results []domain.PlaceCandidate
	err     error
}

type searchCall struct {
	query string
	reply chan searchReply
}

func (c searchCall) respond(results ...domain.PlaceCandidate) {
	c.reply <- searchReply{results: results}
}

func (c searchCall) fail(err error) {
	c.reply <- searchReply{err: err}
}

type gatedGeocoder struct {
	calls chan searchCall
}

func newGatedGeocoder() *gatedGeocoder {
	return &gatedGeocoder{calls: make(chan searchCall, 16)}
}

func (g *gatedGeocoder) Search(ctx context.Context, query string) ([]domain.PlaceCandidate, error) {
	c := searchCall{query: query, reply: make(chan searchReply, 1)}
	g.calls <- c
	select {
	case r := <-c.reply:
		return r.results, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedGeocoder) next(t *testing.T) searchCall {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(time.Second):
		t.Fatal("expected a geocoder lookup")
		return searchCall{}
	}
}

func (g *gatedGeocoder) assertNoCall(t *testing.T) {
	t.Helper()
	select {
	case c := <-g.calls:
		t.Fatalf("unexpected lookup for %q", c.query)
	case <-time.After(50 * time.Millisecond):
	}
}

// --- helpers ---

var london = domain.NewPlaceCandidate(2643743, "London", "", "UK", 51.51, -0.13)

func newTestResolver(t *testing.T, geo domain.Geocoder) (*Resolver, *clockwork.FakeClock, *observability.Metrics) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	metrics := observability.NewMetricsForTesting()
	r := New(geo, Settings{Clock: clock}, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)
	t.Cleanup(r.Close)
	return r, clock, metrics
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond, msg)
}

// --- tests ---

func TestResolver_ShortQueryIssuesNoLookup(t *testing.T) {
	geo := newGatedGeocoder()
	r, clock, metrics := newTestResolver(t, geo)

	for _, q := range []string{"", "L", "é"} {
		r.SetQuery(q)
		clock.Advance(time.Second)

		snap := r.Snapshot()
		assert.Equal(t, q, snap.Query)
		assert.Empty(t, snap.Suggestions)
		assert.False(t, snap.SuggestionsVisible)
	}

	geo.assertNoCall(t)
	assert.Zero(t, testutil.ToFloat64(metrics.LookupsIssued))
}

func TestResolver_ShortQueryClearsExistingSuggestions(t *testing.T) {
	geo := newGatedGeocoder()
	r, clock, _ := newTestResolver(t, geo)

	r.SetQuery("Lon")
	clock.Advance(DefaultDebounce)
	geo.next(t).respond(london)
	eventually(t, func() bool { return len(r.Snapshot().Suggestions) == 1 }, "suggestions applied")

	r.SetQuery("L")

	snap := r.Snapshot()
	assert.Empty(t, snap.Suggestions)
	assert.False(t, snap.SuggestionsVisible)
}

func TestResolver_DebounceKeepsOnlyLatestQuery(t *testing.T) {
	geo := newGatedGeocoder()
	r, clock, metrics := newTestResolver(t, geo)

	r.SetQuery("Lo")
	clock.Advance(DefaultDebounce - time.Millisecond)
	r.SetQuery("Lon")
	clock.Advance(DefaultDebounce - time.Millisecond)
	geo.assertNoCall(t)

	clock.Advance(time.Millisecond)

	call := geo.next(t)
	assert.Equal(t, "Lon", call.query)
	geo.assertNoCall(t)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.LookupsIssued))
}

func TestResolver_SelectScenario(t *testing.T) {
	geo := newGatedGeocoder()
	r, clock, _ := newTestResolver(t, geo)

	r.SetQuery("Lon")
	clock.Advance(DefaultDebounce)
	call := geo.next(t)
	eventually(t, func() bool { return r.Snapshot().Searching }, "searching while in flight")

	call.respond(london)
	eventually(t, func() bool { return r.Snapshot().SuggestionsVisible }, "suggestions shown")

	snap := r.Snapshot()
	require.Len(t, snap.Suggestions, 1)
	assert.False(t, snap.Searching)

	r.Select(snap.Suggestions[0])

	snap = r.Snapshot()
	require.NotNil(t, snap.Selection)
	assert.Equal(t, 51.51, snap.Selection.Latitude)
	assert.Equal(t, -0.13, snap.Selection.Longitude)
	assert.Equal(t, "London, UK", snap.Query)
	assert.Empty(t, snap.Suggestions)
	assert.False(t, snap.SuggestionsVisible)
}

func TestResolver_SelectIsIdempotent(t *testing.T) {
	r, _, _ := newTestResolver(t, newGatedGeocoder())

	r.Select(london)
	first := r.Snapshot()
	r.Select(london)
	second := r.Snapshot()

	first.Revision, second.Revision = 0, 0
	assert.Equal(t, first, second)
}

func TestResolver_StaleResponseIsDiscarded(t *testing.T) {
	geo := newGatedGeocoder()
	r, clock, metrics := newTestResolver(t, geo)

	r.SetQuery("Lon")
	clock.Advance(DefaultDebounce)
	older := geo.next(t)

	r.SetQuery("Lond")
	clock.Advance(DefaultDebounce)
	newer := geo.next(t)
	require.Equal(t, "Lond", newer.query)

	londonderry := domain.NewPlaceCandidate(2643736, "Londonderry", "Northern Ireland", "UK", 54.99, -7.31)

	// The newer lookup completes first.
	newer.respond(london)
	eventually(t, func() bool { return len(r.Snapshot().Suggestions) == 1 }, "newer response applied")

	// The older one arrives late and must not overwrite it.
	older.respond(londonderry)
	eventually(t, func() bool { return testutil.ToFloat64(metrics.LookupsDiscarded) == 1 }, "older response discarded")

	snap := r.Snapshot()
	require.Len(t, snap.Suggestions, 1)
	assert.Equal(t, "London", snap.Suggestions[0].Name)
	assert.Equal(t, "Lond", snap.Query)
}

func TestResolver_EditKeepsLatestIssuedLookupCurrent(t *testing.T) {
	geo := newGatedGeocoder()
	r, clock, metrics := newTestResolver(t, geo)

	r.SetQuery("Lon")
	clock.Advance(DefaultDebounce)
	inFlight := geo.next(t)

	// Typing schedules a new lookup but does not supersede the one in flight.
	r.SetQuery("Lond")
	assert.True(t, r.Snapshot().Searching)

	inFlight.respond(london)
	eventually(t, func() bool { return len(r.Snapshot().Suggestions) == 1 }, "in-flight response applied")
	assert.Zero(t, testutil.ToFloat64(metrics.LookupsDiscarded))

	snap := r.Snapshot()
	assert.True(t, snap.SuggestionsVisible)
	assert.False(t, snap.Searching)
	assert.Equal(t, "Lond", snap.Query)

	// The debounced lookup for the edit still fires.
	clock.Advance(DefaultDebounce)
	assert.Equal(t, "Lond", geo.next(t).query)
}

func TestResolver_EditAfterSelectionClearsCoordinates(t *testing.T) {
	r, _, _ := newTestResolver(t, newGatedGeocoder())

	r.Select(london)
	require.NotNil(t, r.Snapshot().Selection)

	r.SetQuery("London, UKx")

	snap := r.Snapshot()
	assert.Nil(t, snap.Selection)
	assert.Equal(t, "London, UKx", snap.Query)
}

func TestResolver_ResponseAfterSelectIsDiscarded(t *testing.T) {
	geo := newGatedGeocoder()
	r, clock, metrics := newTestResolver(t, geo)

	r.SetQuery("Lon")
	clock.Advance(DefaultDebounce)
	call := geo.next(t)

	r.Select(london)
	call.respond(london, london)
	eventually(t, func() bool { return testutil.ToFloat64(metrics.LookupsDiscarded) == 1 }, "late response discarded")

	snap := r.Snapshot()
	assert.Empty(t, snap.Suggestions)
	assert.False(t, snap.SuggestionsVisible)
	assert.NotNil(t, snap.Selection)
}

func TestResolver_LookupFailureDegradesSilently(t *testing.T) {
	geo := newGatedGeocoder()
	r, clock, metrics := newTestResolver(t, geo)

	r.SetQuery("Lon")
	clock.Advance(DefaultDebounce)
	geo.next(t).respond(london)
	eventually(t, func() bool { return len(r.Snapshot().Suggestions) == 1 }, "suggestions applied")

	r.SetQuery("Lond")
	clock.Advance(DefaultDebounce)
	geo.next(t).fail(errors.New("connection reset"))
	eventually(t, func() bool { return testutil.ToFloat64(metrics.LookupErrors) == 1 }, "failure recorded")

	snap := r.Snapshot()
	assert.Empty(t, snap.Suggestions)
	assert.False(t, snap.SuggestionsVisible)
	assert.False(t, snap.Searching)
	assert.Equal(t, "Lond", snap.Query)
	assert.Nil(t, snap.Selection)
}

func TestResolver_ClearCancelsPendingLookup(t *testing.T) {
	geo := newGatedGeocoder()
	r, clock, _ := newTestResolver(t, geo)

	r.SetQuery("Lon")
	r.Clear()
	clock.Advance(DefaultDebounce)

	geo.assertNoCall(t)
	assert.Equal(t, Snapshot{Revision: r.Snapshot().Revision}, r.Snapshot())
}

func TestResolver_ClearResetsEverything(t *testing.T) {
	geo := newGatedGeocoder()
	r, clock, _ := newTestResolver(t, geo)

	r.SetQuery("Lon")
	clock.Advance(DefaultDebounce)
	geo.next(t).respond(london)
	eventually(t, func() bool { return r.Snapshot().SuggestionsVisible }, "suggestions shown")
	r.Select(london)

	r.Clear()

	snap := r.Snapshot()
	assert.Empty(t, snap.Query)
	assert.Nil(t, snap.Selection)
	assert.Empty(t, snap.Suggestions)
	assert.False(t, snap.SuggestionsVisible)
}

func TestResolver_DismissAndFocus(t *testing.T) {
	geo := newGatedGeocoder()
	r, clock, _ := newTestResolver(t, geo)

	r.Focus()
	assert.False(t, r.Snapshot().SuggestionsVisible, "nothing to show yet")

	r.SetQuery("Lon")
	clock.Advance(DefaultDebounce)
	geo.next(t).respond(london)
	eventually(t, func() bool { return r.Snapshot().SuggestionsVisible }, "suggestions shown")

	r.Dismiss()
	snap := r.Snapshot()
	assert.False(t, snap.SuggestionsVisible)
	assert.Len(t, snap.Suggestions, 1, "dismiss keeps the data")

	r.Focus()
	assert.True(t, r.Snapshot().SuggestionsVisible)
}

func TestResolver_EmptyResultHidesPanel(t *testing.T) {
	geo := newGatedGeocoder()
	r, clock, _ := newTestResolver(t, geo)

	r.SetQuery("Xyzzy")
	clock.Advance(DefaultDebounce)
	geo.next(t).respond()
	eventually(t, func() bool { return !r.Snapshot().Searching }, "lookup finished")

	assert.False(t, r.Snapshot().SuggestionsVisible)
}

func TestResolver_OnChangeReceivesSnapshots(t *testing.T) {
	geo := newGatedGeocoder()
	clock := clockwork.NewFakeClock()
	changes := make(chan Snapshot, 16)
	r := New(geo, Settings{Clock: clock, OnChange: func(s Snapshot) { changes <- s }},
		slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	t.Cleanup(r.Close)

	r.SetQuery("Lon")
	first := <-changes
	assert.Equal(t, "Lon", first.Query)

	clock.Advance(DefaultDebounce)
	issued := <-changes
	assert.True(t, issued.Searching)
	assert.Greater(t, issued.Revision, first.Revision)
}

func TestResolver_CloseDiscardsInFlight(t *testing.T) {
	geo := newGatedGeocoder()
	r, clock, metrics := newTestResolver(t, geo)

	r.SetQuery("Lon")
	clock.Advance(DefaultDebounce)
	geo.next(t)

	r.Close()
	eventually(t, func() bool { return testutil.ToFloat64(metrics.LookupsDiscarded) == 1 }, "cancelled lookup discarded")
	assert.Empty(t, r.Snapshot().Suggestions)
}

package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/siteopt/internal/metrics"
	"github.com/sells-group/siteopt/internal/model"
	"github.com/sells-group/siteopt/pkg/geocode"
)

// fakeClock records timers and fires them only when told to.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	mu      sync.Mutex
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{d: d, f: f}
	c.mu.Lock()
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	return t
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// FireAll runs every timer that is still armed.
func (c *fakeClock) FireAll() {
	c.mu.Lock()
	timers := append([]*fakeTimer(nil), c.timers...)
	c.mu.Unlock()

	for _, t := range timers {
		t.mu.Lock()
		armed := !t.stopped && !t.fired
		t.fired = true
		t.mu.Unlock()
		if armed {
			t.f()
		}
	}
}

// Pending returns the number of armed timers.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		t.mu.Lock()
		if !t.stopped && !t.fired {
			n++
		}
		t.mu.Unlock()
	}
	return n
}

type mockSuggester struct {
	mock.Mock
}

func (m *mockSuggester) Suggest(ctx context.Context, query string) ([]geocode.Suggestion, error) {
	args := m.Called(ctx, query)
	var out []geocode.Suggestion
	if v := args.Get(0); v != nil {
		out = v.([]geocode.Suggestion)
	}
	return out, args.Error(1)
}

func suggestions(labels ...string) []geocode.Suggestion {
	out := make([]geocode.Suggestion, len(labels))
	for i, l := range labels {
		out[i] = geocode.Suggestion{
			ID:          "place." + l,
			Label:       l,
			Coordinates: model.LatLng{Lat: 14.5 + float64(i)/100, Lon: 121},
		}
	}
	return out
}

func newTestSession(s Suggester, opts ...Option) (*Session, *fakeClock) {
	clock := &fakeClock{}
	sess := New(s, append([]Option{WithClock(clock)}, opts...)...)
	return sess, clock
}

func stateIs(sess *Session, want State) func() bool {
	return func() bool { return sess.Snapshot().State == want }
}

func TestSession_CoalescesKeystrokes(t *testing.T) {
	sugg := &mockSuggester{}
	sugg.On("Suggest", mock.Anything, "Manila Bay").Return(suggestions("Manila Bay, Philippines"), nil).Once()

	sess, clock := newTestSession(sugg)
	defer sess.Close()

	sess.Input("Manila")
	sess.Input("Manila B")
	sess.Input("Manila Bay")
	assert.Equal(t, Debouncing, sess.Snapshot().State)
	assert.Equal(t, 1, clock.Pending())

	clock.FireAll()
	sess.Wait()

	snap := sess.Snapshot()
	assert.Equal(t, Done, snap.State)
	assert.Equal(t, uint64(1), snap.Seq)
	require.Len(t, snap.Suggestions, 1)
	assert.Equal(t, "Manila Bay, Philippines", snap.Suggestions[0].Label)
	sugg.AssertNumberOfCalls(t, "Suggest", 1)
	sugg.AssertExpectations(t)
}

func TestSession_UsesConfiguredDelay(t *testing.T) {
	sess, clock := newTestSession(&mockSuggester{}, WithDelay(250*time.Millisecond))
	defer sess.Close()

	sess.Input("Pasig")
	require.Len(t, clock.timers, 1)
	assert.Equal(t, 250*time.Millisecond, clock.timers[0].d)

	def, clock2 := newTestSession(&mockSuggester{})
	defer def.Close()
	def.Input("Pasig")
	assert.Equal(t, DefaultDelay, clock2.timers[0].d)
}

func TestSession_StaleSuccessDiscarded(t *testing.T) {
	release := make(chan time.Time)
	sugg := &mockSuggester{}
	sugg.On("Suggest", mock.Anything, "Manila").WaitUntil(release).Return(suggestions("Manila (old)"), nil)
	sugg.On("Suggest", mock.Anything, "Quezon").Return(suggestions("Quezon City"), nil)

	before := testutil.ToFloat64(metrics.SearchResponsesTotal.WithLabelValues("stale"))

	sess, clock := newTestSession(sugg)
	defer sess.Close()

	sess.Input("Manila")
	clock.FireAll()
	sess.Input("Quezon")
	clock.FireAll()

	require.Eventually(t, stateIs(sess, Done), time.Second, time.Millisecond)
	close(release)
	sess.Wait()

	snap := sess.Snapshot()
	assert.Equal(t, Done, snap.State)
	assert.Equal(t, uint64(2), snap.Seq)
	require.Len(t, snap.Suggestions, 1)
	assert.Equal(t, "Quezon City", snap.Suggestions[0].Label)
	assert.InDelta(t, before+1, testutil.ToFloat64(metrics.SearchResponsesTotal.WithLabelValues("stale")), 1e-9)
}

func TestSession_StaleFailureDiscarded(t *testing.T) {
	release := make(chan time.Time)
	sugg := &mockSuggester{}
	sugg.On("Suggest", mock.Anything, "Makati").WaitUntil(release).Return(nil, errors.New("connection reset"))
	sugg.On("Suggest", mock.Anything, "Makati City").Return(suggestions("Makati City, Metro Manila"), nil)

	sess, clock := newTestSession(sugg)
	defer sess.Close()

	sess.Input("Makati")
	clock.FireAll()
	sess.Input("Makati City")
	clock.FireAll()

	require.Eventually(t, stateIs(sess, Done), time.Second, time.Millisecond)
	close(release)
	sess.Wait()

	snap := sess.Snapshot()
	assert.Equal(t, Done, snap.State)
	assert.NoError(t, snap.Err)
	assert.Len(t, snap.Suggestions, 1)
}

func TestSession_EmptyInputClearsWithoutRequest(t *testing.T) {
	sugg := &mockSuggester{}
	sess, clock := newTestSession(sugg)
	defer sess.Close()

	sess.Input("Taguig")
	sess.Input("   ")
	assert.Equal(t, 0, clock.Pending())

	clock.FireAll()
	sess.Wait()

	snap := sess.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Empty(t, snap.Suggestions)
	assert.Equal(t, uint64(0), snap.Seq)
	sugg.AssertNotCalled(t, "Suggest", mock.Anything, mock.Anything)
}

func TestSession_ClearingMakesInFlightStale(t *testing.T) {
	release := make(chan time.Time)
	sugg := &mockSuggester{}
	sugg.On("Suggest", mock.Anything, "Pasay").WaitUntil(release).Return(suggestions("Pasay City"), nil)

	sess, clock := newTestSession(sugg)
	defer sess.Close()

	sess.Input("Pasay")
	clock.FireAll()
	assert.Equal(t, Fetching, sess.Snapshot().State)

	sess.Input("")
	close(release)
	sess.Wait()

	snap := sess.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Empty(t, snap.Suggestions)
}

func TestSession_LatestFailureSetsError(t *testing.T) {
	boom := errors.New("geocode: mapbox returned status 401")
	sugg := &mockSuggester{}
	sugg.On("Suggest", mock.Anything, "Manila").Return(suggestions("Manila"), nil).Once()
	sugg.On("Suggest", mock.Anything, "Manil").Return(nil, boom).Once()

	sess, clock := newTestSession(sugg)
	defer sess.Close()

	sess.Input("Manila")
	clock.FireAll()
	sess.Wait()
	require.Len(t, sess.Snapshot().Suggestions, 1)

	sess.Input("Manil")
	clock.FireAll()
	sess.Wait()

	snap := sess.Snapshot()
	assert.Equal(t, Error, snap.State)
	assert.Same(t, boom, snap.Err)
	assert.Empty(t, snap.Suggestions)
}

func TestSession_Select(t *testing.T) {
	sugg := &mockSuggester{}
	sugg.On("Suggest", mock.Anything, "Rizal").Return(suggestions("Rizal Park", "Rizal Avenue"), nil).Once()

	sess, clock := newTestSession(sugg)
	defer sess.Close()

	sess.Input("Rizal")
	clock.FireAll()
	sess.Wait()

	_, err := sess.Select(2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	chosen, err := sess.Select(1)
	require.NoError(t, err)
	assert.Equal(t, "Rizal Avenue", chosen.Label)

	snap := sess.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Equal(t, "Rizal Avenue", snap.Text)
	assert.Empty(t, snap.Suggestions)
	require.NotNil(t, snap.Resolved)
	assert.Equal(t, chosen, *snap.Resolved)
	assert.Equal(t, uint64(1), snap.Seq)

	// The list is closed, so nothing is left to select.
	_, err = sess.Select(0)
	assert.Error(t, err)
}

func TestSession_SelectCancelsPendingSearch(t *testing.T) {
	sugg := &mockSuggester{}
	sugg.On("Suggest", mock.Anything, "Ortigas").Return(suggestions("Ortigas Center"), nil).Once()

	sess, clock := newTestSession(sugg)
	defer sess.Close()

	sess.Input("Ortigas")
	clock.FireAll()
	sess.Wait()

	sess.Input("Ortigas C")
	_, err := sess.Select(0)
	require.NoError(t, err)

	clock.FireAll()
	sess.Wait()

	sugg.AssertNumberOfCalls(t, "Suggest", 1)
	assert.Equal(t, Idle, sess.Snapshot().State)
	assert.Equal(t, "Ortigas Center", sess.Snapshot().Text)
}

func TestSession_SelectMakesInFlightStale(t *testing.T) {
	release := make(chan time.Time)
	sugg := &mockSuggester{}
	sugg.On("Suggest", mock.Anything, "Cubao").Return(suggestions("Cubao"), nil).Once()
	sugg.On("Suggest", mock.Anything, "Cubao Q").WaitUntil(release).Return(suggestions("Cubao, Quezon City"), nil).Once()

	sess, clock := newTestSession(sugg)
	defer sess.Close()

	sess.Input("Cubao")
	clock.FireAll()
	sess.Wait()

	sess.Input("Cubao Q")
	clock.FireAll()
	require.Equal(t, Fetching, sess.Snapshot().State)

	_, err := sess.Select(0)
	require.NoError(t, err)
	close(release)
	sess.Wait()

	snap := sess.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Empty(t, snap.Suggestions)
	assert.Equal(t, uint64(2), snap.Seq)
}

func TestSession_ListenerSeesTransitions(t *testing.T) {
	sugg := &mockSuggester{}
	sugg.On("Suggest", mock.Anything, "Binondo").Return(suggestions("Binondo, Manila"), nil)

	var mu sync.Mutex
	var states []State
	listener := func(s Snapshot) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	}

	sess, clock := newTestSession(sugg, WithListener(listener))
	defer sess.Close()

	sess.Input("Binondo")
	clock.FireAll()
	sess.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{Debouncing, Fetching, Done}, states)
}

func TestSession_RealClock(t *testing.T) {
	sugg := &mockSuggester{}
	sugg.On("Suggest", mock.Anything, "Intramuros").Return(suggestions("Intramuros, Manila"), nil)

	sess := New(sugg, WithDelay(10*time.Millisecond))
	defer sess.Close()

	sess.Input("Intramuros")
	require.Eventually(t, stateIs(sess, Done), 2*time.Second, 5*time.Millisecond)
	assert.Len(t, sess.Snapshot().Suggestions, 1)
}

func TestSession_CloseIgnoresFurtherInput(t *testing.T) {
	sugg := &mockSuggester{}
	sess, clock := newTestSession(sugg)

	sess.Input("Malate")
	sess.Close()
	assert.Equal(t, 0, clock.Pending())

	sess.Input("Ermita")
	clock.FireAll()
	sess.Wait()

	sugg.AssertNotCalled(t, "Suggest", mock.Anything, mock.Anything)
	assert.Equal(t, "Malate", sess.Snapshot().Text)
}

func TestSession_SelectAfterClose(t *testing.T) {
	sugg := &mockSuggester{}
	sugg.On("Suggest", mock.Anything, "Quiapo").Return(suggestions("Quiapo Church"), nil).Once()

	var notified int
	sess, clock := newTestSession(sugg, WithListener(func(Snapshot) { notified++ }))

	sess.Input("Quiapo")
	clock.FireAll()
	sess.Wait()
	sess.Close()
	before := notified

	_, err := sess.Select(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session is closed")

	snap := sess.Snapshot()
	assert.Equal(t, Done, snap.State)
	assert.Nil(t, snap.Resolved)
	assert.Len(t, snap.Suggestions, 1)
	assert.Equal(t, before, notified)
}

func TestSession_MetricsCountIssuedAndPublished(t *testing.T) {
	sugg := &mockSuggester{}
	sugg.On("Suggest", mock.Anything, "Sampaloc").Return(suggestions("Sampaloc"), nil)

	issued := testutil.ToFloat64(metrics.SearchQueriesIssued)
	published := testutil.ToFloat64(metrics.SearchResponsesTotal.WithLabelValues("published"))

	sess, clock := newTestSession(sugg)
	defer sess.Close()
	sess.Input("Sampaloc")
	clock.FireAll()
	sess.Wait()

	assert.InDelta(t, issued+1, testutil.ToFloat64(metrics.SearchQueriesIssued), 1e-9)
	assert.InDelta(t, published+1, testutil.ToFloat64(metrics.SearchResponsesTotal.WithLabelValues("published")), 1e-9)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "fetching", Fetching.String())
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "state(42)", State(42).String())
}

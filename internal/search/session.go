// Package search implements the debounced address search behind the map's
// address field. Keystrokes are coalesced into one geocoding request per pause
// in typing, and only the response to the most recent request is ever shown.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/siteopt/internal/metrics"
	"github.com/sells-group/siteopt/pkg/geocode"
)

// DefaultDelay is the quiet period after the last keystroke before a query is sent.
const DefaultDelay = 500 * time.Millisecond

// State is the position of a Session in its lifecycle.
type State int

const (
	Idle State = iota
	Debouncing
	Fetching
	Done
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case Fetching:
		return "fetching"
	case Done:
		return "done"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Suggester is the geocoding dependency. geocode.Client satisfies it.
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]geocode.Suggestion, error)
}

// Timer is a stoppable one-shot timer.
type Timer interface {
	Stop() bool
}

// Clock schedules debounce callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Snapshot is a point-in-time copy of the session's visible state.
type Snapshot struct {
	State State
	// Text is the current contents of the address field.
	Text string
	// Seq is the sequence number of the most recently issued request.
	Seq         uint64
	Suggestions []geocode.Suggestion
	Err         error
	// Resolved is the last suggestion the user committed with Select.
	Resolved *geocode.Suggestion
}

// Listener receives every published state change. It is called with the
// session lock held and must not call back into the Session.
type Listener func(Snapshot)

// Option configures a Session.
type Option func(*Session)

// WithDelay overrides DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithClock injects the timer source.
func WithClock(c Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// WithListener registers a state-change observer.
func WithListener(l Listener) Option {
	return func(s *Session) {
		s.listener = l
	}
}

// Session owns one address field's search state.
type Session struct {
	suggester Suggester
	clock     Clock
	delay     time.Duration
	listener  Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    State
	text     string
	seq      uint64
	gen      uint64
	timer    Timer
	results  []geocode.Suggestion
	err      error
	resolved *geocode.Suggestion
	closed   bool
}

// New creates an idle Session.
func New(s Suggester, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	sess := &Session{
		suggester: s,
		clock:     realClock{},
		delay:     DefaultDelay,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(sess)
	}
	return sess
}

// Input records a change to the address field. Non-empty text restarts the
// debounce window; empty text clears the suggestions without a request.
// Either way any request still in flight will be ignored when it returns.
func (s *Session) Input(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.stopTimerLocked()
	s.text = text

	if strings.TrimSpace(text) == "" {
		s.state = Idle
		s.results = nil
		s.err = nil
		s.notifyLocked()
		return
	}

	gen := s.gen
	s.timer = s.clock.AfterFunc(s.delay, func() { s.fire(gen) })
	s.state = Debouncing
	s.notifyLocked()
}

// Select commits suggestion i as the resolved address and closes the list.
func (s *Session) Select(i int) (geocode.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return geocode.Suggestion{}, eris.New("search: session is closed")
	}

	if i < 0 || i >= len(s.results) {
		return geocode.Suggestion{}, eris.Errorf("search: suggestion %d out of range (have %d)", i, len(s.results))
	}

	chosen := s.results[i]
	s.stopTimerLocked()
	s.resolved = &chosen
	s.text = chosen.Label
	s.results = nil
	s.err = nil
	s.state = Idle
	s.notifyLocked()
	return chosen, nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Wait blocks until every issued request has returned.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close stops the pending timer, cancels the session context and waits for
// in-flight requests. Further input is ignored.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopTimerLocked()
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// stopTimerLocked cancels the pending debounce and bumps the generation so a
// callback that already started racing for the lock becomes a no-op.
func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Session) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen || s.state != Debouncing {
		return
	}

	s.timer = nil
	s.seq++
	seq, text := s.seq, strings.TrimSpace(s.text)
	s.state = Fetching
	s.wg.Add(1)
	s.notifyLocked()

	metrics.SearchQueriesIssued.Inc()
	go s.fetch(seq, text)
}

func (s *Session) fetch(seq uint64, text string) {
	defer s.wg.Done()

	results, err := s.suggester.Suggest(s.ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || seq != s.seq || s.state != Fetching {
		metrics.SearchResponsesTotal.WithLabelValues("stale").Inc()
		zap.L().Debug("search: discarding stale response",
			zap.Uint64("seq", seq),
			zap.Uint64("latest", s.seq),
			zap.String("query", text),
		)
		return
	}

	if err != nil {
		s.state = Error
		s.err = err
		s.results = nil
		metrics.SearchResponsesTotal.WithLabelValues("failed").Inc()
		zap.L().Warn("search: suggestion request failed", zap.String("query", text), zap.Error(err))
		s.notifyLocked()
		return
	}

	s.state = Done
	s.err = nil
	s.results = results
	metrics.SearchResponsesTotal.WithLabelValues("published").Inc()
	s.notifyLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:       s.state,
		Text:        s.text,
		Seq:         s.seq,
		Suggestions: append([]geocode.Suggestion(nil), s.results...),
		Err:         s.err,
	}
	if s.resolved != nil {
		r := *s.resolved
		snap.Resolved = &r
	}
	return snap
}

func (s *Session) notifyLocked() {
	if s.listener != nil {
		s.listener(s.snapshotLocked())
	}
}

// Package livesync keeps one client's copy of a league's live game in step
// with the server.
//
// Local edits are applied immediately and the resulting document is written
// to the server in the background. Remote documents replace the local one
// unless they are older. All of this happens on a single goroutine started by
// Run; the exported methods only exchange messages with it.
package livesync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/livegame"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/metrics"
	"github.com/google/uuid"
)

const (
	DefaultTickInterval = time.Second
	DefaultTimeout      = 10 * time.Second
)

// ErrStopped is returned by calls made after Run has returned.
var ErrStopped = errors.New("synchronizer stopped")

// Remote is the server side of the live game document.
type Remote interface {
	FetchLiveGame(ctx context.Context) (livegame.State, error)
	PutLiveGame(ctx context.Context, state livegame.State) error
}

// Mutation derives the next local state. It must not keep references to its
// argument.
type Mutation func(s livegame.State, now time.Time) livegame.State

type Status struct {
	ClientID  string
	Online    bool
	Queued    bool
	InFlight  bool
	LastError string
	Discarded int
}

type Synchronizer struct {
	remote   Remote
	clientID string
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    func() time.Time
	tick     time.Duration
	timeout  time.Duration

	mutations chan mutationRequest
	notices   chan livegame.State
	online    chan bool
	refreshes chan chan error
	written   chan writeResult
	fetched   chan fetchResult
	done      chan struct{}

	mu       sync.RWMutex
	snapshot livegame.State
	status   Status

	// owned by the Run goroutine
	local     livegame.State
	queued    *livegame.State
	inFlight  bool
	isOnline  bool
	lastErr   string
	discarded int
	waiting   []chan error
}

type mutationRequest struct {
	fn    Mutation
	reply chan livegame.State
}

type writeResult struct {
	state livegame.State
	err   error
}

type fetchResult struct {
	state livegame.State
	err   error
}

type Option func(*Synchronizer)

func WithClock(clock func() time.Time) Option {
	return func(s *Synchronizer) { s.clock = clock }
}

func WithTickInterval(d time.Duration) Option {
	return func(s *Synchronizer) { s.tick = d }
}

func WithTimeout(d time.Duration) Option {
	return func(s *Synchronizer) { s.timeout = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Synchronizer) { s.metrics = m }
}

func WithClientID(id string) Option {
	return func(s *Synchronizer) { s.clientID = id }
}

// WithOnline sets the connectivity the synchronizer starts with.
func WithOnline(online bool) Option {
	return func(s *Synchronizer) { s.isOnline = online }
}

// New creates a synchronizer that starts from an empty document older than
// anything the server can hold, so the first fetch always wins.
func New(remote Remote, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		remote:    remote,
		clientID:  uuid.NewString(),
		logger:    slog.Default(),
		clock:     time.Now,
		tick:      DefaultTickInterval,
		timeout:   DefaultTimeout,
		isOnline:  true,
		mutations: make(chan mutationRequest),
		notices:   make(chan livegame.State, 16),
		online:    make(chan bool, 4),
		refreshes: make(chan chan error),
		written:   make(chan writeResult, 1),
		fetched:   make(chan fetchResult, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.local = livegame.Empty(s.clock())
	s.local.LastUpdated = 0
	s.publish()
	return s
}

func (s *Synchronizer) ClientID() string {
	return s.clientID
}

// Run reconciles local and remote state until ctx is cancelled. It fetches
// the remote document once on start when online.
func (s *Synchronizer) Run(ctx context.Context) error {
	defer close(s.done)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	if s.isOnline {
		s.startFetch(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for _, w := range s.waiting {
				w <- ctx.Err()
			}
			return ctx.Err()

		case req := <-s.mutations:
			s.local = req.fn(s.local.Clone(), s.clock())
			s.enqueue(s.local)
			s.flush(ctx)
			s.publish()
			req.reply <- s.local.Clone()

		case incoming := <-s.notices:
			s.merge(incoming)
			s.publish()

		case on := <-s.online:
			s.isOnline = on
			if on {
				s.flush(ctx)
				s.startFetch(ctx)
			}
			s.publish()

		case res := <-s.written:
			s.inFlight = false
			s.handleWrite(res)
			s.flush(ctx)
			s.publish()

		case res := <-s.fetched:
			s.handleFetch(res)
			s.publish()
			for _, w := range s.waiting {
				w <- res.err
			}
			s.waiting = nil

		case reply := <-s.refreshes:
			if !s.isOnline {
				reply <- apperr.Network(nil)
				continue
			}
			s.waiting = append(s.waiting, reply)
			s.startFetch(ctx)

		case <-ticker.C:
			if next, changed := s.local.Tick(s.clientID, s.clock()); changed {
				s.local = next
				s.enqueue(next)
			}
			s.flush(ctx)
			s.publish()
		}
	}
}

// Apply runs fn against the local state and schedules the result for
// persistence. It returns the new local state.
func (s *Synchronizer) Apply(ctx context.Context, fn Mutation) (livegame.State, error) {
	reply := make(chan livegame.State, 1)
	select {
	case s.mutations <- mutationRequest{fn: fn, reply: reply}:
	case <-ctx.Done():
		return livegame.State{}, ctx.Err()
	case <-s.done:
		return livegame.State{}, ErrStopped
	}
	select {
	case st := <-reply:
		return st, nil
	case <-s.done:
		return livegame.State{}, ErrStopped
	}
}

// Notify hands over a document pushed by the server.
func (s *Synchronizer) Notify(state livegame.State) {
	select {
	case s.notices <- state.Clone():
	case <-s.done:
	}
}

// Refresh fetches the remote document and merges it before returning.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case s.refreshes <- reply:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStopped
	}
}

// SetOnline records a connectivity change. Going online sends the queued
// document, if any, and fetches the latest remote one.
func (s *Synchronizer) SetOnline(online bool) {
	select {
	case s.online <- online:
	case <-s.done:
	}
}

func (s *Synchronizer) StartTimer(ctx context.Context) (livegame.State, error) {
	return s.Apply(ctx, func(st livegame.State, now time.Time) livegame.State {
		return st.StartTimer(s.clientID, now)
	})
}

func (s *Synchronizer) PauseTimer(ctx context.Context) (livegame.State, error) {
	return s.Apply(ctx, func(st livegame.State, now time.Time) livegame.State {
		return st.PauseTimer(now)
	})
}

// Snapshot returns the latest published local state.
func (s *Synchronizer) Snapshot() livegame.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

func (s *Synchronizer) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Synchronizer) AlarmDue() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.AlarmDue()
}

// enqueue puts state in the single outbound slot, replacing whatever was
// waiting there.
func (s *Synchronizer) enqueue(state livegame.State) {
	queued := state.Clone()
	s.queued = &queued
}

func (s *Synchronizer) flush(ctx context.Context) {
	if !s.isOnline || s.inFlight || s.queued == nil {
		return
	}
	state := *s.queued
	s.queued = nil
	s.inFlight = true

	go func() {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		err := s.remote.PutLiveGame(callCtx, state)
		select {
		case s.written <- writeResult{state: state, err: err}:
		case <-s.done:
		}
	}()
}

func (s *Synchronizer) handleWrite(res writeResult) {
	if res.err == nil {
		s.lastErr = ""
		return
	}

	s.lastErr = apperr.Message(res.err)
	if apperr.Terminal(res.err) {
		s.logger.Warn("live state write rejected", "client_id", s.clientID, "error", res.err)
		return
	}
	if s.local.NewerThan(res.state) {
		s.logger.Info("live state write failed, newer state already accepted", "client_id", s.clientID, "error", res.err)
		return
	}
	s.logger.Info("live state write failed, will retry", "client_id", s.clientID, "error", res.err)
	if s.queued == nil {
		s.queued = &res.state
	}
}

func (s *Synchronizer) startFetch(ctx context.Context) {
	go func() {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		state, err := s.remote.FetchLiveGame(callCtx)
		select {
		case s.fetched <- fetchResult{state: state, err: err}:
		case <-s.done:
		}
	}()
}

func (s *Synchronizer) handleFetch(res fetchResult) {
	if res.err != nil {
		s.lastErr = apperr.Message(res.err)
		s.logger.Info("live state fetch failed", "client_id", s.clientID, "error", res.err)
		return
	}
	s.merge(res.state)
}

// merge applies the newest-wins rule to a remote document.
func (s *Synchronizer) merge(incoming livegame.State) {
	if s.local.NewerThan(incoming) {
		s.discarded++
		s.metrics.StaleStateRejected()
		s.logger.Debug("discarding stale live state",
			"client_id", s.clientID,
			"local", s.local.LastUpdated,
			"incoming", incoming.LastUpdated,
		)
		return
	}
	s.local = incoming.Clone()
	if s.queued != nil && s.queued.LastUpdated <= incoming.LastUpdated {
		s.queued = nil
	}
}

func (s *Synchronizer) publish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = s.local.Clone()
	s.status = Status{
		ClientID:  s.clientID,
		Online:    s.isOnline,
		Queued:    s.queued != nil,
		InFlight:  s.inFlight,
		LastError: s.lastErr,
		Discarded: s.discarded,
	}
}

// Package recorder turns finished games into session records on the server.
//
// A submission that cannot be delivered is kept in a single pending slot and
// sent again when the recorder comes back online. Ending another game while a
// submission is pending replaces it.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/leaderboard"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/scoring"
	"github.com/google/uuid"
)

const (
	QueuedMessage      = "Saved locally. Will sync when back online."
	DefaultFailMessage = "Failed to save session"
	DefaultTimeout     = 10 * time.Second
)

// Remote is the server side of the session history.
type Remote interface {
	CreateSession(ctx context.Context, payload league.SessionPayload) (league.SavedSession, error)
	ListSessions(ctx context.Context) ([]league.SavedSession, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

type Status string

const (
	StatusSaved        Status = "saved"
	StatusQueued       Status = "queued"
	StatusRetryPending Status = "retry_pending"
	StatusRejected     Status = "rejected"
)

type Outcome struct {
	Status  Status
	Message string
	Session *league.SavedSession
}

// Submission is everything needed to score and store a finished game.
type Submission struct {
	Players    []league.GamePlayer
	GoalEvents []league.GoalEvent
	TeamNames  league.TeamNames
	Config     league.ScoringConfig
}

func (s Submission) clone() Submission {
	s.Players = append([]league.GamePlayer{}, s.Players...)
	s.GoalEvents = append([]league.GoalEvent{}, s.GoalEvents...)
	return s
}

type Recorder struct {
	remote  Remote
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	online  bool
	pending *Submission
	history []league.SavedSession
}

type Option func(*Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

func WithTimeout(d time.Duration) Option {
	return func(r *Recorder) { r.timeout = d }
}

func WithOnline(online bool) Option {
	return func(r *Recorder) { r.online = online }
}

func New(remote Remote, opts ...Option) *Recorder {
	r := &Recorder{
		remote:  remote,
		logger:  slog.Default(),
		timeout: DefaultTimeout,
		online:  true,
		history: []league.SavedSession{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit scores a finished game and stores it. Transport failures never
// surface as errors: the submission is kept for a retry and the outcome says
// so. Only submissions that can never succeed return an error.
func (r *Recorder) Submit(ctx context.Context, sub Submission) (Outcome, error) {
	if len(sub.Players) == 0 {
		return Outcome{Status: StatusRejected, Message: "At least one player is required"},
			apperr.Validation("At least one player is required")
	}
	sub = sub.clone()

	r.mu.Lock()
	if !r.online {
		r.pending = &sub
		r.mu.Unlock()
		return Outcome{Status: StatusQueued, Message: QueuedMessage}, nil
	}
	r.mu.Unlock()
	return r.send(ctx, sub)
}

// SetOnline records a connectivity change. Coming online resubmits the
// pending submission, if there is one, and reports how that went.
func (r *Recorder) SetOnline(ctx context.Context, online bool) (*Outcome, error) {
	r.mu.Lock()
	r.online = online
	if !online || r.pending == nil {
		r.mu.Unlock()
		return nil, nil
	}
	sub := *r.pending
	r.pending = nil
	r.mu.Unlock()

	out, err := r.send(ctx, sub)
	return &out, err
}

// send delivers sub without holding r.mu. A submission that fails in
// transit goes back to the pending slot unless a newer one took it.
func (r *Recorder) send(ctx context.Context, sub Submission) (Outcome, error) {
	payload := scoring.ComputeWeeklyPoints(sub.Players, sub.Config).Payload(sub.TeamNames, sub.GoalEvents)
	if err := payload.Validate(); err != nil {
		return Outcome{Status: StatusRejected, Message: apperr.Message(err)}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	saved, err := r.remote.CreateSession(callCtx, payload)
	if err != nil {
		msg := apperr.Message(err)
		if msg == "" {
			msg = DefaultFailMessage
		}
		if apperr.Terminal(err) {
			r.logger.Warn("session rejected", "error", err)
			return Outcome{Status: StatusRejected, Message: msg}, err
		}
		r.logger.Info("session save failed, keeping it for retry", "error", err)
		r.mu.Lock()
		if r.pending == nil {
			r.pending = &sub
		}
		r.mu.Unlock()
		return Outcome{Status: StatusRetryPending, Message: msg}, nil
	}

	if err := r.Refresh(ctx); err != nil {
		r.logger.Info("history refresh failed after save", "error", err)
		r.mu.Lock()
		r.history = append([]league.SavedSession{saved}, r.history...)
		r.mu.Unlock()
	}
	return Outcome{Status: StatusSaved, Session: &saved}, nil
}

// Refresh reloads the session history.
func (r *Recorder) Refresh(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sessions, err := r.remote.ListSessions(callCtx)
	if err != nil {
		return err
	}
	if sessions == nil {
		sessions = []league.SavedSession{}
	}
	r.mu.Lock()
	r.history = sessions
	r.mu.Unlock()
	return nil
}

// Delete removes a session on the server and from the local history.
func (r *Recorder) Delete(ctx context.Context, id uuid.UUID) error {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.remote.DeleteSession(callCtx, id); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.history[:0:0]
	for _, s := range r.history {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	r.history = kept
	return nil
}

// History returns the sessions newest first, as last loaded.
func (r *Recorder) History() []league.SavedSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]league.SavedSession{}, r.history...)
}

func (r *Recorder) Leaderboard() []leaderboard.Row {
	return leaderboard.Aggregate(r.History())
}

func (r *Recorder) Pending() (Submission, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return Submission{}, false
	}
	return r.pending.clone(), true
}

func (r *Recorder) Online() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online
}

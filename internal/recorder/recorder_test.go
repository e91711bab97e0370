package recorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	created   []league.SessionPayload
	sessions  []league.SavedSession
	createErr error
	listErr   error
	deleteErr error
	// hold keeps CreateSession waiting until it is closed or the call's
	// context ends; started is signalled once the call is waiting.
	hold    chan struct{}
	started chan struct{}
}

func (f *fakeRemote) CreateSession(ctx context.Context, payload league.SessionPayload) (league.SavedSession, error) {
	if f.hold != nil {
		if f.started != nil {
			f.started <- struct{}{}
		}
		select {
		case <-f.hold:
		case <-ctx.Done():
			return league.SavedSession{}, ctx.Err()
		}
	}
	if f.createErr != nil {
		return league.SavedSession{}, f.createErr
	}
	f.created = append(f.created, payload)
	saved := league.SavedSession{
		ID:         uuid.New(),
		CreatedAt:  time.Now(),
		TeamAScore: payload.TeamAScore,
		TeamBScore: payload.TeamBScore,
		Winner:     payload.Winner,
		TeamNames:  payload.TeamNames,
		Players:    payload.Players,
		GoalEvents: payload.GoalEvents,
	}
	f.sessions = append([]league.SavedSession{saved}, f.sessions...)
	return saved, nil
}

func (f *fakeRemote) ListSessions(ctx context.Context) ([]league.SavedSession, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]league.SavedSession{}, f.sessions...), nil
}

func (f *fakeRemote) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, s := range f.sessions {
		if s.ID == id {
			f.sessions = append(f.sessions[:i], f.sessions[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("Session not found")
}

func game(goalsA, goalsB int) Submission {
	return Submission{
		Players: []league.GamePlayer{
			{ID: "a", Name: "Anna", Team: league.TeamA, Goals: goalsA},
			{ID: "b", Name: "Bert", Team: league.TeamB, Goals: goalsB},
		},
		TeamNames: league.DefaultTeamNames(),
		Config:    league.ScoringConfig{AttendancePoints: 1, GoalPoints: 2, WinBonus: 5, AssistPoints: 1},
	}
}

func TestSubmitOnline(t *testing.T) {
	remote := &fakeRemote{}
	r := New(remote)

	out, err := r.Submit(context.Background(), game(3, 1))
	require.NoError(t, err)

	assert.Equal(t, StatusSaved, out.Status)
	require.NotNil(t, out.Session)
	require.Len(t, remote.created, 1)
	payload := remote.created[0]
	assert.Equal(t, 3, payload.TeamAScore)
	assert.Equal(t, league.WinnerA, payload.Winner)
	assert.Equal(t, 12.0, payload.Players[0].WeekPoints)
	assert.Equal(t, 3.0, payload.Players[1].WeekPoints)

	assert.Len(t, r.History(), 1)
	_, pending := r.Pending()
	assert.False(t, pending)

	rows := r.Leaderboard()
	require.Len(t, rows, 2)
	assert.Equal(t, "Anna", rows[0].Name)
	assert.Equal(t, 12.0, rows[0].Points)
}

func TestSubmitWithoutPlayers(t *testing.T) {
	remote := &fakeRemote{}
	r := New(remote, WithOnline(false))

	out, err := r.Submit(context.Background(), Submission{Config: league.DefaultScoringConfig()})

	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, StatusRejected, out.Status)
	_, pending := r.Pending()
	assert.False(t, pending)
}

func TestOfflineSubmissionIsQueuedAndResent(t *testing.T) {
	remote := &fakeRemote{}
	r := New(remote, WithOnline(false))
	ctx := context.Background()

	out, err := r.Submit(ctx, game(1, 0))
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, out.Status)
	assert.Equal(t, "Saved locally. Will sync when back online.", out.Message)

	out, err = r.Submit(ctx, game(0, 4))
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, out.Status)
	assert.Empty(t, remote.created)

	pending, ok := r.Pending()
	require.True(t, ok)
	assert.Equal(t, 4, pending.Players[1].Goals)

	resent, err := r.SetOnline(ctx, true)
	require.NoError(t, err)
	require.NotNil(t, resent)
	assert.Equal(t, StatusSaved, resent.Status)

	require.Len(t, remote.created, 1, "only the last game played offline is sent")
	assert.Equal(t, league.WinnerB, remote.created[0].Winner)
	_, ok = r.Pending()
	assert.False(t, ok)

	again, err := r.SetOnline(ctx, true)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestTransientFailureKeepsSubmission(t *testing.T) {
	remote := &fakeRemote{createErr: apperr.Upstream(errors.New("database is locked"))}
	r := New(remote)
	ctx := context.Background()

	out, err := r.Submit(ctx, game(2, 2))
	require.NoError(t, err)
	assert.Equal(t, StatusRetryPending, out.Status)
	assert.Equal(t, "database is locked", out.Message)
	_, ok := r.Pending()
	assert.True(t, ok)

	remote.createErr = nil
	_, err = r.SetOnline(ctx, false)
	require.NoError(t, err)
	out2, err := r.SetOnline(ctx, true)
	require.NoError(t, err)
	require.NotNil(t, out2)
	assert.Equal(t, StatusSaved, out2.Status)
	assert.Equal(t, league.Tie, remote.created[0].Winner)
}

func TestTerminalFailureIsNotQueued(t *testing.T) {
	remote := &fakeRemote{createErr: apperr.Forbidden("Forbidden")}
	r := New(remote)

	out, err := r.Submit(context.Background(), game(1, 0))

	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, StatusRejected, out.Status)
	_, ok := r.Pending()
	assert.False(t, ok)
}

func TestSavedEvenWhenHistoryReloadFails(t *testing.T) {
	remote := &fakeRemote{listErr: apperr.Network(nil)}
	r := New(remote)

	out, err := r.Submit(context.Background(), game(1, 0))
	require.NoError(t, err)
	assert.Equal(t, StatusSaved, out.Status)
	assert.Len(t, r.History(), 1)
}

func TestDelete(t *testing.T) {
	remote := &fakeRemote{}
	r := New(remote)
	ctx := context.Background()

	out, err := r.Submit(ctx, game(1, 0))
	require.NoError(t, err)
	_, err = r.Submit(ctx, game(0, 1))
	require.NoError(t, err)
	require.Len(t, r.History(), 2)

	require.NoError(t, r.Delete(ctx, out.Session.ID))
	history := r.History()
	require.Len(t, history, 1)
	assert.NotEqual(t, out.Session.ID, history[0].ID)

	err = r.Delete(ctx, out.Session.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTimedOutSubmissionStaysPending(t *testing.T) {
	remote := &fakeRemote{hold: make(chan struct{})}
	r := New(remote, WithTimeout(20*time.Millisecond))

	out, err := r.Submit(context.Background(), game(2, 1))
	require.NoError(t, err)
	assert.Equal(t, StatusRetryPending, out.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), out.Message)

	pending, ok := r.Pending()
	require.True(t, ok)
	assert.Equal(t, 2, pending.Players[0].Goals)
	assert.Empty(t, remote.created)
}

func TestReadsDoNotWaitForSubmission(t *testing.T) {
	remote := &fakeRemote{hold: make(chan struct{}), started: make(chan struct{}, 1)}
	r := New(remote)

	done := make(chan Outcome, 1)
	go func() {
		out, _ := r.Submit(context.Background(), game(1, 0))
		done <- out
	}()
	<-remote.started

	read := make(chan struct{})
	go func() {
		r.History()
		r.Pending()
		r.Online()
		close(read)
	}()
	select {
	case <-read:
	case <-time.After(time.Second):
		t.Fatal("history and pending blocked behind an in-flight submission")
	}

	close(remote.hold)
	out := <-done
	assert.Equal(t, StatusSaved, out.Status)
	assert.Len(t, r.History(), 1)
}

func TestNewerSubmissionSurvivesFailedResend(t *testing.T) {
	remote := &fakeRemote{
		hold:      make(chan struct{}),
		started:   make(chan struct{}, 1),
		createErr: apperr.Network(errors.New("connection reset")),
	}
	r := New(remote, WithOnline(false))
	ctx := context.Background()

	_, err := r.Submit(ctx, game(1, 0))
	require.NoError(t, err)

	resent := make(chan *Outcome, 1)
	go func() {
		out, _ := r.SetOnline(ctx, true)
		resent <- out
	}()
	<-remote.started

	_, err = r.SetOnline(ctx, false)
	require.NoError(t, err)
	_, err = r.Submit(ctx, game(0, 3))
	require.NoError(t, err)

	close(remote.hold)
	out := <-resent
	require.NotNil(t, out)
	assert.Equal(t, StatusRetryPending, out.Status)

	pending, ok := r.Pending()
	require.True(t, ok)
	assert.Equal(t, 3, pending.Players[1].Goals, "the game ended later keeps the slot")
}

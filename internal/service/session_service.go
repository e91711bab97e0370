package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/access"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/leaderboard"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/metrics"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type SessionService struct {
	db      *sqlx.DB
	store   *store.SessionStore
	players *store.PlayerStore
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewSessionService(db *sqlx.DB, store *store.SessionStore, players *store.PlayerStore, m *metrics.Metrics) *SessionService {
	return &SessionService{db: db, store: store, players: players, metrics: m, now: time.Now}
}

// ListSessions returns the league history, newest first.
func (s *SessionService) ListSessions(ctx context.Context, ac access.Context) ([]league.SavedSession, error) {
	sessions, err := s.store.ListSessions(ctx, ac.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// RecordSession validates a finished game and stores it. Players of another
// league are refused; players deleted from the roster since the game
// started are kept, since history outlives the roster.
func (s *SessionService) RecordSession(ctx context.Context, ac access.Context, payload league.SessionPayload) (*league.SavedSession, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(payload.Players))
	for _, p := range payload.Players {
		ids = append(ids, p.PlayerID)
	}
	n, err := s.players.CountPlayersOutsideLeague(ctx, ac.LeagueID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to check session players: %w", err)
	}
	if n > 0 {
		return nil, apperr.Validation("Players must belong to this league")
	}

	session := &league.SavedSession{
		ID:         uuid.New(),
		LeagueID:   ac.LeagueID,
		CreatedAt:  s.now().UTC(),
		TeamAScore: payload.TeamAScore,
		TeamBScore: payload.TeamBScore,
		Winner:     payload.Winner,
		TeamNames:  payload.TeamNames,
		Players:    payload.Players,
		GoalEvents: payload.GoalEvents,
	}
	if session.GoalEvents == nil {
		session.GoalEvents = []league.GoalEvent{}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.store.CreateSession(ctx, tx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.metrics.SessionRecorded()
	slog.Info("session recorded", "league_id", ac.LeagueID, "session_id", session.ID, "winner", session.Winner)
	return session, nil
}

// DeleteSession is reserved to league admins.
func (s *SessionService) DeleteSession(ctx context.Context, ac access.Context, rawID string) error {
	if !ac.IsAdmin() {
		return apperr.Forbidden("Forbidden")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return apperr.NotFound("Session not found")
	}
	err = s.store.DeleteSession(ctx, ac.LeagueID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("Session not found")
	}
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.metrics.SessionDeleted()
	return nil
}

// Leaderboard aggregates the whole history of the league.
func (s *SessionService) Leaderboard(ctx context.Context, ac access.Context, column leaderboard.Column, dir leaderboard.Direction) ([]leaderboard.Row, error) {
	sessions, err := s.ListSessions(ctx, ac)
	if err != nil {
		return nil, err
	}
	return leaderboard.Sort(leaderboard.Aggregate(sessions), column, dir), nil
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

type SessionStore struct {
	db *sqlx.DB
}

type sessionRow struct {
	ID         uuid.UUID      `db:"id"`
	LeagueID   uuid.UUID      `db:"league_id"`
	TeamAScore int            `db:"team_a_score"`
	TeamBScore int            `db:"team_b_score"`
	Winner     league.Winner  `db:"winner"`
	TeamAName  *string        `db:"team_a_name"`
	TeamBName  *string        `db:"team_b_name"`
	GoalEvents types.JSONText `db:"goal_events"`
	CreatedAt  time.Time      `db:"created_at"`
}

type sessionPlayerRow struct {
	SessionID  uuid.UUID   `db:"session_id"`
	Position   int         `db:"position"`
	PlayerID   string      `db:"player_id"`
	PlayerName string      `db:"player_name"`
	Team       league.Team `db:"team"`
	Goals      int         `db:"goals"`
	Assists    int         `db:"assists"`
	Attendance bool        `db:"attendance"`
	WeekPoints float64     `db:"week_points"`
}

const (
	createSessionQuery = `
		INSERT INTO game_sessions (id, league_id, team_a_score, team_b_score, winner,
			team_a_name, team_b_name, goal_events, created_at)
		VALUES (:id, :league_id, :team_a_score, :team_b_score, :winner,
			:team_a_name, :team_b_name, :goal_events, :created_at)
	`
	createSessionPlayersQuery = `
		INSERT INTO session_players (session_id, position, player_id, player_name, team,
			goals, assists, attendance, week_points)
		VALUES (:session_id, :position, :player_id, :player_name, :team,
			:goals, :assists, :attendance, :week_points)
	`
	listSessionsQuery = `
		SELECT * FROM game_sessions
		WHERE league_id = ?
		ORDER BY created_at DESC, rowid DESC
	`
	getSessionQuery         = "SELECT * FROM game_sessions WHERE id = ?"
	listSessionPlayersQuery = "SELECT * FROM session_players WHERE session_id IN (?) ORDER BY session_id, position"
	deleteSessionQuery      = "DELETE FROM game_sessions WHERE id = ? AND league_id = ?"
)

func NewSessionStore(db *sqlx.DB) *SessionStore {
	return &SessionStore{db: db}
}

// CreateSession writes the session and its players inside tx.
func (s *SessionStore) CreateSession(ctx context.Context, tx *sqlx.Tx, session *league.SavedSession) error {
	events := session.GoalEvents
	if events == nil {
		events = []league.GoalEvent{}
	}
	raw, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to encode goal events: %w", err)
	}

	row := sessionRow{
		ID:         session.ID,
		LeagueID:   session.LeagueID,
		TeamAScore: session.TeamAScore,
		TeamBScore: session.TeamBScore,
		Winner:     session.Winner,
		GoalEvents: types.JSONText(raw),
		CreatedAt:  session.CreatedAt,
	}
	if session.TeamNames != nil {
		row.TeamAName = &session.TeamNames.A
		row.TeamBName = &session.TeamNames.B
	}
	if _, err := tx.NamedExecContext(ctx, createSessionQuery, row); err != nil {
		return err
	}

	if len(session.Players) == 0 {
		return nil
	}
	players := make([]sessionPlayerRow, 0, len(session.Players))
	for i, p := range session.Players {
		players = append(players, sessionPlayerRow{
			SessionID:  session.ID,
			Position:   i,
			PlayerID:   p.PlayerID,
			PlayerName: p.PlayerName,
			Team:       p.Team,
			Goals:      p.Goals,
			Assists:    p.Assists,
			Attendance: p.Attendance,
			WeekPoints: p.WeekPoints,
		})
	}
	_, err = tx.NamedExecContext(ctx, createSessionPlayersQuery, players)
	return err
}

// ListSessions returns the league's sessions, newest first.
func (s *SessionStore) ListSessions(ctx context.Context, leagueID uuid.UUID) ([]league.SavedSession, error) {
	var rows []sessionRow
	if err := s.db.SelectContext(ctx, &rows, listSessionsQuery, leagueID); err != nil {
		return nil, err
	}
	return s.hydrate(ctx, rows)
}

// GetSession returns sql.ErrNoRows for an unknown id.
func (s *SessionStore) GetSession(ctx context.Context, id uuid.UUID) (*league.SavedSession, error) {
	var row sessionRow
	if err := s.db.GetContext(ctx, &row, getSessionQuery, id); err != nil {
		return nil, err
	}
	sessions, err := s.hydrate(ctx, []sessionRow{row})
	if err != nil {
		return nil, err
	}
	return &sessions[0], nil
}

// DeleteSession removes a session of the league. Sessions of other leagues
// are reported as sql.ErrNoRows.
func (s *SessionStore) DeleteSession(ctx context.Context, leagueID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, deleteSessionQuery, id, leagueID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (s *SessionStore) hydrate(ctx context.Context, rows []sessionRow) ([]league.SavedSession, error) {
	sessions := make([]league.SavedSession, 0, len(rows))
	if len(rows) == 0 {
		return sessions, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	query, args, err := sqlx.In(listSessionPlayersQuery, ids)
	if err != nil {
		return nil, err
	}
	var playerRows []sessionPlayerRow
	if err := s.db.SelectContext(ctx, &playerRows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	bySession := make(map[uuid.UUID][]league.SessionPlayer, len(rows))
	for _, p := range playerRows {
		bySession[p.SessionID] = append(bySession[p.SessionID], league.SessionPlayer{
			PlayerID:   p.PlayerID,
			PlayerName: p.PlayerName,
			Team:       p.Team,
			Goals:      p.Goals,
			Assists:    p.Assists,
			Attendance: p.Attendance,
			WeekPoints: p.WeekPoints,
		})
	}

	for _, r := range rows {
		events := []league.GoalEvent{}
		if len(r.GoalEvents) > 0 {
			if err := r.GoalEvents.Unmarshal(&events); err != nil {
				return nil, fmt.Errorf("failed to decode goal events of session %s: %w", r.ID, err)
			}
		}
		players := bySession[r.ID]
		if players == nil {
			players = []league.SessionPlayer{}
		}

		session := league.SavedSession{
			ID:         r.ID,
			LeagueID:   r.LeagueID,
			CreatedAt:  r.CreatedAt,
			TeamAScore: r.TeamAScore,
			TeamBScore: r.TeamBScore,
			Winner:     r.Winner,
			Players:    players,
			GoalEvents: events,
		}
		if r.TeamAName != nil || r.TeamBName != nil {
			names := league.DefaultTeamNames()
			if r.TeamAName != nil {
				names.A = *r.TeamAName
			}
			if r.TeamBName != nil {
				names.B = *r.TeamBName
			}
			session.TeamNames = &names
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

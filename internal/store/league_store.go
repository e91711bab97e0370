package store

import (
	"context"
	"database/sql"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type LeagueStore struct {
	db *sqlx.DB
}

const (
	leagueColumns = `l.id, l.name, l.public_token, l.owner_user_id, l.created_at,
		l.attendance_points, l.goal_points, l.win_bonus, l.enable_assists, l.assist_points`

	createLeagueQuery = `
		INSERT INTO leagues (id, name, public_token, owner_user_id,
			attendance_points, goal_points, win_bonus, enable_assists, assist_points)
		VALUES (:id, :name, :public_token, :owner_user_id,
			:attendance_points, :goal_points, :win_bonus, :enable_assists, :assist_points)
	`
	addMemberQuery = `
		INSERT INTO league_members (league_id, user_id, role) VALUES (?, ?, ?)
		ON CONFLICT (league_id, user_id) DO UPDATE SET role = excluded.role
	`
	getLeagueQuery              = "SELECT " + leagueColumns + " FROM leagues l WHERE l.id = ?"
	getLeagueByPublicTokenQuery = "SELECT " + leagueColumns + " FROM leagues l WHERE l.public_token = ?"
	listLeaguesForUserQuery     = `
		SELECT ` + leagueColumns + `, m.role
		FROM leagues l
		JOIN league_members m ON m.league_id = l.id
		WHERE m.user_id = ?
		ORDER BY l.created_at ASC, l.rowid ASC
	`
	getMemberRoleQuery      = "SELECT role FROM league_members WHERE league_id = ? AND user_id = ?"
	getScoringConfigQuery   = "SELECT attendance_points, goal_points, win_bonus, enable_assists, assist_points FROM leagues WHERE id = ?"
	updateScoringConfigQuery = `
		UPDATE leagues SET
		attendance_points = :attendance_points,
		goal_points = :goal_points,
		win_bonus = :win_bonus,
		enable_assists = :enable_assists,
		assist_points = :assist_points
		WHERE id = :id
	`
)

func NewLeagueStore(db *sqlx.DB) *LeagueStore {
	return &LeagueStore{db: db}
}

func (s *LeagueStore) CreateLeague(ctx context.Context, tx *sqlx.Tx, l *league.League) error {
	_, err := tx.NamedExecContext(ctx, createLeagueQuery, l)
	return err
}

// AddMember grants userID the role in the league, replacing any earlier role.
func (s *LeagueStore) AddMember(ctx context.Context, tx *sqlx.Tx, leagueID, userID uuid.UUID, role league.Role) error {
	_, err := tx.ExecContext(ctx, addMemberQuery, leagueID, userID, role)
	return err
}

func (s *LeagueStore) GetLeague(ctx context.Context, id uuid.UUID) (*league.League, error) {
	var l league.League
	if err := s.db.GetContext(ctx, &l, getLeagueQuery, id); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *LeagueStore) GetLeagueByPublicToken(ctx context.Context, token string) (*league.League, error) {
	var l league.League
	if err := s.db.GetContext(ctx, &l, getLeagueByPublicTokenQuery, token); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLeaguesForUser returns every league the user belongs to, with the
// user's role filled in.
func (s *LeagueStore) ListLeaguesForUser(ctx context.Context, userID uuid.UUID) ([]league.League, error) {
	leagues := []league.League{}
	err := s.db.SelectContext(ctx, &leagues, listLeaguesForUserQuery, userID)
	return leagues, err
}

// GetMemberRole returns sql.ErrNoRows when the user is not a member.
func (s *LeagueStore) GetMemberRole(ctx context.Context, leagueID, userID uuid.UUID) (league.Role, error) {
	var role league.Role
	err := s.db.GetContext(ctx, &role, getMemberRoleQuery, leagueID, userID)
	return role, err
}

func (s *LeagueStore) GetScoringConfig(ctx context.Context, leagueID uuid.UUID) (league.ScoringConfig, error) {
	var cfg league.ScoringConfig
	err := s.db.GetContext(ctx, &cfg, getScoringConfigQuery, leagueID)
	return cfg, err
}

func (s *LeagueStore) UpdateScoringConfig(ctx context.Context, leagueID uuid.UUID, cfg league.ScoringConfig) error {
	res, err := s.db.NamedExecContext(ctx, updateScoringConfigQuery, struct {
		ID uuid.UUID `db:"id"`
		league.ScoringConfig
	}{ID: leagueID, ScoringConfig: cfg})
	if err != nil {
		return err
	}
	return expectRow(res)
}

// expectRow turns an update or delete that matched nothing into
// sql.ErrNoRows.
func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

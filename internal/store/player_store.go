package store

import (
	"context"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PlayerStore struct {
	db *sqlx.DB
}

const (
	listPlayersQuery  = "SELECT * FROM players WHERE league_id = ? ORDER BY name COLLATE NOCASE ASC, rowid ASC"
	getPlayerQuery    = "SELECT * FROM players WHERE id = ?"
	createPlayerQuery = `
		INSERT INTO players (id, league_id, name, created_at)
		VALUES (:id, :league_id, :name, :created_at)
	`
	renamePlayerQuery = "UPDATE players SET name = ? WHERE id = ?"
	deletePlayerQuery = "DELETE FROM players WHERE id = ?"
	countForeignQuery = "SELECT COUNT(*) FROM players WHERE league_id <> ? AND id IN (?)"
)

func NewPlayerStore(db *sqlx.DB) *PlayerStore {
	return &PlayerStore{db: db}
}

func (s *PlayerStore) ListPlayers(ctx context.Context, leagueID uuid.UUID) ([]league.Player, error) {
	players := []league.Player{}
	err := s.db.SelectContext(ctx, &players, listPlayersQuery, leagueID)
	return players, err
}

func (s *PlayerStore) GetPlayer(ctx context.Context, id uuid.UUID) (*league.Player, error) {
	var p league.Player
	if err := s.db.GetContext(ctx, &p, getPlayerQuery, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PlayerStore) CreatePlayer(ctx context.Context, p *league.Player) error {
	_, err := s.db.NamedExecContext(ctx, createPlayerQuery, p)
	return err
}

func (s *PlayerStore) RenamePlayer(ctx context.Context, id uuid.UUID, name string) error {
	res, err := s.db.ExecContext(ctx, renamePlayerQuery, name, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (s *PlayerStore) DeletePlayer(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, deletePlayerQuery, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// CountPlayersOutsideLeague reports how many of ids are players of some
// other league. Ids with no player row at all are not counted.
func (s *PlayerStore) CountPlayersOutsideLeague(ctx context.Context, leagueID uuid.UUID, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(countForeignQuery, leagueID, ids)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.db.GetContext(ctx, &n, s.db.Rebind(query), args...)
	return n, err
}

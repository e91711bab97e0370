package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

type LiveGameStore struct {
	db *sqlx.DB
}

// LiveGameRow is the stored live document of one league. State is kept as
// the JSON the server last accepted.
type LiveGameRow struct {
	LeagueID  uuid.UUID      `db:"league_id"`
	State     types.JSONText `db:"state"`
	UpdatedAt time.Time      `db:"updated_at"`
}

const (
	getLiveGameQuery    = "SELECT * FROM live_games WHERE league_id = ?"
	upsertLiveGameQuery = `
		INSERT INTO live_games (league_id, state, updated_at)
		VALUES (:league_id, :state, :updated_at)
		ON CONFLICT (league_id) DO UPDATE SET
		state = excluded.state,
		updated_at = excluded.updated_at
	`
	deleteLiveGameQuery = "DELETE FROM live_games WHERE league_id = ?"
)

func NewLiveGameStore(db *sqlx.DB) *LiveGameStore {
	return &LiveGameStore{db: db}
}

// GetLiveGame returns sql.ErrNoRows when the league has no live document.
func (s *LiveGameStore) GetLiveGame(ctx context.Context, leagueID uuid.UUID) (*LiveGameRow, error) {
	var row LiveGameRow
	if err := s.db.GetContext(ctx, &row, getLiveGameQuery, leagueID); err != nil {
		return nil, err
	}
	return &row, nil
}

// UpsertLiveGame replaces the league's live document as a whole.
func (s *LiveGameStore) UpsertLiveGame(ctx context.Context, row *LiveGameRow) error {
	_, err := s.db.NamedExecContext(ctx, upsertLiveGameQuery, row)
	return err
}

// DeleteLiveGame reports whether there was a document to delete.
func (s *LiveGameStore) DeleteLiveGame(ctx context.Context, leagueID uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, deleteLiveGameQuery, leagueID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type LeagueService struct {
	db    *sqlx.DB
	store *store.LeagueStore
}

func NewLeagueService(db *sqlx.DB, store *store.LeagueStore) *LeagueService {
	return &LeagueService{db: db, store: store}
}

func (s *LeagueService) ListForUser(ctx context.Context, userID uuid.UUID) ([]league.League, error) {
	leagues, err := s.store.ListLeaguesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}
	return leagues, nil
}

// CreateLeague stores a new league with default scoring and makes the
// creator its admin.
func (s *LeagueService) CreateLeague(ctx context.Context, ownerID uuid.UUID, name string) (*league.League, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("League name is required")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	l := &league.League{
		ID:            uuid.New(),
		Name:          name,
		PublicToken:   newPublicToken(),
		OwnerID:       ownerID,
		Role:          league.RoleAdmin,
		ScoringConfig: league.DefaultScoringConfig(),
	}
	if err := s.store.CreateLeague(ctx, tx, l); err != nil {
		return nil, fmt.Errorf("failed to create league: %w", err)
	}
	if err := s.store.AddMember(ctx, tx, l.ID, ownerID, league.RoleAdmin); err != nil {
		return nil, fmt.Errorf("failed to add league admin: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	slog.Info("league created", "league_id", l.ID, "owner_id", ownerID)
	return l, nil
}

// PublicSummary looks a league up by its public token.
func (s *LeagueService) PublicSummary(ctx context.Context, token string) (league.Summary, error) {
	if strings.TrimSpace(token) == "" {
		return league.Summary{}, apperr.Validation("Token is required")
	}
	l, err := s.store.GetLeagueByPublicToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return league.Summary{}, apperr.NotFound("League not found")
	}
	if err != nil {
		return league.Summary{}, fmt.Errorf("failed to get league: %w", err)
	}
	return l.Summary(), nil
}

func (s *LeagueService) ScoringConfig(ctx context.Context, leagueID uuid.UUID) (league.ScoringConfig, error) {
	cfg, err := s.store.GetScoringConfig(ctx, leagueID)
	if errors.Is(err, sql.ErrNoRows) {
		return cfg, apperr.NotFound("League not found")
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to get scoring config: %w", err)
	}
	return cfg, nil
}

func (s *LeagueService) UpdateScoringConfig(ctx context.Context, leagueID uuid.UUID, cfg league.ScoringConfig) (league.ScoringConfig, error) {
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	err := s.store.UpdateScoringConfig(ctx, leagueID, cfg)
	if errors.Is(err, sql.ErrNoRows) {
		return cfg, apperr.NotFound("League not found")
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to update scoring config: %w", err)
	}
	return cfg, nil
}

func newPublicToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
